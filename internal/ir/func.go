/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ir

import (
    `fmt`
    `strings`
)

// Module is a compilation unit: an ordered set of functions.
type Module struct {
    Name  string
    Funcs []*Function
}

func NewModule(name string) *Module {
    return &Module { Name: name }
}

// NewFunction adds a function with parameters named %a0, %a1, ...
func (self *Module) NewFunction(name string, ret Type, params ...Type) *Function {
    fn := &Function {
        Name   : name,
        Ret    : ret,
        Params : make([]*Argument, len(params)),
        parent : self,
    }

    /* create the arguments */
    for i, ty := range params {
        fn.Params[i] = &Argument {
            Name  : fmt.Sprintf("a%d", i),
            Index : i,
            Ty    : ty,
            fn    : fn,
        }
    }

    /* add to module */
    self.Funcs = append(self.Funcs, fn)
    return fn
}

// Func looks a function up by name.
func (self *Module) Func(name string) *Function {
    for _, fn := range self.Funcs {
        if fn.Name == name {
            return fn
        }
    }
    return nil
}

// NumInstrs counts the instructions of the whole module.
func (self *Module) NumInstrs() (n int) {
    for _, fn := range self.Funcs {
        n += fn.NumInstrs()
    }
    return
}

func (self *Module) String() string {
    buf := make([]string, 0, len(self.Funcs) + 1)
    buf = append(buf, fmt.Sprintf("; module %s", self.Name))

    /* dump every function */
    for _, fn := range self.Funcs {
        buf = append(buf, "", fn.String())
    }

    /* join them together */
    return strings.Join(buf, "\n") + "\n"
}

// Function is a list of basic blocks; the first one is the entry block.
type Function struct {
    Name   string
    Ret    Type
    Params []*Argument
    Blocks []*BasicBlock
    nextId int
    nextBB int
    parent *Module
}

func (self *Function) Parent() *Module {
    return self.parent
}

func (self *Function) NewBlock() *BasicBlock {
    bb := &BasicBlock { Id: self.nextBB, fn: self }
    self.nextBB++
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// NewNumberedBlock adds a block with a given id, which must not be taken.
func (self *Function) NewNumberedBlock(id int) *BasicBlock {
    if id < 0 || self.Block(id) != nil {
        panic(fmt.Sprintf("ir: block id %d is invalid or taken", id))
    }

    /* keep the counter above every id */
    if id >= self.nextBB {
        self.nextBB = id + 1
    }

    /* add to the function */
    bb := &BasicBlock { Id: id, fn: self }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

func (self *Function) Entry() *BasicBlock {
    if len(self.Blocks) == 0 {
        return nil
    } else {
        return self.Blocks[0]
    }
}

func (self *Function) Block(id int) *BasicBlock {
    for _, bb := range self.Blocks {
        if bb.Id == id {
            return bb
        }
    }
    return nil
}

func (self *Function) NumInstrs() (n int) {
    for _, bb := range self.Blocks {
        n += bb.Len()
    }
    return
}

// ForEachInstr visits every instruction in block order. The walk is over
// snapshots, so `action` may insert or erase instructions.
func (self *Function) ForEachInstr(action func(ins *Instr)) {
    for _, bb := range self.Blocks {
        for _, ins := range bb.Snapshot() {
            if !ins.erased {
                action(ins)
            }
        }
    }
}

func (self *Function) String() string {
    args := make([]string, 0, len(self.Params))
    body := make([]string, 0, len(self.Blocks))

    /* dump the parameters */
    for _, p := range self.Params {
        args = append(args, p.String())
    }

    /* dump the blocks */
    for _, bb := range self.Blocks {
        body = append(body, bb.String())
    }

    /* join them together */
    return fmt.Sprintf(
        "define %s @%s(%s) {\n%s\n}",
        self.Ret,
        self.Name,
        strings.Join(args, ", "),
        strings.Join(body, "\n"),
    )
}
