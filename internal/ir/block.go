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

    `golang.org/x/exp/slices`
)

// BasicBlock is an ordered sequence of instructions owned exclusively by
// the block. A complete block ends with exactly one terminator.
type BasicBlock struct {
    Id   int
    Pred []*BasicBlock
    ins  []*Instr
    fn   *Function
}

func (self *BasicBlock) Parent() *Function {
    return self.fn
}

// Instrs returns the live instruction slice of the block. Callers that
// mutate the block while walking it must use Snapshot instead.
func (self *BasicBlock) Instrs() []*Instr {
    return self.ins
}

// Snapshot returns a copy of the instruction list, which stays stable while
// instructions are inserted into or erased from the block.
func (self *BasicBlock) Snapshot() []*Instr {
    return append([]*Instr(nil), self.ins...)
}

func (self *BasicBlock) Len() int {
    return len(self.ins)
}

// Index returns the position of `ins` in the block, or -1.
func (self *BasicBlock) Index(ins *Instr) int {
    return slices.Index(self.ins, ins)
}

// Terminator returns the last instruction if it is a terminator.
func (self *BasicBlock) Terminator() *Instr {
    if n := len(self.ins); n == 0 || !self.ins[n - 1].IsTerminator() {
        return nil
    } else {
        return self.ins[n - 1]
    }
}

func (self *BasicBlock) Successors() []*BasicBlock {
    if tr := self.Terminator(); tr == nil {
        return nil
    } else {
        return tr.succ
    }
}

// Append adds a raw instruction at the end of the block. No type checking
// is done; use a Builder for that.
func (self *BasicBlock) Append(ins *Instr) *Instr {
    return self.insertAt(len(self.ins), ins)
}

// InsertBefore places `ins` immediately before `pos`, which must belong to
// this block.
func (self *BasicBlock) InsertBefore(ins *Instr, pos *Instr) *Instr {
    if pos.bb != self {
        panic("ir: insertion point belongs to another block")
    } else if i := self.Index(pos); i < 0 {
        panic("ir: insertion point not found: " + pos.Ref())
    } else {
        return self.insertAt(i, ins)
    }
}

func (self *BasicBlock) insertAt(i int, ins *Instr) *Instr {
    if ins.bb != nil || ins.erased {
        panic("ir: instruction is already placed: " + ins.Ref())
    }

    /* number the value if needed */
    if ins.Id < 0 {
        ins.Id = self.fn.nextId
        self.fn.nextId++
    } else if ins.Id >= self.fn.nextId {
        self.fn.nextId = ins.Id + 1
    }

    /* add to the block */
    ins.bb = self
    self.ins = slices.Insert(self.ins, i, ins)
    return ins
}

func (self *BasicBlock) remove(ins *Instr) {
    if i := self.Index(ins); i < 0 {
        panic("ir: instruction not found in block: " + ins.Ref())
    } else {
        self.ins = slices.Delete(self.ins, i, i + 1)
    }
}

// SetSuccessors wires the branch targets of the block terminator and keeps
// the predecessor lists of the targets in sync.
func (self *BasicBlock) SetSuccessors(succ ...*BasicBlock) {
    tr := self.Terminator()

    /* must have a terminator */
    if tr == nil {
        panic(fmt.Sprintf("ir: bb_%d has no terminator", self.Id))
    }

    /* check for successor count */
    switch tr.Op {
        case OP_br     : if len(succ) != 1 { panic("ir: br takes exactly one successor") }
        case OP_condbr : if len(succ) != 2 { panic("ir: conditional br takes exactly two successors") }
        case OP_ret    : if len(succ) != 0 { panic("ir: ret has no successors") }
    }

    /* replace the edges */
    self.unlinkAll()
    tr.succ = append([]*BasicBlock(nil), succ...)

    /* add the new predecessor edges */
    for _, bb := range succ {
        bb.Pred = append(bb.Pred, self)
    }
}

func (self *BasicBlock) unlinkAll() {
    for _, bb := range self.Successors() {
        if i := slices.Index(bb.Pred, self); i >= 0 {
            bb.Pred = slices.Delete(bb.Pred, i, i + 1)
        }
    }
}

func (self *BasicBlock) String() string {
    buf := make([]string, 0, len(self.ins) + 1)
    buf = append(buf, fmt.Sprintf("bb_%d:", self.Id))

    /* dump every instruction */
    for _, v := range self.ins {
        buf = append(buf, "  " + v.String())
    }

    /* join them together */
    return strings.Join(buf, "\n")
}
