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

package codec

import (
    `github.com/apache/thrift/lib/go/thrift`
)

// The serialized form is plain Thrift binary protocol, equivalent to
//
//     struct Operand  { 1: i32 kind, 2: i32 type, 3: i64 ival, 4: double fval, 5: i32 ref }
//     struct Instr    { 1: i32 id, 2: i32 op, 3: i32 type, 4: string callee, 5: i32 pred,
//                       6: list<Operand> args, 7: list<i32> succ }
//     struct Block    { 1: i32 id, 2: list<Instr> instrs }
//     struct Function { 1: string name, 2: i32 ret, 3: list<i32> params, 4: list<Block> blocks }
//     struct Module   { 1: string name, 2: list<Function> funcs, 15: i32 magic }
//
// Unknown fields are skipped.

const (
    _Magic   = 0x1a9ef01d
    _MaxList = 1 << 20
)

const (
    _K_int int32 = iota
    _K_float
    _K_arg
    _K_ref
)

type wireOperand struct {
    kind int32
    ty   int32
    ival int64
    fval float64
    ref  int32
}

type wireInstr struct {
    id     int32
    op     int32
    ty     int32
    callee string
    pred   int32
    args   []wireOperand
    succ   []int32
}

type wireBlock struct {
    id     int32
    instrs []wireInstr
}

type wireFunc struct {
    name   string
    ret    int32
    params []int32
    blocks []wireBlock
}

type wireModule struct {
    name  string
    magic int32
    funcs []wireFunc
}

/** Writer **/

type _Writer struct {
    p   thrift.TProtocol
    err error
}

func (self *_Writer) field(name string, tt thrift.TType, id int16, body func()) {
    if self.err == nil { self.err = self.p.WriteFieldBegin(name, tt, id) }
    if self.err == nil { body() }
    if self.err == nil { self.err = self.p.WriteFieldEnd() }
}

func (self *_Writer) i32(name string, id int16, v int32) {
    self.field(name, thrift.I32, id, func() { self.err = self.p.WriteI32(v) })
}

func (self *_Writer) i64(name string, id int16, v int64) {
    self.field(name, thrift.I64, id, func() { self.err = self.p.WriteI64(v) })
}

func (self *_Writer) double(name string, id int16, v float64) {
    self.field(name, thrift.DOUBLE, id, func() { self.err = self.p.WriteDouble(v) })
}

func (self *_Writer) str(name string, id int16, v string) {
    self.field(name, thrift.STRING, id, func() { self.err = self.p.WriteString(v) })
}

func (self *_Writer) list(name string, id int16, et thrift.TType, n int, elem func(i int)) {
    self.field(name, thrift.LIST, id, func() {
        if self.err = self.p.WriteListBegin(et, n); self.err != nil {
            return
        }
        for i := 0; i < n && self.err == nil; i++ {
            elem(i)
        }
        if self.err == nil {
            self.err = self.p.WriteListEnd()
        }
    })
}

func (self *_Writer) i32s(name string, id int16, v []int32) {
    self.list(name, id, thrift.I32, len(v), func(i int) { self.err = self.p.WriteI32(v[i]) })
}

func (self *_Writer) object(name string, body func()) {
    if self.err == nil { self.err = self.p.WriteStructBegin(name) }
    if self.err == nil { body() }
    if self.err == nil { self.err = self.p.WriteFieldStop() }
    if self.err == nil { self.err = self.p.WriteStructEnd() }
}

func (self *_Writer) operand(v *wireOperand) {
    self.object("Operand", func() {
        self.i32("kind", 1, v.kind)
        self.i32("type", 2, v.ty)
        self.i64("ival", 3, v.ival)
        self.double("fval", 4, v.fval)
        self.i32("ref", 5, v.ref)
    })
}

func (self *_Writer) instr(v *wireInstr) {
    self.object("Instr", func() {
        self.i32("id", 1, v.id)
        self.i32("op", 2, v.op)
        self.i32("type", 3, v.ty)
        if v.callee != "" { self.str("callee", 4, v.callee) }
        self.i32("pred", 5, v.pred)
        self.list("args", 6, thrift.STRUCT, len(v.args), func(i int) { self.operand(&v.args[i]) })
        self.i32s("succ", 7, v.succ)
    })
}

func (self *_Writer) block(v *wireBlock) {
    self.object("Block", func() {
        self.i32("id", 1, v.id)
        self.list("instrs", 2, thrift.STRUCT, len(v.instrs), func(i int) { self.instr(&v.instrs[i]) })
    })
}

func (self *_Writer) function(v *wireFunc) {
    self.object("Function", func() {
        self.str("name", 1, v.name)
        self.i32("ret", 2, v.ret)
        self.i32s("params", 3, v.params)
        self.list("blocks", 4, thrift.STRUCT, len(v.blocks), func(i int) { self.block(&v.blocks[i]) })
    })
}

func (self *_Writer) module(v *wireModule) {
    self.object("Module", func() {
        self.str("name", 1, v.name)
        self.list("funcs", 2, thrift.STRUCT, len(v.funcs), func(i int) { self.function(&v.funcs[i]) })
        self.i32("magic", 15, v.magic)
    })
}

/** Reader **/

type _Reader struct {
    p thrift.TProtocol
}

// object reads a struct, calling `field` for every field; `field` returns
// false for fields it does not know, which are then skipped.
func (self _Reader) object(field func(id int16, tt thrift.TType) (bool, error)) error {
    if _, err := self.p.ReadStructBegin(); err != nil {
        return err
    }

    /* read every field */
    for {
        _, tt, id, err := self.p.ReadFieldBegin()
        if err != nil {
            return err
        } else if tt == thrift.STOP {
            break
        }

        /* decode or skip the field */
        if ok, err := field(id, tt); err != nil {
            return err
        } else if !ok {
            if err = self.p.Skip(tt); err != nil {
                return err
            }
        }

        /* end of field */
        if err = self.p.ReadFieldEnd(); err != nil {
            return err
        }
    }

    /* end of struct */
    return self.p.ReadStructEnd()
}

func (self _Reader) list(et thrift.TType, elem func(n int) error) error {
    tt, n, err := self.p.ReadListBegin()
    if err != nil {
        return err
    } else if tt != et {
        return eformat("list", "element type %s, expected %s", tt, et)
    } else if n < 0 || n > _MaxList {
        return eformat("list", "invalid list size %d", n)
    }

    /* read every element */
    if err = elem(n); err != nil {
        return err
    }

    /* end of list */
    return self.p.ReadListEnd()
}

func (self _Reader) i32(tt thrift.TType, v *int32) (bool, error) {
    var err error
    if tt != thrift.I32 { return false, nil }
    *v, err = self.p.ReadI32()
    return true, err
}

func (self _Reader) i32s(tt thrift.TType, v *[]int32) (bool, error) {
    if tt != thrift.LIST {
        return false, nil
    }
    return true, self.list(thrift.I32, func(n int) error {
        *v = make([]int32, 0, n)
        for i := 0; i < n; i++ {
            x, err := self.p.ReadI32()
            if err != nil {
                return err
            }
            *v = append(*v, x)
        }
        return nil
    })
}

func (self _Reader) str(tt thrift.TType, v *string) (bool, error) {
    var err error
    if tt != thrift.STRING { return false, nil }
    *v, err = self.p.ReadString()
    return true, err
}

func (self _Reader) operand(v *wireOperand) error {
    return self.object(func(id int16, tt thrift.TType) (bool, error) {
        var err error
        switch {
            case id == 1                        : return self.i32(tt, &v.kind)
            case id == 2                        : return self.i32(tt, &v.ty)
            case id == 3 && tt == thrift.I64    : v.ival, err = self.p.ReadI64()
            case id == 4 && tt == thrift.DOUBLE : v.fval, err = self.p.ReadDouble()
            case id == 5                        : return self.i32(tt, &v.ref)
            default                             : return false, nil
        }
        return true, err
    })
}

func (self _Reader) instr(v *wireInstr) error {
    return self.object(func(id int16, tt thrift.TType) (bool, error) {
        switch id {
            case 1  : return self.i32(tt, &v.id)
            case 2  : return self.i32(tt, &v.op)
            case 3  : return self.i32(tt, &v.ty)
            case 4  : return self.str(tt, &v.callee)
            case 5  : return self.i32(tt, &v.pred)
            case 7  : return self.i32s(tt, &v.succ)
            case 6  : break
            default : return false, nil
        }

        /* the operand list */
        if tt != thrift.LIST {
            return false, nil
        }
        return true, self.list(thrift.STRUCT, func(n int) error {
            v.args = make([]wireOperand, n)
            for i := range v.args {
                if err := self.operand(&v.args[i]); err != nil {
                    return err
                }
            }
            return nil
        })
    })
}

func (self _Reader) block(v *wireBlock) error {
    return self.object(func(id int16, tt thrift.TType) (bool, error) {
        switch {
            case id == 1                      : return self.i32(tt, &v.id)
            case id != 2 || tt != thrift.LIST : return false, nil
        }
        return true, self.list(thrift.STRUCT, func(n int) error {
            v.instrs = make([]wireInstr, n)
            for i := range v.instrs {
                if err := self.instr(&v.instrs[i]); err != nil {
                    return err
                }
            }
            return nil
        })
    })
}

func (self _Reader) function(v *wireFunc) error {
    return self.object(func(id int16, tt thrift.TType) (bool, error) {
        switch {
            case id == 1                      : return self.str(tt, &v.name)
            case id == 2                      : return self.i32(tt, &v.ret)
            case id == 3                      : return self.i32s(tt, &v.params)
            case id != 4 || tt != thrift.LIST : return false, nil
        }
        return true, self.list(thrift.STRUCT, func(n int) error {
            v.blocks = make([]wireBlock, n)
            for i := range v.blocks {
                if err := self.block(&v.blocks[i]); err != nil {
                    return err
                }
            }
            return nil
        })
    })
}

func (self _Reader) module(v *wireModule) error {
    return self.object(func(id int16, tt thrift.TType) (bool, error) {
        switch {
            case id == 1                      : return self.str(tt, &v.name)
            case id == 15                     : return self.i32(tt, &v.magic)
            case id != 2 || tt != thrift.LIST : return false, nil
        }
        return true, self.list(thrift.STRUCT, func(n int) error {
            v.funcs = make([]wireFunc, n)
            for i := range v.funcs {
                if err := self.function(&v.funcs[i]); err != nil {
                    return err
                }
            }
            return nil
        })
    })
}
