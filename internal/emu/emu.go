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

// Package emu interprets ir functions, lane by lane, in float64 with
// results narrowed to the element precision after every instruction.
package emu

import (
    `fmt`

    `github.com/cloudwego/lanefold/internal/ir`
)

// DefaultMaxSteps bounds the number of instructions one Run may execute.
const DefaultMaxSteps = 1 << 20

// RuntimeError is returned when a function cannot be evaluated.
type RuntimeError struct {
    Func   string
    Instr  string
    Reason string
}

func (self *RuntimeError) Error() string {
    if self.Instr == "" {
        return fmt.Sprintf("emu: @%s: %s", self.Func, self.Reason)
    } else {
        return fmt.Sprintf("emu: @%s: %s: %s", self.Func, self.Instr, self.Reason)
    }
}

type Emulator struct {
    MaxSteps int
    fn       *ir.Function
    bb       *ir.BasicBlock
    pc       int
    ln       bool
    steps    int
    args     []Value
    regs     map[*ir.Instr]Value
    rv       *Value
}

var dispatchTab = [...]func(e *Emulator, p *ir.Instr) error {
    ir.OP_fneg           : (*Emulator).emu_OP_fneg,
    ir.OP_fadd           : (*Emulator).emu_OP_fadd,
    ir.OP_fsub           : (*Emulator).emu_OP_fsub,
    ir.OP_fmul           : (*Emulator).emu_OP_fmul,
    ir.OP_fdiv           : (*Emulator).emu_OP_fdiv,
    ir.OP_fcmp           : (*Emulator).emu_OP_fcmp,
    ir.OP_extractelement : (*Emulator).emu_OP_extractelement,
    ir.OP_insertelement  : (*Emulator).emu_OP_insertelement,
    ir.OP_call           : (*Emulator).emu_OP_call,
    ir.OP_br             : (*Emulator).emu_OP_br,
    ir.OP_condbr         : (*Emulator).emu_OP_condbr,
    ir.OP_ret            : (*Emulator).emu_OP_ret,
}

func (self *Emulator) fail(p *ir.Instr, reason string) error {
    err := &RuntimeError { Func: self.fn.Name, Reason: reason }
    if p != nil {
        err.Instr = p.Ref()
    }
    return err
}

func (self *Emulator) eval(v ir.Value) Value {
    switch x := v.(type) {
        case *ir.Argument   : return self.args[x.Index]
        case *ir.Instr      : return self.reg(x)
        case *ir.ConstInt   : return constInt(x)
        case *ir.ConstFloat : return constFloat(x)
        default             : panic(fmt.Sprintf("emu: unknown value %T", v))
    }
}

func (self *Emulator) reg(p *ir.Instr) Value {
    if v, ok := self.regs[p]; ok {
        return v
    } else {
        panic("emu: read of undefined value " + p.Ref())
    }
}

func constInt(c *ir.ConstInt) Value {
    if c.Ty == ir.I1 {
        return Bool(c.V != 0)
    } else {
        return Int(c.V)
    }
}

func constFloat(c *ir.ConstFloat) Value {
    if !c.Ty.IsVector() {
        return Scalar(c.Ty, c.V)
    }

    /* splat across every lane */
    lanes := make([]float64, c.Ty.Lanes())
    for i := range lanes { lanes[i] = c.V }
    return Vector(c.Ty, lanes...)
}

func (self *Emulator) unary(p *ir.Instr, op func(float64) float64) error {
    x := self.eval(p.Operand(0))
    r := Value { Ty: p.Ty, F: make([]float64, len(x.F)) }
    for i, v := range x.F { r.F[i] = round(p.Ty, op(v)) }
    self.regs[p] = r
    return nil
}

func (self *Emulator) binary(p *ir.Instr, op func(float64, float64) float64) error {
    x := self.eval(p.Operand(0))
    y := self.eval(p.Operand(1))
    r := Value { Ty: p.Ty, F: make([]float64, len(x.F)) }
    for i := range x.F { r.F[i] = round(p.Ty, op(x.F[i], y.F[i])) }
    self.regs[p] = r
    return nil
}

func (self *Emulator) emu_OP_fneg(p *ir.Instr) error {
    return self.unary(p, func(x float64) float64 { return -x })
}

func (self *Emulator) emu_OP_fadd(p *ir.Instr) error {
    return self.binary(p, func(x float64, y float64) float64 { return x + y })
}

func (self *Emulator) emu_OP_fsub(p *ir.Instr) error {
    return self.binary(p, func(x float64, y float64) float64 { return x - y })
}

func (self *Emulator) emu_OP_fmul(p *ir.Instr) error {
    return self.binary(p, func(x float64, y float64) float64 { return x * y })
}

func (self *Emulator) emu_OP_fdiv(p *ir.Instr) error {
    return self.binary(p, func(x float64, y float64) float64 { return x / y })
}

func (self *Emulator) emu_OP_fcmp(p *ir.Instr) error {
    x := self.eval(p.Operand(0))
    y := self.eval(p.Operand(1))

    /* only scalar compares */
    if x.Ty.IsVector() {
        return self.fail(p, "vector compares are not supported")
    }

    /* ordered predicates are false on NaN */
    a, b := x.F[0], y.F[0]
    switch p.Pred {
        case ir.FCmpOEQ : self.regs[p] = Bool(a == b)
        case ir.FCmpONE : self.regs[p] = Bool(a < b || a > b)
        case ir.FCmpOLT : self.regs[p] = Bool(a < b)
        case ir.FCmpOLE : self.regs[p] = Bool(a <= b)
        case ir.FCmpOGT : self.regs[p] = Bool(a > b)
        case ir.FCmpOGE : self.regs[p] = Bool(a >= b)
        default         : return self.fail(p, "invalid predicate")
    }
    return nil
}

func (self *Emulator) emu_OP_extractelement(p *ir.Instr) error {
    v := self.eval(p.Operand(0))
    i := self.eval(p.Operand(1)).I

    /* check for lane index */
    if i < 0 || i >= int64(len(v.F)) {
        return self.fail(p, fmt.Sprintf("lane %d out of range", i))
    }

    /* read the lane */
    self.regs[p] = Value { Ty: p.Ty, F: []float64 { v.F[i] } }
    return nil
}

func (self *Emulator) emu_OP_insertelement(p *ir.Instr) error {
    v := self.eval(p.Operand(0))
    x := self.eval(p.Operand(1))
    i := self.eval(p.Operand(2)).I

    /* check for lane index */
    if i < 0 || i >= int64(len(v.F)) {
        return self.fail(p, fmt.Sprintf("lane %d out of range", i))
    }

    /* copy the vector and replace the lane */
    r := Value { Ty: p.Ty, F: append([]float64(nil), v.F...) }
    r.F[i] = x.F[0]
    self.regs[p] = r
    return nil
}

func (self *Emulator) emu_OP_call(p *ir.Instr) error {
    if p.Fn == nil || p.Fn.Eval == nil {
        return self.fail(p, "call to an intrinsic without an evaluator")
    }

    /* evaluate the arguments */
    args := make([]Value, p.NumOperands())
    for i, v := range p.Operands() {
        args[i] = self.eval(v)
    }

    /* apply the intrinsic lane-wise */
    av := make([]float64, len(args))
    rv := Value { Ty: p.Ty, F: make([]float64, p.Ty.Width()) }

    /* evaluate each lane */
    for i := range rv.F {
        for j, a := range args { av[j] = a.F[i] }
        rv.F[i] = round(p.Ty, p.Fn.Eval(av))
    }

    /* store the result */
    self.regs[p] = rv
    return nil
}

func (self *Emulator) jump(bb *ir.BasicBlock) {
    self.bb = bb
    self.pc = 0
    self.ln = false
}

func (self *Emulator) emu_OP_br(p *ir.Instr) error {
    self.jump(p.Successors()[0])
    return nil
}

func (self *Emulator) emu_OP_condbr(p *ir.Instr) error {
    if succ := p.Successors(); self.eval(p.Operand(0)).I != 0 {
        self.jump(succ[0])
    } else {
        self.jump(succ[1])
    }
    return nil
}

func (self *Emulator) emu_OP_ret(p *ir.Instr) error {
    rv := Value { Ty: ir.Void }
    if p.NumOperands() != 0 {
        rv = self.eval(p.Operand(0))
    }

    /* stop the machine */
    self.rv = &rv
    self.ln = false
    return nil
}

func (self *Emulator) load(fn *ir.Function, args []Value) error {
    self.fn = fn
    self.rv = nil
    self.steps = 0

    /* drop values of the previous run */
    for k := range self.regs {
        delete(self.regs, k)
    }

    /* check for arguments */
    if len(args) != len(fn.Params) {
        return self.fail(nil, fmt.Sprintf("expected %d argument(s), got %d", len(fn.Params), len(args)))
    }

    /* check for argument types */
    for i, v := range args {
        if v.Ty != fn.Params[i].Ty {
            return self.fail(nil, fmt.Sprintf("argument %d: expected %s, got %s", i, fn.Params[i].Ty, v.Ty))
        }
    }

    /* the function must be well-formed */
    if err := ir.VerifyFunction(fn); err != nil {
        return err
    } else if len(fn.Blocks) == 0 {
        return self.fail(nil, "function has no body")
    }

    /* start from the entry block */
    self.args = args
    self.jump(fn.Entry())
    return nil
}

// Run executes `fn` with `args` until it returns.
func (self *Emulator) Run(fn *ir.Function, args ...Value) (Value, error) {
    var ip *ir.Instr
    var fp func(e *Emulator, p *ir.Instr) error

    /* load the function */
    if err := self.load(fn, args); err != nil {
        return Value{}, err
    }

    /* step limit */
    limit := self.MaxSteps
    if limit <= 0 {
        limit = DefaultMaxSteps
    }

    /* run until the function returns */
    for self.rv == nil {
        if self.steps++; self.steps > limit {
            return Value{}, self.fail(nil, fmt.Sprintf("step limit of %d exceeded", limit))
        }

        /* fetch and decode */
        ip = self.bb.Instrs()[self.pc]
        fp = nil

        /* find the handler */
        if int(ip.Op) < len(dispatchTab) {
            fp = dispatchTab[ip.Op]
        }

        /* move cold path outside of the loop */
        if fp == nil {
            return Value{}, self.fail(ip, "illegal opcode")
        }

        /* execute and advance the PC if needed */
        self.ln = true
        if err := fp(self, ip); err != nil {
            return Value{}, err
        } else if self.ln {
            self.pc++
        }
    }

    /* all done */
    return *self.rv, nil
}

// Call runs `fn` on a pooled emulator.
func Call(fn *ir.Function, args ...Value) (Value, error) {
    e := newEmulator()
    defer freeEmulator(e)
    return e.Run(fn, args...)
}
