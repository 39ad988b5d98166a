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
)

// Builder creates type-checked instructions at an insertion point: either
// the end of a block, or immediately before a given instruction.
type Builder struct {
    bb *BasicBlock
    at *Instr
}

func NewBuilder(bb *BasicBlock) *Builder {
    return &Builder { bb: bb }
}

// NewBuilderBefore returns a builder inserting right before `ins`, so that
// everything it creates dominates `ins`.
func NewBuilderBefore(ins *Instr) *Builder {
    if ins.bb == nil {
        panic("ir: insertion point is not attached to a block: " + ins.Ref())
    }
    return &Builder { bb: ins.bb, at: ins }
}

func (self *Builder) Block() *BasicBlock {
    return self.bb
}

func (self *Builder) SetInsertPoint(bb *BasicBlock) {
    self.bb, self.at = bb, nil
}

func (self *Builder) SetInsertPointBefore(ins *Instr) {
    self.bb, self.at = ins.bb, ins
}

func (self *Builder) insert(ins *Instr) *Instr {
    if self.at == nil {
        return self.bb.Append(ins)
    } else {
        return self.bb.InsertBefore(ins, self.at)
    }
}

func checkFloat(op OpCode, vals ...Value) Type {
    ty := vals[0].Type()

    /* must be floating-point */
    if !ty.IsFloat() {
        panic(fmt.Sprintf("ir: %s on non-floating-point type %s", op, ty))
    }

    /* all operands must share the type */
    for _, v := range vals[1:] {
        if v.Type() != ty {
            panic(fmt.Sprintf("ir: %s operand type mismatch: %s vs %s", op, ty, v.Type()))
        }
    }
    return ty
}

func (self *Builder) binary(op OpCode, x Value, y Value) *Instr {
    return self.insert(NewInstr(op, checkFloat(op, x, y), x, y))
}

func (self *Builder) FNeg(x Value) *Instr {
    return self.insert(NewInstr(OP_fneg, checkFloat(OP_fneg, x), x))
}

func (self *Builder) FAdd(x Value, y Value) *Instr { return self.binary(OP_fadd, x, y) }
func (self *Builder) FSub(x Value, y Value) *Instr { return self.binary(OP_fsub, x, y) }
func (self *Builder) FMul(x Value, y Value) *Instr { return self.binary(OP_fmul, x, y) }
func (self *Builder) FDiv(x Value, y Value) *Instr { return self.binary(OP_fdiv, x, y) }

func (self *Builder) FCmp(pred FCmpPred, x Value, y Value) *Instr {
    checkFloat(OP_fcmp, x, y)
    ins := NewInstr(OP_fcmp, I1, x, y)
    ins.Pred = pred
    return self.insert(ins)
}

// ExtractElement reads the constant lane `idx` of `vec`.
func (self *Builder) ExtractElement(vec Value, idx int64) *Instr {
    return self.ExtractElementAt(vec, Int(idx))
}

// ExtractElementAt reads the lane selected by an arbitrary index value.
func (self *Builder) ExtractElementAt(vec Value, idx Value) *Instr {
    ty := vec.Type()

    /* check for operand types */
    if !ty.IsVector() {
        panic("ir: extractelement from non-vector type " + ty.String())
    } else if idx.Type() != I64 {
        panic("ir: extractelement index must be i64")
    }

    /* check for constant bounds */
    if c, ok := idx.(*ConstInt); ok && (c.V < 0 || c.V >= int64(ty.Lanes())) {
        panic(fmt.Sprintf("ir: lane %d out of range for %s", c.V, ty))
    }

    /* build the instruction */
    return self.insert(NewInstr(OP_extractelement, ty.Elem(), vec, idx))
}

// InsertElement returns `vec` with lane `idx` replaced by `elt`.
func (self *Builder) InsertElement(vec Value, elt Value, idx int64) *Instr {
    ty := vec.Type()

    /* check for operand types */
    if !ty.IsVector() || ty.Elem() != elt.Type() {
        panic(fmt.Sprintf("ir: cannot insert %s into %s", elt.Type(), ty))
    } else if idx < 0 || idx >= int64(ty.Lanes()) {
        panic(fmt.Sprintf("ir: lane %d out of range for %s", idx, ty))
    }

    /* build the instruction */
    return self.insert(NewInstr(OP_insertelement, ty, vec, elt, Int(idx)))
}

// Call invokes an intrinsic; the result type is the type of the first
// argument, every argument must share it.
func (self *Builder) Call(id IntrinsicID, args ...Value) *Instr {
    fn := LookupIntrinsic(id)

    /* check for arguments */
    if len(args) != fn.Arity {
        panic(fmt.Sprintf("ir: %s takes %d argument(s), got %d", fn.Name, fn.Arity, len(args)))
    }

    /* build the instruction */
    ins := NewInstr(OP_call, checkFloat(OP_call, args...), args...)
    ins.Fn = fn
    return self.insert(ins)
}

func (self *Builder) Br(to *BasicBlock) *Instr {
    ins := self.insert(NewInstr(OP_br, Void))
    self.bb.SetSuccessors(to)
    return ins
}

func (self *Builder) CondBr(cond Value, t *BasicBlock, f *BasicBlock) *Instr {
    if cond.Type() != I1 {
        panic("ir: branch condition must be i1")
    }

    /* build the instruction */
    ins := self.insert(NewInstr(OP_condbr, Void, cond))
    self.bb.SetSuccessors(t, f)
    return ins
}

// Ret returns from the function; pass nil for void functions.
func (self *Builder) Ret(v Value) *Instr {
    ret := self.bb.fn.Ret

    /* void returns */
    if v == nil {
        if ret != Void {
            panic("ir: missing return value of type " + ret.String())
        }
        return self.insert(NewInstr(OP_ret, Void))
    }

    /* check for the return type */
    if v.Type() != ret {
        panic(fmt.Sprintf("ir: returning %s from function of type %s", v.Type(), ret))
    }

    /* build the instruction */
    return self.insert(NewInstr(OP_ret, Void, v))
}
