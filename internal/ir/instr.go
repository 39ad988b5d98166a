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

type OpCode uint8

const (
    OP_invalid OpCode = iota
    OP_fneg                     // -x
    OP_fadd                     // x + y
    OP_fsub                     // x - y
    OP_fmul                     // x * y
    OP_fdiv                     // x / y
    OP_fcmp                     // x <pred> y -> i1
    OP_extractelement           // vec[idx]
    OP_insertelement            // vec[idx] = elt
    OP_call                     // intrinsic(args...)
    OP_br                       // goto succ[0]
    OP_condbr                   // if cond goto succ[0] else succ[1]
    OP_ret                      // return [value]
)

var _OpNames = [...]string {
    OP_invalid        : "invalid",
    OP_fneg           : "fneg",
    OP_fadd           : "fadd",
    OP_fsub           : "fsub",
    OP_fmul           : "fmul",
    OP_fdiv           : "fdiv",
    OP_fcmp           : "fcmp",
    OP_extractelement : "extractelement",
    OP_insertelement  : "insertelement",
    OP_call           : "call",
    OP_br             : "br",
    OP_condbr         : "br",
    OP_ret            : "ret",
}

func (self OpCode) String() string {
    if int(self) < len(_OpNames) {
        return _OpNames[self]
    } else {
        return fmt.Sprintf("op(%d)", uint8(self))
    }
}

// IsTerminator reports whether the opcode ends a basic block.
func (self OpCode) IsTerminator() bool {
    return self >= OP_br && self <= OP_ret
}

// IsPure reports whether an instruction with this opcode can be dropped when
// its result is unused.
func (self OpCode) IsPure() bool {
    return self >= OP_fneg && self <= OP_insertelement
}

type FCmpPred uint8

const (
    FCmpOEQ FCmpPred = iota
    FCmpONE
    FCmpOLT
    FCmpOLE
    FCmpOGT
    FCmpOGE
)

func (self FCmpPred) String() string {
    switch self {
        case FCmpOEQ : return "oeq"
        case FCmpONE : return "one"
        case FCmpOLT : return "olt"
        case FCmpOLE : return "ole"
        case FCmpOGT : return "ogt"
        case FCmpOGE : return "oge"
        default      : panic("unreachable")
    }
}

// Instr is a node of the def-use graph. Operand edges are only changed
// through SetOperand (or ReplaceAllUsesWith), which keeps the use index of
// every producer in sync.
type Instr struct {
    useList
    Id     int
    Op     OpCode
    Ty     Type
    Fn     *Intrinsic
    Pred   FCmpPred
    bb     *BasicBlock
    args   []Value
    succ   []*BasicBlock
    erased bool
}

// NewInstr creates a detached instruction. It gets its value number when it
// is placed into a block.
func NewInstr(op OpCode, ty Type, args ...Value) *Instr {
    ins := &Instr { Id: -1, Op: op, Ty: ty }
    ins.SetOperands(args...)
    return ins
}

func (self *Instr) Type() Type {
    return self.Ty
}

func (self *Instr) Ref() string {
    return fmt.Sprintf("%%%d", self.Id)
}

func (self *Instr) Parent() *BasicBlock {
    return self.bb
}

// Erased reports whether the instruction has been removed from its block.
func (self *Instr) Erased() bool {
    return self.erased
}

// Is reports whether the instruction has exactly the given opcode.
func (self *Instr) Is(op OpCode) bool {
    return self != nil && self.Op == op
}

// IsCallTo reports whether the instruction is a call to the given intrinsic.
func (self *Instr) IsCallTo(id IntrinsicID) bool {
    return self.Is(OP_call) && self.Fn != nil && self.Fn.ID == id
}

func (self *Instr) IsTerminator() bool {
    return self.Op.IsTerminator()
}

func (self *Instr) NumOperands() int {
    return len(self.args)
}

func (self *Instr) Operand(i int) Value {
    return self.args[i]
}

// Operands returns a copy of the operand list.
func (self *Instr) Operands() []Value {
    return append([]Value(nil), self.args...)
}

// SetOperand replaces operand `i`, moving the use edge from the old producer
// to the new one.
func (self *Instr) SetOperand(i int, v Value) {
    if v == nil {
        panic("ir: nil operand")
    }

    /* detach from the old producer */
    if old := self.args[i]; old != nil {
        untrack(old, self, i)
    }

    /* attach to the new one */
    self.args[i] = v
    track(v, self, i)
}

// SetOperands resets the whole operand list.
func (self *Instr) SetOperands(args ...Value) {
    self.dropOperands()
    self.args = make([]Value, len(args))

    /* attach every operand */
    for i, v := range args {
        self.SetOperand(i, v)
    }
}

func (self *Instr) dropOperands() {
    for i, v := range self.args {
        if v != nil {
            untrack(v, self, i)
            self.args[i] = nil
        }
    }
}

// Successors returns the branch targets of a terminator.
func (self *Instr) Successors() []*BasicBlock {
    return append([]*BasicBlock(nil), self.succ...)
}

// ConstIndex returns the lane index of an element access if it is a
// compile-time constant.
func (self *Instr) ConstIndex() (int64, bool) {
    var idx Value

    /* only element accesses have a lane index */
    switch self.Op {
        case OP_extractelement : idx = self.args[1]
        case OP_insertelement  : idx = self.args[2]
        default                : return 0, false
    }

    /* must be an integer constant */
    if c, ok := idx.(*ConstInt); ok {
        return c.V, true
    } else {
        return 0, false
    }
}

// ReplaceAllUsesWith redirects every consumer of this instruction to `v`.
func (self *Instr) ReplaceAllUsesWith(v Value) {
    ReplaceAllUsesWith(self, v)
}

// Erase removes the instruction from its block and drops its operand edges.
// The instruction must not have any remaining consumers.
func (self *Instr) Erase() {
    if self.erased {
        panic("ir: instruction erased twice: " + self.Ref())
    } else if self.bb == nil {
        panic("ir: instruction is not attached to a block: " + self.Ref())
    } else if n := self.NumUses(); n != 0 {
        panic(fmt.Sprintf("ir: erasing %s which still has %d use(s)", self.Ref(), n))
    }

    /* unlink the branch edges */
    if self.IsTerminator() {
        self.bb.unlinkAll()
        self.succ = nil
    }

    /* detach from operands and the block */
    self.dropOperands()
    self.bb.remove(self)
    self.bb, self.erased = nil, true
}

func operandList(args []Value) string {
    ret := make([]string, 0, len(args))
    for _, v := range args { ret = append(ret, fmt.Sprintf("%s %s", v.Type(), v.Ref())) }
    return strings.Join(ret, ", ")
}

func (self *Instr) String() string {
    if self.erased {
        return fmt.Sprintf("%s = <erased %s>", self.Ref(), self.Op)
    }

    /* format by opcode */
    switch self.Op {
        case OP_fneg: {
            return fmt.Sprintf("%s = fneg %s %s", self.Ref(), self.Ty, self.args[0].Ref())
        }

        /* binary arithmetic */
        case OP_fadd, OP_fsub, OP_fmul, OP_fdiv: {
            return fmt.Sprintf("%s = %s %s %s, %s", self.Ref(), self.Op, self.Ty, self.args[0].Ref(), self.args[1].Ref())
        }

        /* comparison */
        case OP_fcmp: {
            return fmt.Sprintf("%s = fcmp %s %s %s, %s", self.Ref(), self.Pred, self.args[0].Type(), self.args[0].Ref(), self.args[1].Ref())
        }

        /* vector element access */
        case OP_extractelement, OP_insertelement: {
            return fmt.Sprintf("%s = %s %s", self.Ref(), self.Op, operandList(self.args))
        }

        /* intrinsic calls */
        case OP_call: {
            return fmt.Sprintf("%s = call %s @%s(%s)", self.Ref(), self.Ty, self.Fn.Mangle(self.Ty), operandList(self.args))
        }

        /* terminators */
        case OP_br: {
            return fmt.Sprintf("br label %%bb_%d", self.succ[0].Id)
        }

        /* conditional branch */
        case OP_condbr: {
            return fmt.Sprintf("br i1 %s, label %%bb_%d, label %%bb_%d", self.args[0].Ref(), self.succ[0].Id, self.succ[1].Id)
        }

        /* return with or without value */
        case OP_ret: {
            if len(self.args) == 0 {
                return "ret void"
            } else {
                return "ret " + operandList(self.args)
            }
        }

        /* should not happen */
        default: {
            return fmt.Sprintf("%s = <%s>", self.Ref(), self.Op)
        }
    }
}
