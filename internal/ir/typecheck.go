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

func sameFloat(ty Type, args []Value) bool {
    if !ty.IsFloat() {
        return false
    }
    for _, v := range args {
        if v.Type() != ty {
            return false
        }
    }
    return true
}

// signature checks the operand and result types of an instruction the same
// way the Builder does, returning the reason if they are wrong.
func (self *Instr) signature() string {
    n := len(self.args)

    /* check for operand count */
    switch self.Op {
        case OP_fneg           : if n != 1 { return "fneg takes 1 operand" }
        case OP_fadd, OP_fsub  : if n != 2 { return fmt.Sprintf("%s takes 2 operands", self.Op) }
        case OP_fmul, OP_fdiv  : if n != 2 { return fmt.Sprintf("%s takes 2 operands", self.Op) }
        case OP_fcmp           : if n != 2 { return "fcmp takes 2 operands" }
        case OP_extractelement : if n != 2 { return "extractelement takes 2 operands" }
        case OP_insertelement  : if n != 3 { return "insertelement takes 3 operands" }
        case OP_br             : if n != 0 { return "br takes no operands" }
        case OP_condbr         : if n != 1 { return "conditional br takes 1 operand" }
        case OP_ret            : if n > 1  { return "ret takes at most 1 operand" }
        case OP_call           : if self.Fn == nil || n != self.Fn.Arity { return "call with a bad callee or argument count" }
        default                : return "invalid opcode"
    }

    /* check for types */
    switch self.Op {
        case OP_fneg, OP_fadd, OP_fsub, OP_fmul, OP_fdiv, OP_call: {
            if !sameFloat(self.Ty, self.args) {
                return fmt.Sprintf("%s operands must all be %s", self.Op, self.Ty)
            }
        }

        /* comparison */
        case OP_fcmp: {
            if self.Ty != I1 || !sameFloat(self.args[0].Type(), self.args[1:]) || self.args[0].Type().IsVector() {
                return "fcmp compares two floating-point scalars of the same type into i1"
            } else if self.Pred > FCmpOGE {
                return "invalid fcmp predicate"
            }
        }

        /* element access */
        case OP_extractelement: {
            if vt := self.args[0].Type(); !vt.IsVector() || vt.Elem() != self.Ty || self.args[1].Type() != I64 {
                return "extractelement reads an element of a vector with an i64 index"
            }
        }

        /* element update */
        case OP_insertelement: {
            if vt := self.args[0].Type(); vt != self.Ty || !vt.IsVector() || self.args[1].Type() != vt.Elem() || self.args[2].Type() != I64 {
                return "insertelement writes an element of a vector with an i64 index"
            }
        }

        /* branch condition */
        case OP_condbr: {
            if self.args[0].Type() != I1 {
                return "branch condition must be i1"
            }
        }
    }

    /* constant lane index must be in range */
    if i, ok := self.ConstIndex(); ok && (i < 0 || i >= int64(self.args[0].Type().Lanes())) {
        return fmt.Sprintf("lane %d out of range", i)
    }
    return ""
}
