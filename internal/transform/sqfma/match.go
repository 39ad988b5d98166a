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

package sqfma

import (
    `github.com/cloudwego/lanefold/internal/ir`
)

// Bundle is one matched occurrence of
//
//     fmuladd(x, x, extractelement(fmul(v, v), 1))    where x = extractelement(v, 0)
//
// It is built per match and never retained.
type Bundle struct {
    Call  *ir.Instr
    Lane0 *ir.Instr
    Lane1 *ir.Instr
    Mul   *ir.Instr
    Src   ir.Value
}

// lane returns `v` if it extracts the constant lane `idx` of a vector.
func lane(v ir.Value, idx int64) (*ir.Instr, bool) {
    if ins, ok := v.(*ir.Instr); !ok || !ins.Is(ir.OP_extractelement) {
        return nil, false
    } else if i, ok := ins.ConstIndex(); !ok || i != idx {
        return nil, false
    } else {
        return ins, true
    }
}

// Match reports whether `ins` is the root call of the idiom. It never
// mutates anything.
func Match(ins *ir.Instr) (*Bundle, bool) {
    if !ins.IsCallTo(ir.FMulAdd) || ins.NumOperands() != 3 {
        return nil, false
    }

    /* both multiplicands must be the same value */
    a, b, c := ins.Operand(0), ins.Operand(1), ins.Operand(2)
    if a != b {
        return nil, false
    }

    /* the multiplicand is lane 0 of the source vector */
    x, ok := lane(a, 0)
    if !ok {
        return nil, false
    }

    /* the addend is lane 1 of some vector */
    y, ok := lane(c, 1)
    if !ok {
        return nil, false
    }

    /* ... and that vector is a plain multiplication */
    mul, ok := y.Operand(0).(*ir.Instr)
    if !ok || !mul.Is(ir.OP_fmul) {
        return nil, false
    }

    /* which squares the very same source vector */
    src := x.Operand(0)
    if mul.Operand(0) != mul.Operand(1) || mul.Operand(0) != src {
        return nil, false
    }

    /* only two-lane vectors */
    if ty := src.Type(); !ty.IsVector() || ty.Lanes() != 2 {
        return nil, false
    }

    /* all matched */
    return &Bundle {
        Call  : ins,
        Lane0 : x,
        Lane1 : y,
        Mul   : mul,
        Src   : src,
    }, true
}
