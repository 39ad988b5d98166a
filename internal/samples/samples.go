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

// Package samples builds small modules around the squared-lane idiom
//
//     %x = extractelement <2 x T> %v, 0
//     %m = fmul <2 x T> %v, %v
//     %y = extractelement <2 x T> %m, 1
//     %r = call T @llvm.fmuladd(T %x, T %x, T %y)
//
// together with near misses that must be left alone.
package samples

import (
    `github.com/cloudwego/lanefold/internal/ir`
)

// Idiom holds the instructions of one occurrence of the idiom.
type Idiom struct {
    Lane0 *ir.Instr
    Mul   *ir.Instr
    Lane1 *ir.Instr
    Call  *ir.Instr
}

// Emit appends one occurrence of the idiom over `v` at the builder's
// insertion point.
func Emit(p *ir.Builder, v ir.Value) Idiom {
    x := p.ExtractElement(v, 0)
    m := p.FMul(v, v)
    y := p.ExtractElement(m, 1)
    return Idiom { Lane0: x, Mul: m, Lane1: y, Call: p.Call(ir.FMulAdd, x, x, y) }
}

// Norm2 adds `T @name(<2 x T> %a0)` returning the squared length of %a0
// through the idiom.
func Norm2(m *ir.Module, name string, elem ir.Type) (*ir.Function, Idiom) {
    fn := m.NewFunction(name, elem, ir.Vec(elem, 2))
    p := ir.NewBuilder(fn.NewBlock())
    id := Emit(p, fn.Params[0])
    p.Ret(id.Call)
    return fn, id
}

// Twice adds a function with two independent occurrences in one block,
// summing both results.
func Twice(m *ir.Module, name string) *ir.Function {
    fn := m.NewFunction(name, ir.F64, ir.Vec(ir.F64, 2), ir.Vec(ir.F64, 2))
    p := ir.NewBuilder(fn.NewBlock())
    a := Emit(p, fn.Params[0])
    b := Emit(p, fn.Params[1])
    p.Ret(p.FAdd(a.Call, b.Call))
    return fn
}

// Shared adds a function whose lane-0 extraction also feeds an fsub, so it
// must outlive the rewrite.
func Shared(m *ir.Module, name string) *ir.Function {
    fn := m.NewFunction(name, ir.F64, ir.Vec(ir.F64, 2))
    p := ir.NewBuilder(fn.NewBlock())
    id := Emit(p, fn.Params[0])
    p.Ret(p.FSub(id.Call, id.Lane0))
    return fn
}

// Branchy adds a function that computes the lane values in the entry block
// and evaluates the idiom in one arm of a branch.
func Branchy(m *ir.Module, name string) *ir.Function {
    fn := m.NewFunction(name, ir.F64, ir.Vec(ir.F64, 2), ir.F64)
    entry, then, other := fn.NewBlock(), fn.NewBlock(), fn.NewBlock()

    /* entry: extract the lanes and branch on the threshold */
    p := ir.NewBuilder(entry)
    v := fn.Params[0]
    x := p.ExtractElement(v, 0)
    m2 := p.FMul(v, v)
    y := p.ExtractElement(m2, 1)
    p.CondBr(p.FCmp(ir.FCmpOGT, x, fn.Params[1]), then, other)

    /* then: the idiom */
    p.SetInsertPoint(then)
    p.Ret(p.Call(ir.FMulAdd, x, x, y))

    /* else: the threshold itself */
    p.SetInsertPoint(other)
    p.Ret(fn.Params[1])
    return fn
}

// Swapped adds a near miss that multiplies lane 1 by itself and adds lane 0
// of the product.
func Swapped(m *ir.Module, name string) *ir.Function {
    fn := m.NewFunction(name, ir.F64, ir.Vec(ir.F64, 2))
    p := ir.NewBuilder(fn.NewBlock())
    v := fn.Params[0]
    x := p.ExtractElement(v, 1)
    y := p.ExtractElement(p.FMul(v, v), 0)
    p.Ret(p.Call(ir.FMulAdd, x, x, y))
    return fn
}

// Strict adds the idiom written with the strict fma intrinsic.
func Strict(m *ir.Module, name string) *ir.Function {
    fn := m.NewFunction(name, ir.F64, ir.Vec(ir.F64, 2))
    p := ir.NewBuilder(fn.NewBlock())
    v := fn.Params[0]
    x := p.ExtractElement(v, 0)
    y := p.ExtractElement(p.FMul(v, v), 1)
    p.Ret(p.Call(ir.FMA, x, x, y))
    return fn
}

// Module returns the module written by `lanefold gen`.
func Module() *ir.Module {
    m := ir.NewModule("samples")
    Norm2(m, "norm2", ir.F64)
    Norm2(m, "norm2f", ir.F32)
    Twice(m, "twice")
    Shared(m, "shared")
    Branchy(m, "branchy")
    Swapped(m, "swapped")
    Strict(m, "strict")
    return m
}
