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
    `bytes`
    `strings`
    `sync/atomic`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/lanefold/internal/emu`
    `github.com/cloudwego/lanefold/internal/ir`
    `github.com/cloudwego/lanefold/internal/opts`
    `github.com/cloudwego/lanefold/internal/pass`
    `github.com/cloudwego/lanefold/internal/samples`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/floats/scalar`
)

var v2f64 = ir.Vec(ir.F64, 2)

func opcodes(bb *ir.BasicBlock) []ir.OpCode {
    var ret []ir.OpCode
    for _, ins := range bb.Instrs() { ret = append(ret, ins.Op) }
    return ret
}

func TestMatch_Exact(t *testing.T) {
    m := ir.NewModule("test")
    fn, id := samples.Norm2(m, "norm2", ir.F64)
    b, ok := Match(id.Call)
    require.True(t, ok)
    assert.Equal(t, id.Call, b.Call)
    assert.Equal(t, id.Lane0, b.Lane0)
    assert.Equal(t, id.Lane1, b.Lane1)
    assert.Equal(t, id.Mul, b.Mul)
    assert.Equal(t, ir.Value(fn.Params[0]), b.Src)
    assert.Equal(t, 5, fn.Entry().Len(), "matching must not mutate")
}

func TestMatch_NoFalsePositives(t *testing.T) {
    tab := map[string]func(p *ir.Builder, v ir.Value, w ir.Value, i ir.Value) ir.Value {
        "strict fma": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMA, x, x, p.ExtractElement(p.FMul(v, v), 1))
        },
        "distinct multiplicands": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, p.ExtractElement(v, 0), p.ExtractElement(p.FMul(v, v), 1))
        },
        "multiplicand from lane 1": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 1)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(v, v), 1))
        },
        "addend from lane 0": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(v, v), 0))
        },
        "variable lane index": func(p *ir.Builder, v ir.Value, _ ir.Value, i ir.Value) ir.Value {
            x := p.ExtractElementAt(v, i)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(v, v), 1))
        },
        "addend not a product": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FAdd(v, v), 1))
        },
        "addend is the multiplicand": func(p *ir.Builder, v ir.Value, _ ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, x)
        },
        "product of two vectors": func(p *ir.Builder, v ir.Value, w ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(v, w), 1))
        },
        "square of another vector": func(p *ir.Builder, v ir.Value, w ir.Value, _ ir.Value) ir.Value {
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(w, w), 1))
        },
        "product of two other vectors": func(p *ir.Builder, v ir.Value, w ir.Value, _ ir.Value) ir.Value {
            u := p.Block().Parent().Params[3]
            x := p.ExtractElement(v, 0)
            return p.Call(ir.FMulAdd, x, x, p.ExtractElement(p.FMul(w, u), 1))
        },
    }
    for name, emit := range tab {
        t.Run(name, func(t *testing.T) {
            m := ir.NewModule("test")
            fn := m.NewFunction("f", ir.F64, v2f64, v2f64, ir.I64, v2f64)
            p := ir.NewBuilder(fn.NewBlock())
            p.Ret(emit(p, fn.Params[0], fn.Params[1], fn.Params[2]))
            before := m.String()
            for _, ins := range fn.Entry().Instrs() {
                _, ok := Match(ins)
                assert.False(t, ok, ins.String())
            }
            assert.Equal(t, pass.All(), new(Pass).Run(m, nil))
            assert.Equal(t, before, m.String())
        })
    }
}

func TestMatch_FourLanes(t *testing.T) {
    m := ir.NewModule("test")
    fn := m.NewFunction("f", ir.F64, ir.Vec(ir.F64, 4))
    id := samples.Emit(ir.NewBuilder(fn.NewBlock()), fn.Params[0])
    _, ok := Match(id.Call)
    assert.False(t, ok)
}

func TestMatch_Swapped(t *testing.T) {
    m := ir.NewModule("test")
    samples.Swapped(m, "swapped")
    assert.False(t, new(Pass).Apply(m))
}

func TestPass_RewritesOnce(t *testing.T) {
    m := ir.NewModule("test")
    fn, id := samples.Norm2(m, "norm2", ir.F64)
    bb := fn.Entry()
    pa := new(Pass).Run(m, pass.NewAnalysisManager())
    assert.Equal(t, "none", pa.String())
    require.NoError(t, ir.Verify(m))
    spew.Dump(opcodes(bb))

    /* check the new shape */
    assert.Equal(t, []ir.OpCode {
        ir.OP_fmul,
        ir.OP_extractelement,
        ir.OP_extractelement,
        ir.OP_fadd,
        ir.OP_ret,
    }, opcodes(bb))
    assert.True(t, id.Call.Erased())
    assert.True(t, id.Lane0.Erased())
    assert.False(t, id.Lane1.Erased())

    /* the sum is lane 1 plus lane 0 of the product */
    add := bb.Instrs()[3]
    assert.Equal(t, ir.Value(add), bb.Terminator().Operand(0))
    assert.Equal(t, ir.Value(id.Lane1), add.Operand(0))
    x := add.Operand(1).(*ir.Instr)
    assert.Equal(t, ir.Value(id.Mul), x.Operand(0))
    i, ok := x.ConstIndex()
    assert.True(t, ok)
    assert.Equal(t, int64(0), i)
}

func TestPass_Idempotent(t *testing.T) {
    m := samples.Module()
    p := new(Pass)
    assert.True(t, p.Apply(m))
    after := m.String()
    assert.Equal(t, pass.All(), p.Run(m, nil))
    assert.Equal(t, after, m.String())
}

func TestPass_TwoOccurrences(t *testing.T) {
    m := ir.NewModule("test")
    fn := samples.Twice(m, "twice")
    n := atomic.LoadUint64(&RewriteCount)
    assert.True(t, new(Pass).Apply(m))
    assert.Equal(t, n + 2, atomic.LoadUint64(&RewriteCount))
    require.NoError(t, ir.Verify(m))
    cnt := 0
    fn.ForEachInstr(func(ins *ir.Instr) {
        assert.False(t, ins.IsCallTo(ir.FMulAdd))
        if ins.Is(ir.OP_fadd) { cnt++ }
    })
    assert.Equal(t, 3, cnt)
}

func TestPass_SharedLane0(t *testing.T) {
    m := ir.NewModule("test")
    fn := samples.Shared(m, "shared")
    x := fn.Entry().Instrs()[0]
    assert.True(t, new(Pass).Apply(m))
    require.NoError(t, ir.Verify(m))
    assert.False(t, x.Erased())
    assert.Equal(t, 1, x.NumUses())
    assert.True(t, x.Users()[0].Is(ir.OP_fsub))
}

func TestPass_SharedLane0AcrossCalls(t *testing.T) {
    m := ir.NewModule("test")
    fn := m.NewFunction("f", ir.F64, v2f64)
    p := ir.NewBuilder(fn.NewBlock())
    id := samples.Emit(p, fn.Params[0])
    again := p.Call(ir.FMulAdd, id.Lane0, id.Lane0, id.Lane1)
    p.Ret(p.FMul(id.Call, again))
    assert.True(t, new(Pass).Apply(m))
    require.NoError(t, ir.Verify(m))
    assert.True(t, id.Lane0.Erased())
    assert.True(t, again.Erased())
}

func TestPass_CrossBlock(t *testing.T) {
    m := ir.NewModule("test")
    fn := samples.Branchy(m, "branchy")
    assert.True(t, new(Pass).Apply(m))
    require.NoError(t, ir.Verify(m))
    then := fn.Blocks[1]
    assert.Equal(t, []ir.OpCode{ir.OP_extractelement, ir.OP_fadd, ir.OP_ret}, opcodes(then))
    assert.Equal(t, 5, fn.Entry().Len(), "lane 0 still feeds the compare")
}

func TestPass_Diagnostics(t *testing.T) {
    buf := new(bytes.Buffer)
    m := ir.NewModule("test")
    samples.Norm2(m, "norm2", ir.F64)
    (&Pass { Diag: buf }).Apply(m)
    assert.Equal(t, "sqfma: matched %3 = call double @llvm.fmuladd.f64(double %0, double %0, double %2) in @norm2/bb_0\n", buf.String())
    buf.Reset()
    m = ir.NewModule("test")
    samples.Norm2(m, "norm2", ir.F64)
    (&Pass { Diag: buf, Trace: true }).Apply(m)
    assert.Equal(t, 1, strings.Count(buf.String(), "sqfma: matched"))
    assert.Contains(t, buf.String(), "Lane1:")
}

func TestPass_PreservesValues(t *testing.T) {
    fake := gofakeit.New(0x5eed)
    tol := map[ir.Type]float64 { ir.F32: 1e-6, ir.F64: 1e-12 }
    direct := map[string]bool { "norm2": true, "norm2f": true, "branchy": true }
    orig := samples.Module()
    fold := samples.Module()
    require.True(t, new(Pass).Apply(fold))
    require.NoError(t, ir.Verify(fold))
    for _, fn := range orig.Funcs {
        for i := 0; i < 200; i++ {
            args := make([]emu.Value, len(fn.Params))
            for j, a := range fn.Params {
                if a.Ty.IsVector() {
                    args[j] = emu.Vector(a.Ty, fake.Float64Range(-1e6, 1e6), fake.Float64Range(-1e6, 1e6))
                } else {
                    args[j] = emu.Scalar(a.Ty, fake.Float64Range(-1e6, 1e6))
                }
            }
            want, err := emu.Call(fn, args...)
            require.NoError(t, err)
            got, err := emu.Call(fold.Func(fn.Name), args...)
            require.NoError(t, err)
            if direct[fn.Name] {
                assert.LessOrEqual(t, emu.ULPs(fn.Ret, want.Float(), got.Float()), uint64(1), "@%s%v", fn.Name, args)
            }
            assert.True(t, scalar.EqualWithinAbsOrRel(want.Float(), got.Float(), 1e-300, tol[fn.Ret]), "@%s%v", fn.Name, args)
        }
    }
}

func TestPlugin_Registered(t *testing.T) {
    info, ok := pass.Lookup(Name)
    require.True(t, ok)
    assert.Equal(t, "v0.1", info.Version)
    assert.Equal(t, uint32(pass.PluginAPIVersion), info.APIVersion)

    /* pipeline start by default */
    core := &Pass{}
    pb := pass.NewPassBuilder(opts.Options{})
    pb.LoadPlugins()
    mpm := pb.BuildPipeline(pass.O2, core)
    assert.Equal(t, []string{Name, Name}, mpm.Names())
    assert.NotSame(t, core, mpm.Passes[0])

    /* optimizer last on request */
    pb = pass.NewPassBuilder(opts.Options { LateEP: true })
    pb.LoadPlugins()
    mpm = pb.BuildPipeline(pass.O2, core)
    assert.Same(t, core, mpm.Passes[0])
    assert.Len(t, mpm.Passes, 2)

    /* registering twice fails */
    assert.Error(t, pass.Register(PluginInfo()))
}
