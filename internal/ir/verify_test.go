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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func verifyError(t *testing.T, fn *Function) *VerifyError {
    err := VerifyFunction(fn)
    require.Error(t, err)
    ve, ok := err.(*VerifyError)
    require.True(t, ok, "unexpected error type %T", err)
    t.Log(ve.Error())
    return ve
}

func TestVerify_MissingTerminator(t *testing.T) {
    m := NewModule("test")
    fn := m.NewFunction("f", F64, F64)
    p := NewBuilder(fn.NewBlock())
    p.FNeg(fn.Params[0])
    ve := verifyError(t, fn)
    assert.Equal(t, "block does not end with a terminator", ve.Reason)
    fn.NewBlock()
    p.Ret(fn.Params[0])
    ve = verifyError(t, fn)
    assert.Equal(t, "empty block", ve.Reason)
    assert.Equal(t, 1, ve.Block)
}

func TestVerify_UseBeforeDef(t *testing.T) {
    fn, x, y, _ := buildSquare(t)
    p := NewBuilderBefore(x)
    z := p.FAdd(y, y)
    ve := verifyError(t, fn)
    assert.Equal(t, z.Ref(), ve.Instr)
    assert.Contains(t, ve.Reason, "does not dominate")
}

func TestVerify_CrossBlockDominance(t *testing.T) {
    m := NewModule("test")
    fn := m.NewFunction("f", F64, F64)
    a, b, c, d := fn.NewBlock(), fn.NewBlock(), fn.NewBlock(), fn.NewBlock()
    p := NewBuilder(a)
    p.CondBr(p.FCmp(FCmpOGT, fn.Params[0], Float(F64, 1)), b, c)
    p.SetInsertPoint(b)
    v := p.FMul(fn.Params[0], fn.Params[0])
    p.Br(d)
    p.SetInsertPoint(c)
    p.Br(d)
    p.SetInsertPoint(d)
    p.Ret(v)
    ve := verifyError(t, fn)
    assert.Equal(t, 3, ve.Block)
    assert.Contains(t, ve.Reason, "does not dominate")
}

func TestVerify_ErasedOperand(t *testing.T) {
    fn, x, y, _ := buildSquare(t)
    x.uses = nil
    x.Erase()
    ve := verifyError(t, fn)
    assert.Equal(t, y.Ref(), ve.Instr)
}

func TestVerify_StaleUseEdge(t *testing.T) {
    fn, x, _, ret := buildSquare(t)
    x.uses = append(x.uses, Use { User: ret, Index: 0 })
    ve := verifyError(t, fn)
    assert.Equal(t, x.Ref(), ve.Instr)
    assert.Contains(t, ve.Reason, "stale use edge")
}

func TestVerify_Unreachable(t *testing.T) {
    m := NewModule("test")
    fn := m.NewFunction("f", F64, F64)
    a, b := fn.NewBlock(), fn.NewBlock()
    p := NewBuilder(a)
    p.Ret(fn.Params[0])
    p.SetInsertPoint(b)
    p.Ret(p.FNeg(fn.Params[0]))
    require.NoError(t, Verify(m))
}

func TestVerify_Signatures(t *testing.T) {
    tab := []struct {
        reason string
        build  func(fn *Function) *Instr
    } {
        { "fadd operands must all be double", func(fn *Function) *Instr { return NewInstr(OP_fadd, F64, fn.Params[0], fn.Params[1]) } },
        { "fneg takes 1 operand", func(fn *Function) *Instr { return NewInstr(OP_fneg, F64) } },
        { "extractelement reads an element of a vector with an i64 index", func(fn *Function) *Instr { return NewInstr(OP_extractelement, F64, fn.Params[0], Int(0)) } },
        { "lane 2 out of range", func(fn *Function) *Instr { return NewInstr(OP_extractelement, F64, fn.Params[2], Int(2)) } },
        { "call with a bad callee or argument count", func(fn *Function) *Instr { return NewInstr(OP_call, F64, fn.Params[0]) } },
    }
    for _, tc := range tab {
        m := NewModule("test")
        fn := m.NewFunction("f", F64, F64, F32, Vec(F64, 2))
        bb := fn.NewBlock()
        ins := bb.Append(tc.build(fn))
        NewBuilder(bb).Ret(fn.Params[0])
        ve := verifyError(t, fn)
        assert.Equal(t, ins.Ref(), ve.Instr)
        assert.Equal(t, tc.reason, ve.Reason)
    }
}

func TestVerify_ReturnType(t *testing.T) {
    m := NewModule("test")
    fn := m.NewFunction("f", F64, F32)
    fn.NewBlock().Append(NewInstr(OP_ret, Void, fn.Params[0]))
    ve := verifyError(t, fn)
    assert.Equal(t, "returning float from function of type double", ve.Reason)
}
