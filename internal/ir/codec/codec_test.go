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
    `bytes`
    `context`
    `errors`
    `testing`

    `github.com/apache/thrift/lib/go/thrift`
    `github.com/cloudwego/lanefold/internal/ir`
    `github.com/cloudwego/lanefold/internal/samples`
    `github.com/cloudwego/lanefold/internal/transform/sqfma`
    `github.com/google/go-cmp/cmp`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestCodec_RoundTrip(t *testing.T) {
    m := samples.Module()
    buf := new(bytes.Buffer)
    require.NoError(t, Encode(context.Background(), buf, m))
    m2, err := Decode(buf)
    require.NoError(t, err)
    if diff := cmp.Diff(m.String(), m2.String()); diff != "" {
        t.Fatalf("module changed across the round trip (-want +got):\n%s", diff)
    }
    require.NoError(t, ir.Verify(m2))
}

func TestCodec_RoundTripAfterRewrite(t *testing.T) {
    m := samples.Module()
    require.True(t, new(sqfma.Pass).Apply(m))
    data, err := Marshal(m)
    require.NoError(t, err)
    m2, err := Unmarshal(data)
    require.NoError(t, err)
    assert.Equal(t, m.String(), m2.String(), "value numbers must survive the gaps left by erased instructions")

    /* new values must not collide with decoded ones */
    fn := m2.Func("norm2")
    ins := ir.NewBuilderBefore(fn.Entry().Terminator()).FNeg(fn.Entry().Terminator().Operand(0))
    for _, v := range fn.Entry().Instrs()[:fn.Entry().Len() - 2] {
        assert.NotEqual(t, v.Id, ins.Id)
    }
}

func TestCodec_Decoded(t *testing.T) {
    m := samples.Module()
    data, err := Marshal(m)
    require.NoError(t, err)
    m2, err := Unmarshal(data)
    require.NoError(t, err)
    fn := m2.Func("branchy")
    require.NotNil(t, fn)
    assert.Len(t, fn.Blocks, 3)
    assert.Len(t, fn.Blocks[1].Pred, 1)
    assert.Equal(t, fn.Entry(), fn.Blocks[2].Pred[0])
    call := fn.Blocks[1].Instrs()[0]
    assert.True(t, call.IsCallTo(ir.FMulAdd))
    assert.Equal(t, 3, call.Operand(0).(*ir.Instr).NumUses(), "lane 0 feeds the compare and both multiplicands")
}

func TestCodec_Garbage(t *testing.T) {
    var fe FormatError
    _, err := Unmarshal([]byte("definitely not a module"))
    require.Error(t, err)
    _, err = Unmarshal(nil)
    require.Error(t, err)

    /* truncated input */
    data, err := Marshal(samples.Module())
    require.NoError(t, err)
    _, err = Unmarshal(data[:len(data) / 2])
    require.Error(t, err)
    assert.True(t, errors.As(err, &fe))

    /* no magic */
    mm := thrift.NewTMemoryBuffer()
    wr := &_Writer { p: thrift.NewTBinaryProtocolTransport(mm) }
    wr.object("Module", func() { wr.str("name", 1, "x") })
    require.NoError(t, wr.err)
    _, err = Unmarshal(mm.Bytes())
    require.True(t, errors.As(err, &fe))
    assert.Contains(t, fe.Reason, "magic")
}

func encodeWire(t *testing.T, wm *wireModule) []byte {
    mm := thrift.NewTMemoryBuffer()
    wr := &_Writer { p: thrift.NewTBinaryProtocolTransport(mm) }
    wm.magic = _Magic
    wr.module(wm)
    require.NoError(t, wr.err)
    return mm.Bytes()
}

func TestCodec_Malformed(t *testing.T) {
    f64 := int32(ir.F64)
    ret := wireInstr { id: 1, op: int32(ir.OP_ret), ty: int32(ir.Void), args: []wireOperand {{ kind: _K_ref, ty: f64, ref: 0 }} }
    tab := map[string]wireInstr {
        "invalid opcode"        : { id: 0, op: 99, ty: f64 },
        "invalid type"          : { id: 0, op: int32(ir.OP_fneg), ty: 0x7777 },
        "unknown intrinsic"     : { id: 0, op: int32(ir.OP_call), ty: f64, callee: "llvm.nope" },
        "undefined value"       : { id: 0, op: int32(ir.OP_fneg), ty: f64, args: []wireOperand {{ kind: _K_ref, ty: f64, ref: 9 }} },
        "argument out of range" : { id: 0, op: int32(ir.OP_fneg), ty: f64, args: []wireOperand {{ kind: _K_arg, ty: f64, ref: 3 }} },
        "malformed function"    : { id: 0, op: int32(ir.OP_fneg), ty: f64, args: []wireOperand {{ kind: _K_ref, ty: f64, ref: 0 }} },
    }
    for name, wi := range tab {
        data := encodeWire(t, &wireModule { name: "bad", funcs: []wireFunc {{
            name   : "f",
            ret    : f64,
            params : []int32 { f64 },
            blocks : []wireBlock {{ id: 0, instrs: []wireInstr { wi, ret } }},
        }}})
        _, err := Unmarshal(data)
        var fe FormatError
        require.True(t, errors.As(err, &fe), name)
        assert.Contains(t, fe.Error(), name)
    }
}
