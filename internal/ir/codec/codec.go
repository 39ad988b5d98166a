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

// Package codec serializes ir modules with the Thrift binary protocol.
package codec

import (
    `bytes`
    `context`
    `fmt`
    `io`

    `github.com/apache/thrift/lib/go/thrift`
    `github.com/cloudwego/lanefold/internal/ir`
)

/** Encoder **/

func encodeOperand(v ir.Value) wireOperand {
    switch x := v.(type) {
        case *ir.ConstInt   : return wireOperand { kind: _K_int, ty: int32(x.Ty), ival: x.V }
        case *ir.ConstFloat : return wireOperand { kind: _K_float, ty: int32(x.Ty), fval: x.V }
        case *ir.Argument   : return wireOperand { kind: _K_arg, ty: int32(x.Ty), ref: int32(x.Index) }
        case *ir.Instr      : return wireOperand { kind: _K_ref, ty: int32(x.Ty), ref: int32(x.Id) }
        default             : panic(fmt.Sprintf("codec: unknown value %T", v))
    }
}

func encodeInstr(ins *ir.Instr) wireInstr {
    ret := wireInstr {
        id   : int32(ins.Id),
        op   : int32(ins.Op),
        ty   : int32(ins.Ty),
        pred : int32(ins.Pred),
    }

    /* intrinsic calls */
    if ins.Fn != nil {
        ret.callee = ins.Fn.Name
    }

    /* operands */
    for _, v := range ins.Operands() {
        ret.args = append(ret.args, encodeOperand(v))
    }

    /* branch targets */
    for _, bb := range ins.Successors() {
        ret.succ = append(ret.succ, int32(bb.Id))
    }
    return ret
}

func encodeFunc(fn *ir.Function) wireFunc {
    ret := wireFunc {
        name : fn.Name,
        ret  : int32(fn.Ret),
    }

    /* parameter types */
    for _, p := range fn.Params {
        ret.params = append(ret.params, int32(p.Ty))
    }

    /* blocks in layout order */
    for _, bb := range fn.Blocks {
        wb := wireBlock { id: int32(bb.Id) }
        for _, ins := range bb.Instrs() { wb.instrs = append(wb.instrs, encodeInstr(ins)) }
        ret.blocks = append(ret.blocks, wb)
    }
    return ret
}

func encodeModule(m *ir.Module) *wireModule {
    ret := &wireModule { name: m.Name, magic: _Magic }
    for _, fn := range m.Funcs { ret.funcs = append(ret.funcs, encodeFunc(fn)) }
    return ret
}

// Encode writes `m` to `w` and flushes it.
func Encode(ctx context.Context, w io.Writer, m *ir.Module) error {
    tr := thrift.NewStreamTransportW(w)
    wr := &_Writer { p: thrift.NewTBinaryProtocolTransport(tr) }

    /* serialize the module */
    if wr.module(encodeModule(m)); wr.err != nil {
        return wr.err
    }

    /* flush the buffered bytes */
    return wr.p.Flush(ctx)
}

// Marshal returns the serialized form of `m`.
func Marshal(m *ir.Module) ([]byte, error) {
    mm := thrift.NewTMemoryBuffer()
    wr := &_Writer { p: thrift.NewTBinaryProtocolTransport(mm) }

    /* serialize the module */
    if wr.module(encodeModule(m)); wr.err != nil {
        return nil, wr.err
    } else {
        return mm.Bytes(), nil
    }
}

/** Decoder **/

func checkType(where string, v int32) (ir.Type, error) {
    ty := ir.Type(v)
    lanes, elem := ty.Lanes(), ty.Elem()

    /* scalar kinds */
    switch elem {
        case ir.Void, ir.I1, ir.I64, ir.F32, ir.F64 : break
        default                                     : return 0, eformat(where, "invalid type %#x", v)
    }

    /* vector shape */
    if v < 0 || int32(ty) != v || (lanes != 0 && (lanes < 2 || elem == ir.Void)) {
        return 0, eformat(where, "invalid type %#x", v)
    } else {
        return ty, nil
    }
}

type _Decoder struct {
    fn   *ir.Function
    defs map[int32]*ir.Instr
    bbs  map[int32]*ir.BasicBlock
}

func (self *_Decoder) operand(where string, v *wireOperand) (ir.Value, error) {
    ty, err := checkType(where, v.ty)
    if err != nil {
        return nil, err
    }

    /* resolve by kind */
    switch v.kind {
        case _K_int: {
            if ty != ir.I64 && ty != ir.I1 {
                return nil, eformat(where, "integer constant of type %s", ty)
            }
            return &ir.ConstInt { Ty: ty, V: v.ival }, nil
        }

        /* floating-point constants */
        case _K_float: {
            if !ty.IsFloat() {
                return nil, eformat(where, "float constant of type %s", ty)
            }
            return ir.Float(ty, v.fval), nil
        }

        /* function arguments */
        case _K_arg: {
            if v.ref < 0 || int(v.ref) >= len(self.fn.Params) {
                return nil, eformat(where, "argument out of range (%d)", v.ref)
            } else if arg := self.fn.Params[v.ref]; arg.Ty != ty {
                return nil, eformat(where, "argument %d has type %s, not %s", v.ref, arg.Ty, ty)
            } else {
                return arg, nil
            }
        }

        /* instruction results */
        case _K_ref: {
            if ins, ok := self.defs[v.ref]; !ok {
                return nil, eformat(where, "reference to undefined value %%%d", v.ref)
            } else if ins.Ty != ty {
                return nil, eformat(where, "%%%d has type %s, not %s", v.ref, ins.Ty, ty)
            } else {
                return ins, nil
            }
        }

        /* should not happen */
        default: {
            return nil, eformat(where, "invalid operand kind %d", v.kind)
        }
    }
}

// declare creates the blocks and the (operand-less) instructions, so that
// operands can refer forward in the second phase.
func (self *_Decoder) declare(wf *wireFunc) error {
    for _, wb := range wf.blocks {
        if _, ok := self.bbs[wb.id]; ok || wb.id < 0 {
            return eformat("@" + wf.name, "invalid or duplicated block id %d", wb.id)
        }

        /* create the block */
        bb := self.fn.NewNumberedBlock(int(wb.id))
        self.bbs[wb.id] = bb

        /* create every instruction */
        for _, wi := range wb.instrs {
            where := fmt.Sprintf("@%s/bb_%d/%%%d", wf.name, wb.id, wi.id)
            ty, err := checkType(where, wi.ty)

            /* check for type and opcode */
            if err != nil {
                return err
            } else if wi.op <= int32(ir.OP_invalid) || wi.op > int32(ir.OP_ret) {
                return eformat(where, "invalid opcode %d", wi.op)
            } else if _, ok := self.defs[wi.id]; ok || wi.id < 0 {
                return eformat(where, "invalid or duplicated value id")
            }

            /* create the instruction */
            ins := ir.NewInstr(ir.OpCode(wi.op), ty)
            ins.Id = int(wi.id)
            ins.Pred = ir.FCmpPred(wi.pred)

            /* resolve the callee */
            if ins.Op == ir.OP_call {
                if fn, ok := ir.FindIntrinsic(wi.callee); !ok {
                    return eformat(where, "unknown intrinsic %q", wi.callee)
                } else if len(wi.args) != fn.Arity {
                    return eformat(where, "%s takes %d argument(s), got %d", fn.Name, fn.Arity, len(wi.args))
                } else {
                    ins.Fn = fn
                }
            }

            /* add to the block */
            self.defs[wi.id] = bb.Append(ins)
        }
    }
    return nil
}

// define resolves operands and branch targets.
func (self *_Decoder) define(wf *wireFunc) error {
    for _, wb := range wf.blocks {
        bb := self.bbs[wb.id]

        /* resolve the operands */
        for _, wi := range wb.instrs {
            args := make([]ir.Value, len(wi.args))
            where := fmt.Sprintf("@%s/bb_%d/%%%d", wf.name, wb.id, wi.id)

            /* every operand */
            for i := range wi.args {
                v, err := self.operand(where, &wi.args[i])
                if err != nil {
                    return err
                }
                args[i] = v
            }

            /* attach them */
            self.defs[wi.id].SetOperands(args...)
        }

        /* branch targets */
        if tr := bb.Terminator(); tr != nil {
            succ := wb.instrs[len(wb.instrs) - 1].succ
            targets := make([]*ir.BasicBlock, len(succ))

            /* resolve every target */
            for i, id := range succ {
                if targets[i] = self.bbs[id]; targets[i] == nil {
                    return eformat(fmt.Sprintf("@%s/bb_%d", wf.name, wb.id), "branch to undefined block %d", id)
                }
            }

            /* check for successor count */
            if (tr.Op == ir.OP_br && len(succ) != 1) || (tr.Op == ir.OP_condbr && len(succ) != 2) || (tr.Op == ir.OP_ret && len(succ) != 0) {
                return eformat(fmt.Sprintf("@%s/bb_%d", wf.name, wb.id), "%s with %d successor(s)", tr.Op, len(succ))
            }

            /* link the blocks */
            bb.SetSuccessors(targets...)
        }
    }
    return nil
}

func decodeFunc(m *ir.Module, wf *wireFunc) error {
    rt, err := checkType("@" + wf.name, wf.ret)
    if err != nil {
        return err
    }

    /* parameter types */
    params := make([]ir.Type, len(wf.params))
    for i, v := range wf.params {
        if params[i], err = checkType("@" + wf.name, v); err != nil {
            return err
        }
    }

    /* two phases: declare everything, then link operands */
    dec := &_Decoder {
        fn   : m.NewFunction(wf.name, rt, params...),
        defs : make(map[int32]*ir.Instr),
        bbs  : make(map[int32]*ir.BasicBlock),
    }

    /* declare the values */
    if err = dec.declare(wf); err != nil {
        return err
    }

    /* link the operands */
    if err = dec.define(wf); err != nil {
        return err
    }

    /* the result must be well-formed */
    if err = ir.VerifyFunction(dec.fn); err != nil {
        return FormatError { Where: "@" + wf.name, Reason: "malformed function", Err: err }
    }
    return nil
}

// Unmarshal decodes a module serialized by Marshal or Encode.
func Unmarshal(data []byte) (*ir.Module, error) {
    var wm wireModule
    mm := thrift.NewTMemoryBuffer()

    /* load the data */
    if _, err := mm.Write(data); err != nil {
        return nil, err
    }

    /* parse the wire format */
    rd := _Reader { p: thrift.NewTBinaryProtocolTransport(mm) }
    if err := rd.module(&wm); err != nil {
        if _, ok := err.(FormatError); ok {
            return nil, err
        } else {
            return nil, ewire("module", err)
        }
    }

    /* check the magic number */
    if wm.magic != _Magic {
        return nil, eformat("module", "bad magic number %#x", wm.magic)
    }

    /* convert every function */
    m := ir.NewModule(wm.name)
    for i := range wm.funcs {
        if m.Func(wm.funcs[i].name) != nil {
            return nil, eformat("@" + wm.funcs[i].name, "duplicated function")
        } else if err := decodeFunc(m, &wm.funcs[i]); err != nil {
            return nil, err
        }
    }
    return m, nil
}

// Decode reads a whole module from `r`.
func Decode(r io.Reader) (*ir.Module, error) {
    var buf bytes.Buffer
    if _, err := buf.ReadFrom(r); err != nil {
        return nil, err
    } else {
        return Unmarshal(buf.Bytes())
    }
}
