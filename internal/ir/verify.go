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

// VerifyError describes the first broken invariant found in a module.
type VerifyError struct {
    Func   string
    Block  int
    Instr  string
    Reason string
}

func (self *VerifyError) Error() string {
    if self.Instr != "" {
        return fmt.Sprintf("verify: @%s/bb_%d: %s: %s", self.Func, self.Block, self.Instr, self.Reason)
    } else {
        return fmt.Sprintf("verify: @%s/bb_%d: %s", self.Func, self.Block, self.Reason)
    }
}

type _Verifier struct {
    fn  *Function
    dom DominatorTree
    pos map[*Instr]int
}

// Verify checks the structural integrity of a module: every block ends in
// exactly one terminator, every operand edge has a matching use edge and
// vice versa, and every definition dominates its uses.
func Verify(m *Module) error {
    for _, fn := range m.Funcs {
        if err := VerifyFunction(fn); err != nil {
            return err
        }
    }
    return nil
}

func VerifyFunction(fn *Function) error {
    v := &_Verifier {
        fn  : fn,
        dom : BuildDominatorTree(fn),
        pos : make(map[*Instr]int, fn.NumInstrs()),
    }

    /* index every instruction by position */
    for _, bb := range fn.Blocks {
        for i, ins := range bb.ins {
            v.pos[ins] = i
        }
    }

    /* check the arguments */
    for _, arg := range fn.Params {
        for _, u := range arg.uses {
            if _, ok := v.pos[u.User]; !ok {
                return v.fail(nil, nil, fmt.Sprintf("argument %%%s is used by a detached instruction", arg.Name))
            } else if u.User.args[u.Index] != Value(arg) {
                return v.fail(u.User.bb, u.User, fmt.Sprintf("stale use edge of argument %%%s", arg.Name))
            }
        }
    }

    /* check every block */
    for _, bb := range fn.Blocks {
        if err := v.block(bb); err != nil {
            return err
        }
    }
    return nil
}

func (self *_Verifier) fail(bb *BasicBlock, ins *Instr, reason string) error {
    err := &VerifyError {
        Func   : self.fn.Name,
        Block  : -1,
        Reason : reason,
    }

    /* attach the location if any */
    if bb != nil {
        err.Block = bb.Id
    }
    if ins != nil {
        err.Instr = ins.Ref()
    }
    return err
}

func (self *_Verifier) block(bb *BasicBlock) error {
    n := len(bb.ins)

    /* check the block ownership */
    if bb.fn != self.fn {
        return self.fail(bb, nil, "block belongs to another function")
    } else if n == 0 {
        return self.fail(bb, nil, "empty block")
    } else if !bb.ins[n - 1].IsTerminator() {
        return self.fail(bb, nil, "block does not end with a terminator")
    }

    /* check every instruction */
    for i, ins := range bb.ins {
        if ins.bb != bb || ins.erased {
            return self.fail(bb, ins, "instruction is not owned by its block")
        } else if ins.IsTerminator() && i != n - 1 {
            return self.fail(bb, ins, "terminator in the middle of a block")
        } else if err := self.operands(bb, ins); err != nil {
            return err
        } else if reason := ins.signature(); reason != "" {
            return self.fail(bb, ins, reason)
        } else if reason = self.returns(ins); reason != "" {
            return self.fail(bb, ins, reason)
        } else if err = self.uses(bb, ins); err != nil {
            return err
        }
    }

    /* check the successor edges */
    for _, p := range bb.Successors() {
        if p.fn != self.fn {
            return self.fail(bb, bb.Terminator(), "branch to a block of another function")
        }
    }
    return nil
}

func (self *_Verifier) operands(bb *BasicBlock, ins *Instr) error {
    for i, v := range ins.args {
        switch p := v.(type) {
            case nil: {
                return self.fail(bb, ins, fmt.Sprintf("operand %d is nil", i))
            }

            /* arguments must belong to this function */
            case *Argument: {
                if p.fn != self.fn {
                    return self.fail(bb, ins, fmt.Sprintf("operand %d is an argument of another function", i))
                } else if !hasUse(p.uses, ins, i) {
                    return self.fail(bb, ins, fmt.Sprintf("operand %d has no matching use edge", i))
                }
            }

            /* instructions must be live, indexed and dominate this use */
            case *Instr: {
                if _, ok := self.pos[p]; !ok || p.erased {
                    return self.fail(bb, ins, fmt.Sprintf("operand %d refers to an erased or foreign instruction %s", i, p.Ref()))
                } else if !hasUse(p.uses, ins, i) {
                    return self.fail(bb, ins, fmt.Sprintf("operand %d has no matching use edge", i))
                } else if !self.dominates(p, ins) {
                    return self.fail(bb, ins, fmt.Sprintf("operand %d (%s) does not dominate its use", i, p.Ref()))
                }
            }
        }
    }
    return nil
}

func (self *_Verifier) returns(ins *Instr) string {
    if !ins.Is(OP_ret) {
        return ""
    } else if len(ins.args) == 0 && self.fn.Ret != Void {
        return "missing return value of type " + self.fn.Ret.String()
    } else if len(ins.args) == 1 && ins.args[0].Type() != self.fn.Ret {
        return fmt.Sprintf("returning %s from function of type %s", ins.args[0].Type(), self.fn.Ret)
    } else {
        return ""
    }
}

func (self *_Verifier) uses(bb *BasicBlock, ins *Instr) error {
    for _, u := range ins.uses {
        if _, ok := self.pos[u.User]; !ok || u.User.erased {
            return self.fail(bb, ins, "used by an erased or foreign instruction " + u.User.Ref())
        } else if u.Index >= len(u.User.args) || u.User.args[u.Index] != Value(ins) {
            return self.fail(bb, ins, "stale use edge from " + u.User.Ref())
        }
    }
    return nil
}

func (self *_Verifier) dominates(def *Instr, use *Instr) bool {
    if def.bb == use.bb {
        return self.pos[def] < self.pos[use]
    } else if !self.dom.Reachable(use.bb) {
        return true
    } else {
        return self.dom.Dominates(def.bb, use.bb)
    }
}

func hasUse(uses []Use, user *Instr, i int) bool {
    for _, u := range uses {
        if u.User == user && u.Index == i {
            return true
        }
    }
    return false
}
