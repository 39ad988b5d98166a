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

// Package tdce removes trivial dead code: instructions without side effects
// whose results are never read.
package tdce

import (
    `sync/atomic`

    `github.com/cloudwego/lanefold/internal/ir`
    `github.com/cloudwego/lanefold/internal/pass`
    `github.com/oleiade/lane`
)

const Name = "tdce"

var EraseCount uint64

// TDCE erases dead instructions until nothing else dies.
type TDCE struct{}

func (TDCE) Name() string {
    return Name
}

func (self TDCE) Run(m *ir.Module, _ *pass.AnalysisManager) pass.PreservedAnalyses {
    n := 0
    for _, fn := range m.Funcs {
        n += self.Apply(fn)
    }

    /* removing instructions never changes the CFG */
    if n == 0 {
        return pass.All()
    } else {
        return pass.None().Preserve(pass.DominatorKey)
    }
}

// removable reports whether `ins` can go once its result is unused. Every
// intrinsic is free of side effects.
func removable(ins *ir.Instr) bool {
    return !ins.Erased() && ins.NumUses() == 0 && (ins.Op.IsPure() || ins.Is(ir.OP_call))
}

// Apply erases the dead instructions of `fn` and returns how many it erased.
func (TDCE) Apply(fn *ir.Function) int {
    n := 0
    q := lane.NewQueue()

    /* Phase 1: collect the instructions that are dead right now */
    for _, bb := range ir.PostOrder(fn) {
        for _, ins := range bb.Instrs() {
            if removable(ins) {
                q.Enqueue(ins)
            }
        }
    }

    /* Phase 2: erase them, and whatever dies with them */
    for !q.Empty() {
        ins := q.Dequeue().(*ir.Instr)
        if !removable(ins) {
            continue
        }

        /* remember the producers before dropping the edges */
        args := ins.Operands()
        ins.Erase()
        n++

        /* producers that just lost their last consumer */
        for _, v := range args {
            if p, ok := v.(*ir.Instr); ok && removable(p) {
                q.Enqueue(p)
            }
        }
    }

    /* all done */
    atomic.AddUint64(&EraseCount, uint64(n))
    return n
}
