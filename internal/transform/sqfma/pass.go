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

// Package sqfma folds the square of a two-lane vector's first lane, added
// to the squared second lane through llvm.fmuladd, into a plain lane-wise
// multiply followed by a scalar add.
package sqfma

import (
    `fmt`
    `io`
    `sync/atomic`

    `github.com/cloudwego/lanefold/internal/ir`
    `github.com/cloudwego/lanefold/internal/pass`
    `github.com/davecgh/go-spew/spew`
)

const Name = "sqfma"

var (
    RunCount     uint64
    MatchCount   uint64
    RewriteCount uint64
    EraseCount   uint64
)

// Pass runs the fold over every block of every function of a module.
type Pass struct {
    Diag  io.Writer
    Trace bool
}

func (self *Pass) Name() string {
    return Name
}

func (self *Pass) Run(m *ir.Module, _ *pass.AnalysisManager) pass.PreservedAnalyses {
    if self.Apply(m) {
        return pass.None()
    } else {
        return pass.All()
    }
}

// Apply rewrites every occurrence in `m` and reports whether anything
// changed.
func (self *Pass) Apply(m *ir.Module) (changed bool) {
    atomic.AddUint64(&RunCount, 1)

    /* scan every block of every function */
    for _, fn := range m.Funcs {
        for _, bb := range fn.Blocks {
            if self.block(fn, bb) {
                changed = true
            }
        }
    }

    /* all done */
    return
}

func (self *Pass) block(fn *ir.Function, bb *ir.BasicBlock) (changed bool) {
    var erase EraseSet

    /* new instructions are inserted while scanning, walk a copy */
    for _, ins := range bb.Snapshot() {
        if ins.Erased() || erase.Has(ins) {
            continue
        }

        /* match the idiom */
        b, ok := Match(ins)
        if !ok {
            continue
        }

        /* report before the call text changes */
        atomic.AddUint64(&MatchCount, 1)
        self.report(fn, bb, b)

        /* rewrite in place */
        if Rewrite(b, &erase) {
            changed = true
            atomic.AddUint64(&RewriteCount, 1)
        }
    }

    /* the block is done, drop the dead instructions */
    atomic.AddUint64(&EraseCount, uint64(erase.Drain()))
    return
}

type _TraceRecord struct {
    Call  string
    Lane0 string
    Lane1 string
    Mul   string
    Src   string
}

func (self *Pass) report(fn *ir.Function, bb *ir.BasicBlock, b *Bundle) {
    if self.Diag == nil {
        return
    }

    /* one line per match */
    fmt.Fprintf(self.Diag, "sqfma: matched %s in @%s/bb_%d\n", b.Call, fn.Name, bb.Id)

    /* dump the whole bundle in trace mode */
    if self.Trace {
        spew.Fdump(self.Diag, _TraceRecord {
            Call  : b.Call.String(),
            Lane0 : b.Lane0.String(),
            Lane1 : b.Lane1.String(),
            Mul   : b.Mul.String(),
            Src   : b.Src.String(),
        })
    }
}
