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

// EraseSet collects instructions that die once the current block has been
// scanned. They are erased in insertion order, so consumers must be added
// before their producers.
type EraseSet struct {
    order []*ir.Instr
    index map[*ir.Instr]struct{}
}

func (self *EraseSet) Add(ins *ir.Instr) {
    if self.index == nil {
        self.index = make(map[*ir.Instr]struct{})
    }

    /* ignore duplicates */
    if _, ok := self.index[ins]; !ok {
        self.index[ins] = struct{}{}
        self.order = append(self.order, ins)
    }
}

func (self *EraseSet) Has(ins *ir.Instr) bool {
    _, ok := self.index[ins]
    return ok
}

func (self *EraseSet) Len() int {
    return len(self.order)
}

// Drain erases every member and empties the set, returning how many
// instructions were erased.
func (self *EraseSet) Drain() int {
    n := len(self.order)
    for _, ins := range self.order {
        ins.Erase()
    }

    /* reset the set */
    self.order = self.order[:0]
    self.index = nil
    return n
}

// deadAfter reports whether every consumer of `ins` is already scheduled
// for erasure.
func deadAfter(ins *ir.Instr, erase *EraseSet) bool {
    for _, u := range ins.Users() {
        if !erase.Has(u) {
            return false
        }
    }
    return true
}

// Rewrite replaces the call of `b` with
//
//     %x' = extractelement %mul, 0
//     %r  = fadd %lane1, %x'
//
// inserted right before the call, and schedules the call (and the original
// lane-0 extraction once nothing else reads it) for erasure.
func Rewrite(b *Bundle, erase *EraseSet) bool {
    p := ir.NewBuilderBefore(b.Call)
    x := p.ExtractElement(b.Mul, 0)
    r := p.FAdd(b.Lane1, x)

    /* redirect every consumer of the call */
    b.Call.ReplaceAllUsesWith(r)
    erase.Add(b.Call)

    /* the lane-0 extraction may still be read elsewhere */
    if deadAfter(b.Lane0, erase) {
        erase.Add(b.Lane0)
    }
    return true
}
