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

package pass

import (
    `sort`
    `strings`
    `sync/atomic`

    `github.com/cloudwego/lanefold/internal/ir`
)

type AnalysisKey string

// PreservedAnalyses is what a pass reports about the analysis results it
// kept valid.
type PreservedAnalyses struct {
    all  bool
    keys map[AnalysisKey]struct{}
}

// All means the pass changed nothing any analysis depends on.
func All() PreservedAnalyses {
    return PreservedAnalyses { all: true }
}

// None means every cached analysis result must be dropped.
func None() PreservedAnalyses {
    return PreservedAnalyses{}
}

func (self PreservedAnalyses) AreAllPreserved() bool {
    return self.all
}

func (self PreservedAnalyses) IsPreserved(key AnalysisKey) bool {
    if self.all {
        return true
    } else {
        _, ok := self.keys[key]
        return ok
    }
}

// Preserve returns a copy that also keeps `key`.
func (self PreservedAnalyses) Preserve(key AnalysisKey) PreservedAnalyses {
    if self.all {
        return self
    }

    /* copy the key set */
    ret := PreservedAnalyses { keys: make(map[AnalysisKey]struct{}, len(self.keys) + 1) }
    for k := range self.keys { ret.keys[k] = struct{}{} }

    /* add the new key */
    ret.keys[key] = struct{}{}
    return ret
}

// Intersect keeps only what both sides preserve.
func (self PreservedAnalyses) Intersect(other PreservedAnalyses) PreservedAnalyses {
    if self.all {
        return other
    } else if other.all {
        return self
    }

    /* keys present on both sides */
    ret := None()
    for k := range self.keys {
        if _, ok := other.keys[k]; ok {
            ret = ret.Preserve(k)
        }
    }
    return ret
}

func (self PreservedAnalyses) String() string {
    if self.all {
        return "all"
    } else if len(self.keys) == 0 {
        return "none"
    }

    /* sort the keys */
    keys := make([]string, 0, len(self.keys))
    for k := range self.keys { keys = append(keys, string(k)) }
    sort.Strings(keys)

    /* join them together */
    return "{" + strings.Join(keys, ", ") + "}"
}

// Analysis computes a per-function result that can be cached until a pass
// invalidates it.
type Analysis interface {
    Key() AnalysisKey
    Run(fn *ir.Function) interface{}
}

var (
    HitCount  uint64
    MissCount uint64
)

type _CacheKey struct {
    fn  *ir.Function
    key AnalysisKey
}

// AnalysisManager caches analysis results per function.
type AnalysisManager struct {
    impl  map[AnalysisKey]Analysis
    cache map[_CacheKey]interface{}
}

func NewAnalysisManager() *AnalysisManager {
    am := &AnalysisManager {
        impl  : make(map[AnalysisKey]Analysis),
        cache : make(map[_CacheKey]interface{}),
    }

    /* builtin analyses */
    am.Register(DominatorAnalysis{})
    am.Register(InstCountAnalysis{})
    return am
}

func (self *AnalysisManager) Register(a Analysis) {
    self.impl[a.Key()] = a
}

// Get returns the cached result for `fn`, computing it on a miss.
func (self *AnalysisManager) Get(key AnalysisKey, fn *ir.Function) interface{} {
    ck := _CacheKey { fn: fn, key: key }

    /* check for cached results */
    if v, ok := self.cache[ck]; ok {
        atomic.AddUint64(&HitCount, 1)
        return v
    }

    /* find the analysis */
    a, ok := self.impl[key]
    if !ok {
        panic("pass: unregistered analysis: " + string(key))
    }

    /* compute and cache the result */
    v := a.Run(fn)
    self.cache[ck] = v
    atomic.AddUint64(&MissCount, 1)
    return v
}

// Cached reports whether a result for `fn` is currently cached.
func (self *AnalysisManager) Cached(key AnalysisKey, fn *ir.Function) bool {
    _, ok := self.cache[_CacheKey { fn: fn, key: key }]
    return ok
}

// Invalidate drops every cached result that `pa` does not preserve.
func (self *AnalysisManager) Invalidate(pa PreservedAnalyses) {
    for ck := range self.cache {
        if !pa.IsPreserved(ck.key) {
            delete(self.cache, ck)
        }
    }
}

const (
    DominatorKey AnalysisKey = "domtree"
    InstCountKey AnalysisKey = "instcount"
)

// DominatorAnalysis computes ir.DominatorTree.
type DominatorAnalysis struct{}

func (DominatorAnalysis) Key() AnalysisKey                  { return DominatorKey }
func (DominatorAnalysis) Run(fn *ir.Function) interface{}   { return ir.BuildDominatorTree(fn) }

// InstCountAnalysis counts the instructions of a function by opcode.
type InstCountAnalysis struct{}

func (InstCountAnalysis) Key() AnalysisKey { return InstCountKey }

func (InstCountAnalysis) Run(fn *ir.Function) interface{} {
    ret := make(map[ir.OpCode]int)
    for _, bb := range fn.Blocks {
        for _, ins := range bb.Instrs() {
            ret[ins.Op]++
        }
    }
    return ret
}

func DominatorTreeOf(am *AnalysisManager, fn *ir.Function) ir.DominatorTree {
    return am.Get(DominatorKey, fn).(ir.DominatorTree)
}

func InstCountOf(am *AnalysisManager, fn *ir.Function) map[ir.OpCode]int {
    return am.Get(InstCountKey, fn).(map[ir.OpCode]int)
}
