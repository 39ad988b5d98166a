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
    `math`
    `sync`
)

type IntrinsicID uint8

const (
    NotIntrinsic IntrinsicID = iota
    FMulAdd
    FMA
    Sqrt
    Fabs
)

// Intrinsic describes a callee known to the compiler. Eval computes one lane
// of the result from the same lane of every argument.
type Intrinsic struct {
    ID    IntrinsicID
    Name  string
    Arity int
    Eval  func(args []float64) float64
}

// Mangle returns the overloaded name of the intrinsic for a given type,
// such as "llvm.fmuladd.f64" or "llvm.fmuladd.v2f64".
func (self *Intrinsic) Mangle(ty Type) string {
    return self.Name + "." + ty.suffix()
}

func (self *Intrinsic) String() string {
    return self.Name
}

type _IntrinsicTable struct {
    m    sync.RWMutex
    ids  map[IntrinsicID]*Intrinsic
    name map[string]*Intrinsic
}

func (self *_IntrinsicTable) add(fn *Intrinsic) {
    self.m.Lock()
    defer self.m.Unlock()

    /* check for duplications */
    if _, ok := self.ids[fn.ID]; ok {
        panic("ir: intrinsic registered twice: " + fn.Name)
    } else if _, ok = self.name[fn.Name]; ok {
        panic("ir: intrinsic registered twice: " + fn.Name)
    }

    /* add to both indexes */
    self.ids[fn.ID] = fn
    self.name[fn.Name] = fn
}

func (self *_IntrinsicTable) get(id IntrinsicID) (fn *Intrinsic) {
    self.m.RLock()
    fn = self.ids[id]
    self.m.RUnlock()
    return
}

func (self *_IntrinsicTable) find(name string) (fn *Intrinsic) {
    self.m.RLock()
    fn = self.name[name]
    self.m.RUnlock()
    return
}

var intrinsics = &_IntrinsicTable {
    ids  : make(map[IntrinsicID]*Intrinsic),
    name : make(map[string]*Intrinsic),
}

func init() {
    intrinsics.add(&Intrinsic { ID: FMulAdd, Name: "llvm.fmuladd", Arity: 3, Eval: func(v []float64) float64 { return math.FMA(v[0], v[1], v[2]) } })
    intrinsics.add(&Intrinsic { ID: FMA    , Name: "llvm.fma"    , Arity: 3, Eval: func(v []float64) float64 { return math.FMA(v[0], v[1], v[2]) } })
    intrinsics.add(&Intrinsic { ID: Sqrt   , Name: "llvm.sqrt"   , Arity: 1, Eval: func(v []float64) float64 { return math.Sqrt(v[0]) } })
    intrinsics.add(&Intrinsic { ID: Fabs   , Name: "llvm.fabs"   , Arity: 1, Eval: func(v []float64) float64 { return math.Abs(v[0]) } })
}

// LookupIntrinsic returns the intrinsic with the given ID, panicking if it is
// unknown.
func LookupIntrinsic(id IntrinsicID) *Intrinsic {
    if fn := intrinsics.get(id); fn == nil {
        panic("ir: invalid intrinsic ID")
    } else {
        return fn
    }
}

// FindIntrinsic looks an intrinsic up by its unmangled name.
func FindIntrinsic(name string) (*Intrinsic, bool) {
    fn := intrinsics.find(name)
    return fn, fn != nil
}

// RegisterIntrinsic adds a host-specific intrinsic.
func RegisterIntrinsic(fn *Intrinsic) {
    if fn.ID == NotIntrinsic || fn.Arity <= 0 || fn.Eval == nil {
        panic("ir: invalid intrinsic descriptor: " + fn.Name)
    }
    intrinsics.add(fn)
}
