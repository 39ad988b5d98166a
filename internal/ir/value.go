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
    `strconv`
)

// Value is anything an instruction can take as an operand. The set of
// implementations is closed: constants, function arguments and instructions.
type Value interface {
    fmt.Stringer
    Type() Type
    Ref() string
    irvalue()
}

func (*ConstInt)   irvalue() {}
func (*ConstFloat) irvalue() {}
func (*Argument)   irvalue() {}
func (*Instr)      irvalue() {}

// Use is a single edge of the def-use graph, seen from the producer: operand
// `Index` of `User` refers to the producer.
type Use struct {
    User  *Instr
    Index int
}

type _Tracked interface {
    Value
    Uses() []Use
    addUse(u Use)
    dropUse(u Use)
}

// useList is the reverse index of a producer. It is only ever changed by
// the graph itself, when an operand slot is rewritten.
type useList struct {
    uses []Use
}

func (self *useList) addUse(u Use) {
    self.uses = append(self.uses, u)
}

func (self *useList) dropUse(u Use) {
    for i, v := range self.uses {
        if v == u {
            self.uses = append(self.uses[:i], self.uses[i + 1:]...)
            return
        }
    }
    panic(fmt.Sprintf("ir: use edge not found: operand %d of %s", u.Index, u.User))
}

// Uses returns a copy of the use edges pointing at this value.
func (self *useList) Uses() []Use {
    return append([]Use(nil), self.uses...)
}

func (self *useList) NumUses() int {
    return len(self.uses)
}

// Users returns the distinct instructions consuming this value, in the order
// they first started using it.
func (self *useList) Users() []*Instr {
    ret := make([]*Instr, 0, len(self.uses))
    set := make(map[*Instr]struct{}, len(self.uses))

    /* deduplicate users that refer to the value more than once */
    for _, u := range self.uses {
        if _, ok := set[u.User]; !ok {
            set[u.User] = struct{}{}
            ret = append(ret, u.User)
        }
    }
    return ret
}

// ConstInt is an integer constant. Constants are not tracked in the use index.
type ConstInt struct {
    Ty Type
    V  int64
}

func Int(v int64) *ConstInt {
    return &ConstInt { Ty: I64, V: v }
}

func (self *ConstInt) Type() Type     { return self.Ty }
func (self *ConstInt) Ref()  string   { return strconv.FormatInt(self.V, 10) }
func (self *ConstInt) String() string { return fmt.Sprintf("%s %d", self.Ty, self.V) }

// ConstFloat is a floating-point constant. With a vector type it stands for
// the splat of V across every lane.
type ConstFloat struct {
    Ty Type
    V  float64
}

func Float(ty Type, v float64) *ConstFloat {
    if !ty.IsFloat() {
        panic("ir: not a floating-point type: " + ty.String())
    }
    return &ConstFloat { Ty: ty, V: v }
}

func (self *ConstFloat) Type() Type { return self.Ty }

func (self *ConstFloat) Ref() string {
    if s := strconv.FormatFloat(self.V, 'g', -1, 64); self.Ty.IsVector() {
        return fmt.Sprintf("splat (%s %s)", self.Ty.Elem(), s)
    } else {
        return s
    }
}

func (self *ConstFloat) String() string {
    return fmt.Sprintf("%s %s", self.Ty, self.Ref())
}

// Argument is a formal parameter of a function.
type Argument struct {
    useList
    Name  string
    Index int
    Ty    Type
    fn    *Function
}

func (self *Argument) Type() Type        { return self.Ty }
func (self *Argument) Ref() string       { return "%" + self.Name }
func (self *Argument) String() string    { return fmt.Sprintf("%s %%%s", self.Ty, self.Name) }
func (self *Argument) Parent() *Function { return self.fn }

func track(v Value, user *Instr, i int) {
    if p, ok := v.(_Tracked); ok {
        p.addUse(Use { User: user, Index: i })
    }
}

func untrack(v Value, user *Instr, i int) {
    if p, ok := v.(_Tracked); ok {
        p.dropUse(Use { User: user, Index: i })
    }
}

// ReplaceAllUsesWith rewires every use edge of `from` to `to` in one step.
// Afterwards `from` has no uses left.
func ReplaceAllUsesWith(from Value, to Value) {
    var ok bool
    var src _Tracked

    /* constants have no use index */
    if src, ok = from.(_Tracked); !ok {
        panic("ir: cannot replace uses of an untracked value: " + from.String())
    }

    /* sanity checks */
    if from == to {
        panic("ir: replacing a value with itself: " + from.String())
    } else if from.Type() != to.Type() {
        panic(fmt.Sprintf("ir: type mismatch replacing %s with %s", from.Type(), to.Type()))
    }

    /* rewrite every operand slot, the use list shrinks as we go */
    for _, u := range src.Uses() {
        u.User.SetOperand(u.Index, to)
    }
}
