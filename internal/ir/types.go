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

// Type is a scalar kind packed together with a lane count. A lane count of
// zero means the type is a scalar.
type Type uint16

const (
    _B_lanes = 8
    _M_elem  = 0xff
)

const (
    Void Type = iota
    I1
    I64
    F32
    F64
)

// Vec returns the fixed-width vector type of `lanes` elements of `elem`.
func Vec(elem Type, lanes int) Type {
    if elem == Void || elem.IsVector() {
        panic("ir: invalid vector element type: " + elem.String())
    } else if lanes < 2 || lanes > 0xff {
        panic(fmt.Sprintf("ir: invalid lane count: %d", lanes))
    } else {
        return Type(lanes << _B_lanes) | elem
    }
}

func (self Type) Lanes() int {
    return int(self >> _B_lanes)
}

func (self Type) Elem() Type {
    return self & _M_elem
}

func (self Type) IsVector() bool {
    return self.Lanes() != 0
}

func (self Type) IsFloat() bool {
    switch self.Elem() {
        case F32, F64 : return true
        default       : return false
    }
}

// Width returns the number of scalar slots a value of this type occupies.
func (self Type) Width() int {
    if self.IsVector() {
        return self.Lanes()
    } else {
        return 1
    }
}

func (self Type) suffix() string {
    switch {
        case self.IsVector() : return fmt.Sprintf("v%d%s", self.Lanes(), self.Elem().suffix())
        case self == F32     : return "f32"
        case self == F64     : return "f64"
        case self == I64     : return "i64"
        case self == I1      : return "i1"
        default              : panic("ir: type has no mangled suffix: " + self.String())
    }
}

func (self Type) String() string {
    if self.IsVector() {
        return fmt.Sprintf("<%d x %s>", self.Lanes(), self.Elem())
    }

    /* scalar types */
    switch self {
        case Void : return "void"
        case I1   : return "i1"
        case I64  : return "i64"
        case F32  : return "float"
        case F64  : return "double"
        default   : return fmt.Sprintf("type(%#x)", uint16(self))
    }
}
