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

package emu

import (
    `fmt`
    `math`
    `strconv`
    `strings`

    `github.com/cloudwego/lanefold/internal/ir`
)

// Value is a runtime value: floating-point scalars and vectors keep one
// float64 per lane, integers and booleans live in I.
type Value struct {
    Ty ir.Type
    F  []float64
    I  int64
}

func Scalar(ty ir.Type, v float64) Value {
    if ty.IsVector() || !ty.IsFloat() {
        panic("emu: not a floating-point scalar type: " + ty.String())
    }
    return Value { Ty: ty, F: []float64 { round(ty, v) } }
}

func Vector(ty ir.Type, lanes ...float64) Value {
    if !ty.IsVector() || !ty.IsFloat() {
        panic("emu: not a floating-point vector type: " + ty.String())
    } else if len(lanes) != ty.Lanes() {
        panic(fmt.Sprintf("emu: %s needs %d lane(s), got %d", ty, ty.Lanes(), len(lanes)))
    }

    /* round every lane to the element type */
    ret := Value { Ty: ty, F: make([]float64, len(lanes)) }
    for i, v := range lanes { ret.F[i] = round(ty, v) }
    return ret
}

func Int(v int64) Value {
    return Value { Ty: ir.I64, I: v }
}

func Bool(v bool) Value {
    if v {
        return Value { Ty: ir.I1, I: 1 }
    } else {
        return Value { Ty: ir.I1 }
    }
}

// Float returns the value of a floating-point scalar.
func (self Value) Float() float64 {
    if self.Ty.IsVector() || len(self.F) != 1 {
        panic("emu: not a scalar: " + self.Ty.String())
    }
    return self.F[0]
}

func (self Value) String() string {
    switch {
        case self.Ty == ir.Void     : return "void"
        case self.Ty == ir.I1       : return strconv.FormatBool(self.I != 0)
        case self.Ty == ir.I64      : return strconv.FormatInt(self.I, 10)
        case !self.Ty.IsVector()    : return formatFloat(self.Ty, self.F[0])
    }

    /* vectors */
    lanes := make([]string, len(self.F))
    for i, v := range self.F { lanes[i] = formatFloat(self.Ty, v) }
    return "<" + strings.Join(lanes, ", ") + ">"
}

func formatFloat(ty ir.Type, v float64) string {
    if ty.Elem() == ir.F32 {
        return strconv.FormatFloat(v, 'g', -1, 32)
    } else {
        return strconv.FormatFloat(v, 'g', -1, 64)
    }
}

// round narrows `v` to the precision of the element type of `ty`.
func round(ty ir.Type, v float64) float64 {
    if ty.Elem() == ir.F32 {
        return float64(float32(v))
    } else {
        return v
    }
}

// Parse reads a value of type `ty` from text: a plain number for scalars,
// comma-separated lanes (optionally in angle brackets) for vectors.
func Parse(ty ir.Type, s string) (Value, error) {
    s = strings.TrimSpace(s)

    /* integers and booleans */
    switch ty {
        case ir.I1: {
            v, err := strconv.ParseBool(s)
            return Bool(v), err
        }
        case ir.I64: {
            v, err := strconv.ParseInt(s, 10, 64)
            return Int(v), err
        }
    }

    /* floating-point scalars */
    if !ty.IsFloat() {
        return Value{}, fmt.Errorf("emu: cannot parse a value of type %s", ty)
    } else if !ty.IsVector() {
        v, err := strconv.ParseFloat(s, 64)
        return Value { Ty: ty, F: []float64 { round(ty, v) } }, err
    }

    /* vectors */
    s = strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
    fv := strings.Split(s, ",")

    /* check the lane count */
    if len(fv) != ty.Lanes() {
        return Value{}, fmt.Errorf("emu: %s needs %d lane(s), got %d", ty, ty.Lanes(), len(fv))
    }

    /* parse every lane */
    ret := Value { Ty: ty, F: make([]float64, len(fv)) }
    for i, v := range fv {
        f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
        if err != nil {
            return Value{}, err
        }
        ret.F[i] = round(ty, f)
    }
    return ret, nil
}

// ULPs returns the distance between `a` and `b` in units in the last place
// of the element type of `ty`. NaNs are infinitely far from everything.
func ULPs(ty ir.Type, a float64, b float64) uint64 {
    var ia int64
    var ib int64

    /* NaNs never compare */
    if math.IsNaN(a) || math.IsNaN(b) {
        return math.MaxUint64
    }

    /* take the bits in the element precision */
    if ty.Elem() == ir.F32 {
        ia = int64(int32(math.Float32bits(float32(a))))
        ib = int64(int32(math.Float32bits(float32(b))))
        if ia < 0 { ia = math.MinInt32 - ia }
        if ib < 0 { ib = math.MinInt32 - ib }
    } else {
        ia = int64(math.Float64bits(a))
        ib = int64(math.Float64bits(b))
        if ia < 0 { ia = math.MinInt64 - ia }
        if ib < 0 { ib = math.MinInt64 - ib }
    }

    /* absolute difference */
    if ia > ib {
        return uint64(ia - ib)
    } else {
        return uint64(ib - ia)
    }
}
