package store

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
)

type Kind uint8

const (
	FloatKind Kind = iota + 1
	IntKind
	VectorKind
)

// A Value is one feature of a row: a float, an integer count, or a fixed-length float vector.
type Value struct {
	Kind Kind      `cbor:"k"`
	F    float64   `cbor:"f,omitempty"`
	I    int64     `cbor:"i,omitempty"`
	V    []float64 `cbor:"v,omitempty"`
}

func Float(f float64) Value {
	return Value{Kind: FloatKind, F: f}
}

func Int(i int64) Value {
	return Value{Kind: IntKind, I: i}
}

// The vector is copied.
func Vector(v []float64) Value {
	return Value{Kind: VectorKind, V: slices.Clone(v)}
}

func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case FloatKind:
		return v.F == w.F || (math.IsNaN(v.F) && math.IsNaN(w.F))
	case IntKind:
		return v.I == w.I
	default:
		return slices.Equal(v.V, w.V)
	}
}

// The value as a plain Go value: float64, int64 or []any of float64.  Floats that JSON cannot
// represent become nil.
func (v Value) Interface() any {
	switch v.Kind {
	case FloatKind:
		return jsonFloat(v.F)
	case IntKind:
		return v.I
	case VectorKind:
		xs := make([]any, len(v.V))
		for i, x := range v.V {
			xs[i] = jsonFloat(x)
		}
		return xs
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func jsonFloat(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}

// The row as plain Go values, see Value.Interface.
func (r Row) Interface() map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v.Interface()
	}
	return m
}

// Textual form for tabular output; vectors are space-separated.
func (v Value) String() string {
	switch v.Kind {
	case FloatKind:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case IntKind:
		return strconv.FormatInt(v.I, 10)
	case VectorKind:
		xs := make([]string, len(v.V))
		for i, x := range v.V {
			xs[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return strings.Join(xs, " ")
	}
	return ""
}

// A Row maps feature names to values.  Every row the engine produces has a "timestamp" feature.
type Row map[string]Value

const TimestampFeature = "timestamp"
