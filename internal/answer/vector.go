// Package answer holds the fixed 84-slot answer vector and its coercion rules.
package answer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Slots is the number of structured questions in a monthly report.
const Slots = 84

// Vector is the positional form of a report's answers: slot i holds q{i+1}.
type Vector [Slots]float64

// SlotKey returns the storage key of slot i, e.g. SlotKey(0) == "q1".
func SlotKey(i int) string {
	return "q" + strconv.Itoa(i+1)
}

// SlotIndex parses a storage key back to its slot. ok is false for keys outside
// q1..q84.
func SlotIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, "q") {
		return 0, false
	}
	n, err := strconv.Atoi(key[1:])
	if err != nil || n < 1 || n > Slots || strconv.Itoa(n) != key[1:] {
		return 0, false
	}
	return n - 1, true
}

// FromMap reads q1..q84 out of an answers map. Missing, non-numeric and
// non-finite values become 0; keys outside the slot range are ignored.
func FromMap(m map[string]any) Vector {
	var v Vector
	for i := 0; i < Slots; i++ {
		v[i] = Coerce(m[SlotKey(i)])
	}
	return v
}

// FromFloatMap is FromMap for already-numeric maps such as stored snapshots.
func FromFloatMap(m map[string]float64) Vector {
	var v Vector
	for i := 0; i < Slots; i++ {
		v[i] = Coerce(m[SlotKey(i)])
	}
	return v
}

// Coerce converts one stored answer to a finite number, or 0.
func Coerce(x any) float64 {
	var f float64
	switch t := x.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Add returns the elementwise sum of v and w. Neither operand is modified.
func (v Vector) Add(w Vector) Vector {
	var out Vector
	for i := range out {
		out[i] = v[i] + w[i]
	}
	return out
}

// Sum folds vectors into a fresh zero vector.
func Sum(vs ...Vector) Vector {
	var acc Vector
	for _, v := range vs {
		acc = acc.Add(v)
	}
	return acc
}

// IsZero reports whether every slot is 0.
func (v Vector) IsZero() bool {
	return v == Vector{}
}

// ToMap renders v in storage form, q1..q84.
func (v Vector) ToMap() map[string]float64 {
	m := make(map[string]float64, Slots)
	for i, x := range v {
		m[SlotKey(i)] = x
	}
	return m
}

// Slice returns a copy of v as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Slots)
	copy(out, v[:])
	return out
}
