// Package slowpath is a minimal reference implementation of
// value.SlowPath. It exists only to exercise the fast/slow hand-off
// contract in tests and the cmd/corevm CLI demo - string coercion and
// object-to-primitive conversion are explicitly out of scope for this
// core (see spec's "Excluded as external collaborators"), so cells
// coerce to NaN here rather than through any real object model.
package slowpath

import (
	"math"

	"corevm/value"
)

// Default is a reference SlowPath good enough to demo the fast-path
// hand-off. It is never imported by package value itself.
type Default struct{}

// ToDouble coerces any Value to a float64. Default's own operators call it
// on both operands, so it sees numbers (from mixed-type operations and the
// no-fast-path operators) as well as bool, null, undefined and cells.
// Cells coerce to NaN: there is no object model to coerce them with.
func (Default) ToDouble(x value.Value) float64 {
	if x.IsInt32() {
		return float64(x.AsInt32())
	}
	if x.IsDouble() {
		return x.AsDouble()
	}
	if x.IsBool() {
		if x == value.ValueTrue {
			return 1.0
		}
		return 0.0
	}
	if x.IsNullOrUndefined() {
		if x == value.ValueNull {
			return 0.0
		}
		return math.NaN()
	}
	// No object-to-primitive coercion implemented; see package doc.
	return math.NaN()
}

func (d Default) Add(x, y value.Value) value.Value {
	return value.NewDouble(d.ToDouble(x) + d.ToDouble(y))
}

func (d Default) Sub(x, y value.Value) value.Value {
	return value.NewDouble(d.ToDouble(x) - d.ToDouble(y))
}

func (d Default) Mul(x, y value.Value) value.Value {
	return value.NewDouble(d.ToDouble(x) * d.ToDouble(y))
}

func (d Default) Div(x, y value.Value) value.Value {
	return value.NewDouble(d.ToDouble(x) / d.ToDouble(y))
}

func (d Default) Mod(x, y value.Value) value.Value {
	return value.NewDouble(math.Mod(d.ToDouble(x), d.ToDouble(y)))
}

func toInt32(d float64) int32 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return int32(int64(d))
}

// Lsh and Rsh own int32 coercion and the shift-amount masking (mod 32)
// that the fast path explicitly defers to them.
func (d Default) Lsh(x, y value.Value) value.Value {
	xi := toInt32(d.ToDouble(x))
	yi := uint32(toInt32(d.ToDouble(y))) & 31
	return value.NewInt32(xi << yi)
}

func (d Default) Rsh(x, y value.Value) value.Value {
	xi := toInt32(d.ToDouble(x))
	yi := uint32(toInt32(d.ToDouble(y))) & 31
	return value.NewInt32(xi >> yi)
}

func (d Default) Eq(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) == d.ToDouble(y))
}

func (d Default) Neq(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) != d.ToDouble(y))
}

func (d Default) Lt(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) < d.ToDouble(y))
}

func (d Default) Lte(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) <= d.ToDouble(y))
}

func (d Default) Gt(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) > d.ToDouble(y))
}

func (d Default) Gte(x, y value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) >= d.ToDouble(y))
}

func (d Default) Not(x value.Value) value.Value {
	return value.NewBool(d.ToDouble(x) == 0)
}

func (d Default) Neg(x value.Value) value.Value {
	return value.NewDouble(-d.ToDouble(x))
}
