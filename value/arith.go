package value

import "math"

// SlowPath is the hand-off contract for every operation this package
// cannot resolve on the fast path: object-to-primitive coercion, string
// concatenation, and the hosted language's full arithmetic/comparison
// semantics. Slow-path implementations are free to allocate; this
// package never calls one unless the cheap bitwise test already failed,
// except for Lsh, Rsh, Neq, Not and Neg, which have no fast path and
// always delegate.
//
// Cell operations (attribute get/set, prototype, stack push/pop) are a
// separate, wider boundary owned by the broader runtime and are not part
// of this contract.
type SlowPath interface {
	Add(x, y Value) Value
	Sub(x, y Value) Value
	Mul(x, y Value) Value
	Div(x, y Value) Value
	Mod(x, y Value) Value
	Lsh(x, y Value) Value
	Rsh(x, y Value) Value
	Eq(x, y Value) Value
	Neq(x, y Value) Value
	Lt(x, y Value) Value
	Lte(x, y Value) Value
	Gt(x, y Value) Value
	Gte(x, y Value) Value
	Not(x Value) Value
	Neg(x Value) Value
	ToDouble(x Value) float64
}

// numericToDouble converts a Value already known to satisfy IsNumber to
// a float64. It is the internal half of ToDouble used by the fast paths,
// which never need the slow-path collaborator since bool/null/undefined/
// cell are excluded by the IsNumber guard at every call site.
func numericToDouble(v Value) float64 {
	if v.IsInt32() {
		return float64(v.AsInt32())
	}
	return v.AsDouble()
}

// ToDouble implements the full to_double coercion: numbers widen/decode,
// booleans become 1.0/0.0, null becomes +0.0, undefined becomes NaN, and
// anything else (a cell) is handed to slow.
//
// The source this was ported from produced 1.0*0.0 for both null and
// undefined, which collapses undefined's coercion into null's. That's a
// latent bug relative to the hosted language's semantics: undefined must
// coerce to NaN. This implementation produces the corrected values.
func ToDouble(v Value, slow SlowPath) float64 {
	switch {
	case v.IsNumber():
		return numericToDouble(v)
	case v.IsBool():
		if v == ValueTrue {
			return 1.0
		}
		return 0.0
	case v == ValueNull:
		return 0.0
	case v == ValueUndefined:
		return math.NaN()
	default:
		return slow.ToDouble(v)
	}
}

func boolValue(b bool) Value {
	if b {
		return ValueTrue
	}
	return ValueFalse
}

// Add returns x+y as a double when both operands are numbers, otherwise
// delegates to slow.
func Add(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return NewDouble(numericToDouble(x) + numericToDouble(y))
	}
	return slow.Add(x, y)
}

// Sub returns x-y as a double when both operands are numbers, otherwise
// delegates to slow.
func Sub(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return NewDouble(numericToDouble(x) - numericToDouble(y))
	}
	return slow.Sub(x, y)
}

// Mul returns x*y as a double when both operands are numbers, otherwise
// delegates to slow.
func Mul(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return NewDouble(numericToDouble(x) * numericToDouble(y))
	}
	return slow.Mul(x, y)
}

// Div returns x/y as a double when both operands are numbers (following
// IEEE-754 division, so div-by-zero yields +/-Inf rather than a trap),
// otherwise delegates to slow.
func Div(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return NewDouble(numericToDouble(x) / numericToDouble(y))
	}
	return slow.Div(x, y)
}

// Mod returns the floating-point remainder of x/y, sign of the dividend,
// when both operands are numbers. This must use IEEE remainder
// (math.Mod), never integer remainder, to preserve the hosted language's
// modulo semantics.
func Mod(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return NewDouble(math.Mod(numericToDouble(x), numericToDouble(y)))
	}
	return slow.Mod(x, y)
}

// Lsh has no fast path: int32 coercion and the hosted language's shift
// rules are entirely the slow path's responsibility.
func Lsh(x, y Value, slow SlowPath) Value { return slow.Lsh(x, y) }

// Rsh has no fast path, for the same reason as Lsh.
func Rsh(x, y Value, slow SlowPath) Value { return slow.Rsh(x, y) }

// Eq compares two numbers (by double value, so int32 == double works) or
// two booleans (by their coerced 1.0/0.0 value). Any other
// combination - including a bool against a number, which a numeric
// coercion would technically resolve - is sent to the slow path
// unchanged. That is deliberate: the source this is grounded on never
// short-circuits a mixed bool/number comparison, and this implementation
// preserves that rather than extending it.
func Eq(x, y Value, slow SlowPath) Value {
	switch {
	case x.IsNumber() && y.IsNumber():
		return boolValue(numericToDouble(x) == numericToDouble(y))
	case x.IsBool() && y.IsBool():
		return boolValue(boolToDouble(x) == boolToDouble(y))
	default:
		return slow.Eq(x, y)
	}
}

func boolToDouble(v Value) float64 {
	if v == ValueTrue {
		return 1.0
	}
	return 0.0
}

// Neq has no fast path and always delegates, matching the source, which
// never defines a value_neq fast path alongside value_eq.
func Neq(x, y Value, slow SlowPath) Value { return slow.Neq(x, y) }

// Lt compares two numbers as doubles. NaN in either operand yields false,
// matching IEEE ordered comparison semantics. Any non-number operand
// delegates to slow.
func Lt(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return boolValue(numericToDouble(x) < numericToDouble(y))
	}
	return slow.Lt(x, y)
}

// Lte is Lt's <= counterpart.
func Lte(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return boolValue(numericToDouble(x) <= numericToDouble(y))
	}
	return slow.Lte(x, y)
}

// Gt is Lt's > counterpart.
func Gt(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return boolValue(numericToDouble(x) > numericToDouble(y))
	}
	return slow.Gt(x, y)
}

// Gte is Lt's >= counterpart.
func Gte(x, y Value, slow SlowPath) Value {
	if x.IsNumber() && y.IsNumber() {
		return boolValue(numericToDouble(x) >= numericToDouble(y))
	}
	return slow.Gte(x, y)
}

// Not and Neg are declared but never defined on the fast path in the
// source this is grounded on - both always delegate.
func Not(x Value, slow SlowPath) Value { return slow.Not(x) }
func Neg(x Value, slow SlowPath) Value { return slow.Neg(x) }
