package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingSlowPath is a test-only SlowPath that records which method was
// invoked and returns a sentinel so tests can assert the fast path did
// (or did not) short-circuit.
type recordingSlowPath struct {
	called string
}

const slowMarker = Value(0xBEEF)

func (r *recordingSlowPath) Add(x, y Value) Value      { r.called = "Add"; return slowMarker }
func (r *recordingSlowPath) Sub(x, y Value) Value      { r.called = "Sub"; return slowMarker }
func (r *recordingSlowPath) Mul(x, y Value) Value      { r.called = "Mul"; return slowMarker }
func (r *recordingSlowPath) Div(x, y Value) Value      { r.called = "Div"; return slowMarker }
func (r *recordingSlowPath) Mod(x, y Value) Value      { r.called = "Mod"; return slowMarker }
func (r *recordingSlowPath) Lsh(x, y Value) Value      { r.called = "Lsh"; return slowMarker }
func (r *recordingSlowPath) Rsh(x, y Value) Value      { r.called = "Rsh"; return slowMarker }
func (r *recordingSlowPath) Eq(x, y Value) Value       { r.called = "Eq"; return slowMarker }
func (r *recordingSlowPath) Neq(x, y Value) Value      { r.called = "Neq"; return slowMarker }
func (r *recordingSlowPath) Lt(x, y Value) Value       { r.called = "Lt"; return slowMarker }
func (r *recordingSlowPath) Lte(x, y Value) Value      { r.called = "Lte"; return slowMarker }
func (r *recordingSlowPath) Gt(x, y Value) Value       { r.called = "Gt"; return slowMarker }
func (r *recordingSlowPath) Gte(x, y Value) Value      { r.called = "Gte"; return slowMarker }
func (r *recordingSlowPath) Not(x Value) Value         { r.called = "Not"; return slowMarker }
func (r *recordingSlowPath) Neg(x Value) Value         { r.called = "Neg"; return slowMarker }
func (r *recordingSlowPath) ToDouble(x Value) float64  { r.called = "ToDouble"; return math.NaN() }

func TestAddFastPath(t *testing.T) {
	slow := &recordingSlowPath{}
	got := Add(NewInt32(2), NewInt32(3), slow)
	require.Empty(t, slow.called, "fast path should not have delegated")
	require.True(t, got.IsDouble())
	require.Equal(t, 5.0, got.AsDouble())
}

func TestDivByZeroIsInfinity(t *testing.T) {
	slow := &recordingSlowPath{}
	got := Div(NewInt32(1), NewInt32(0), slow)
	require.Empty(t, slow.called)
	require.True(t, math.IsInf(got.AsDouble(), 1))
}

func TestModFastPath(t *testing.T) {
	slow := &recordingSlowPath{}
	got := Mod(NewDouble(5.5), NewDouble(2.0), slow)
	require.Empty(t, slow.called)
	require.Equal(t, 1.5, got.AsDouble())
}

func TestEqNumberFastPath(t *testing.T) {
	slow := &recordingSlowPath{}
	got := Eq(NewInt32(1), NewDouble(1.0), slow)
	require.Empty(t, slow.called)
	require.Equal(t, ValueTrue, got)
}

func TestEqBoolVsNumberDelegates(t *testing.T) {
	slow := &recordingSlowPath{}
	got := Eq(ValueTrue, NewInt32(1), slow)
	require.Equal(t, "Eq", slow.called, "mixed bool/number eq must not short-circuit")
	require.Equal(t, slowMarker, got)
}

func TestComparisonsWithNaNAreFalse(t *testing.T) {
	slow := &recordingSlowPath{}
	nan := NewDouble(math.NaN())
	zero := NewInt32(0)

	require.Equal(t, ValueFalse, Lt(nan, zero, slow))
	require.Equal(t, ValueFalse, Gt(nan, zero, slow))
	require.Equal(t, ValueFalse, Lte(nan, zero, slow))
	require.Equal(t, ValueFalse, Gte(nan, zero, slow))
	require.Empty(t, slow.called)
}

func TestLshRshAlwaysDelegate(t *testing.T) {
	slow := &recordingSlowPath{}
	Lsh(NewInt32(1), NewInt32(2), slow)
	require.Equal(t, "Lsh", slow.called)

	slow2 := &recordingSlowPath{}
	Rsh(NewInt32(1), NewInt32(2), slow2)
	require.Equal(t, "Rsh", slow2.called)
}

func TestNeqAlwaysDelegates(t *testing.T) {
	slow := &recordingSlowPath{}
	Neq(NewInt32(1), NewInt32(1), slow)
	require.Equal(t, "Neq", slow.called)
}

func TestToDoubleCoercions(t *testing.T) {
	slow := &recordingSlowPath{}
	require.Equal(t, 5.0, ToDouble(NewInt32(5), slow))
	require.Equal(t, 2.5, ToDouble(NewDouble(2.5), slow))
	require.Equal(t, 1.0, ToDouble(ValueTrue, slow))
	require.Equal(t, 0.0, ToDouble(ValueFalse, slow))
	require.Equal(t, 0.0, ToDouble(ValueNull, slow))
	require.True(t, math.IsNaN(ToDouble(ValueUndefined, slow)))
	require.Empty(t, slow.called, "all of the above should resolve without the collaborator")
}

func TestToDoubleCellDelegates(t *testing.T) {
	slow := &recordingSlowPath{}
	cellValue := NewValueFromCell(UnsafeCellFromPointer(nil))
	ToDouble(cellValue, slow)
	require.Equal(t, "ToDouble", slow.called)
}
