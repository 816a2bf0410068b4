package statepoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupAllReturnsAllDuplicates(t *testing.T) {
	table := newTable(2.0, 2)

	first := &FrameInfo{RetAddr: 0x1234, FrameSize: 32, Slots: []PointerSlot{{Kind: -1, Offset: 8}}}
	second := &FrameInfo{RetAddr: 0x1234, FrameSize: 64, Slots: []PointerSlot{{Kind: -1, Offset: 16}}}
	table.insert(first.RetAddr, first)
	table.insert(second.RetAddr, second)

	all := table.LookupAll(0x1234)
	require.Len(t, all, 2, "both frames sharing a return address must coexist in the bucket")
	require.Equal(t, *first, all[0])
	require.Equal(t, *second, all[1])

	got, ok := table.Lookup(0x1234)
	require.True(t, ok)
	require.Equal(t, *first, *got, "Lookup must return only the first match in bucket order")
}

func TestLookupAllEmptyForMissingKey(t *testing.T) {
	table := newTable(2.0, 1)
	require.Empty(t, table.LookupAll(0xdead))
}

func TestCloseThenLookupPanics(t *testing.T) {
	table := newTable(2.0, 1)
	table.insert(0x1, &FrameInfo{RetAddr: 0x1, FrameSize: 8})

	require.NoError(t, table.Close())
	require.Panics(t, func() { table.Lookup(0x1) })
}

func TestDoubleCloseReturnsErrTableClosed(t *testing.T) {
	table := newTable(2.0, 1)

	require.NoError(t, table.Close())
	require.ErrorIs(t, table.Close(), ErrTableClosed)
}
