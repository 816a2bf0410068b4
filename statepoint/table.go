package statepoint

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ErrTableClosed is returned by Close when the Table is already closed.
var ErrTableClosed = errors.New("statepoint: table is closed")

// bucket holds every FrameInfo that hashed to it, stored as a single
// contiguous, growable slice rather than a linked list of individually
// heap-allocated records - a Go slice of value-typed FrameInfo already
// gives the "variable-sized concatenated records, not pointer-linked"
// layout the original hand-rolls with realloc/memmove.
type bucket struct {
	frames []FrameInfo
}

// Table is a separate-chaining hash table mapping return address to
// FrameInfo. It is built once via Build/BuildWithLogger and is immutable
// (aside from Close) afterward: lookups may run concurrently from any
// number of goroutines without synchronization.
type Table struct {
	buckets []bucket
	closed  bool
}

// newTable allocates numCallsites/loadFactor + 1 empty buckets.
func newTable(loadFactor float64, numCallsites uint64) *Table {
	if loadFactor <= 0 {
		loadFactor = 1
	}
	n := uint64(math.Ceil(float64(numCallsites)/loadFactor)) + 1
	return &Table{buckets: make([]bucket, n)}
}

// hash is one round of the xorshift64* algorithm.
func hash(x uint64) uint64 {
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	return x * 2685821657736338717
}

func (t *Table) bucketIndex(key uint64) uint64 {
	return hash(key) % uint64(len(t.buckets))
}

// insert appends frame to the bucket its return address hashes to. A
// well-formed stackmap should assign each call site a unique return
// address, but insert permits duplicates to coexist in the same bucket,
// matching StatepointTable_insertKey in the source this is grounded on.
// Lookup only ever returns the first match it walks to in bucket order;
// LookupAll exists precisely so duplicate coexistence stays testable
// without changing Lookup's documented single-match contract.
func (t *Table) insert(retAddr uint64, frame *FrameInfo) {
	idx := t.bucketIndex(retAddr)
	t.buckets[idx].frames = append(t.buckets[idx].frames, *frame)
}

// Lookup returns the FrameInfo for retAddr, or false if none is present.
// A miss at a genuine GC safepoint is a caller bug, not a table error -
// this method simply reports the fact.
func (t *Table) Lookup(retAddr uint64) (*FrameInfo, bool) {
	if t.closed {
		panic("statepoint: Lookup called on a closed Table")
	}
	idx := t.bucketIndex(retAddr)
	frames := t.buckets[idx].frames
	for i := range frames {
		if frames[i].RetAddr == retAddr {
			return &frames[i], true
		}
	}
	return nil, false
}

// LookupAll returns every FrameInfo in retAddr's bucket whose return
// address matches, in insertion order. See the insert doc comment for
// why this exists alongside Lookup.
func (t *Table) LookupAll(retAddr uint64) []FrameInfo {
	idx := t.bucketIndex(retAddr)
	return lo.Filter(t.buckets[idx].frames, func(f FrameInfo, _ int) bool {
		return f.RetAddr == retAddr
	})
}

// NumBuckets reports the table's bucket count.
func (t *Table) NumBuckets() int { return len(t.buckets) }

// Close releases the table's storage. Calling Lookup or LookupAll
// afterward panics, the nearest Go equivalent of the original's
// use-after-free; NumBuckets then reports 0 and Dump lists no buckets.
func (t *Table) Close() error {
	if t.closed {
		return ErrTableClosed
	}
	t.buckets = nil
	t.closed = true
	return nil
}

type indexedBucket struct {
	idx int
	b   bucket
}

// Dump writes a diagnostic listing of every bucket and frame to w as
// structured log entries rather than raw fprintf: one logrus summary
// entry for the table, then one per bucket, frame, and slot. Pass skipEmpty to omit empty
// buckets, matching StatepointTable_print's skip_empty parameter.
func (t *Table) Dump(w io.Writer, skipEmpty bool) {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	indexed := make([]indexedBucket, len(t.buckets))
	for i, b := range t.buckets {
		indexed[i] = indexedBucket{idx: i, b: b}
	}
	if skipEmpty {
		indexed = lo.Filter(indexed, func(ib indexedBucket, _ int) bool { return len(ib.b.frames) > 0 })
	}

	totalFrames := lo.SumBy(t.buckets, func(b bucket) int { return len(b.frames) })
	log.WithFields(logrus.Fields{"buckets": len(t.buckets), "frames": totalFrames}).Info("statepoint table")

	for _, ib := range indexed {
		log.WithFields(logrus.Fields{"bucket": ib.idx, "entries": len(ib.b.frames)}).Info("bucket")
		for j, f := range ib.b.frames {
			log.WithFields(logrus.Fields{
				"frame":     j,
				"retAddr":   fmt.Sprintf("0x%x", f.RetAddr),
				"frameSize": f.FrameSize,
				"numSlots":  len(f.Slots),
			}).Info("frame")
			for k, s := range f.Slots {
				kind := "base"
				if !s.IsBase() {
					kind = fmt.Sprintf("derived<-%d", s.Kind)
				}
				log.WithFields(logrus.Fields{"slot": k, "kind": kind, "offset": s.Offset}).Info("slot")
			}
		}
	}
}
