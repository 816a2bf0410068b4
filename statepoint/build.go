package statepoint

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Build parses a Stackmap v3 blob and constructs a Table keyed by
// post-call return address. loadFactor sets the table's bucket count to
// ceil(numRecords/loadFactor)+1 (a non-positive loadFactor is taken as 1).
//
// Malformed input (wrong version, a non-Constant prelude location, an
// unsupported register, or a derived pointer with no matching base) is
// reported as an error rather than aborting the process outright -
// package statepoint's caller decides whether a malformed stackmap is
// fatal, matching this core's position that it has "no higher authority
// to report to" beyond returning the error.
func Build(blob []byte, loadFactor float64) (*Table, error) {
	return BuildWithLogger(blob, loadFactor, discardLogger())
}

// BuildWithLogger is Build, but lets the caller supply the logger that
// receives the debug-mode "discarded root location pair" notices from
// §4.2. Pass a logger with its level at logrus.DebugLevel to see them;
// the default Build call is silent, matching a release build.
func BuildWithLogger(blob []byte, loadFactor float64, log *logrus.Logger) (*Table, error) {
	c := &cursor{buf: blob}

	header, err := readStackmapHeader(c)
	if err != nil {
		return nil, err
	}

	functions := make([]functionRecord, header.numFunctions)
	for i := range functions {
		fn, err := readFunctionRecord(c)
		if err != nil {
			return nil, errors.Wrapf(err, "reading function record %d", i)
		}
		functions[i] = fn
	}

	if err := c.skip(int(header.numConstants) * 8); err != nil {
		return nil, errors.Wrap(err, "skipping constants section")
	}

	table := newTable(loadFactor, uint64(header.numRecords))

	fnIdx := 0
	visited := uint64(0)
	for i := uint64(0); i < uint64(header.numRecords); i++ {
		for fnIdx < len(functions) && visited >= functions[fnIdx].callsiteCount {
			fnIdx++
			visited = 0
		}
		if fnIdx >= len(functions) {
			return nil, errors.Wrapf(ErrMalformed, "call-site record %d has no enclosing function", i)
		}

		frame, err := readCallSite(c, functions[fnIdx], log)
		if err != nil {
			return nil, errors.Wrapf(err, "call-site record %d", i)
		}

		table.insert(frame.RetAddr, frame)
		visited++
	}

	return table, nil
}

func readCallSite(c *cursor, fn functionRecord, log *logrus.Logger) (*FrameInfo, error) {
	header, err := readCallsiteHeader(c)
	if err != nil {
		return nil, errors.Wrap(err, "reading call-site header")
	}

	locs := make([]locationRecord, header.numLocations)
	for i := range locs {
		loc, err := readLocationRecord(c)
		if err != nil {
			return nil, errors.Wrapf(err, "reading location record %d", i)
		}
		locs[i] = loc
	}

	if err := c.align8(); err != nil {
		return nil, errors.Wrap(err, "aligning after location records")
	}

	liveout, err := readLiveoutHeader(c)
	if err != nil {
		return nil, errors.Wrap(err, "reading liveout header")
	}
	// Liveout information is intentionally discarded: statepoints never
	// use it to describe GC roots.
	if err := c.skip(int(liveout.numLiveouts) * liveoutEntryBytes); err != nil {
		return nil, errors.Wrap(err, "skipping liveout entries")
	}
	if err := c.align8(); err != nil {
		return nil, errors.Wrap(err, "aligning after liveout entries")
	}

	return generateFrameInfo(header, fn, locs, log)
}

// generateFrameInfo implements §4.2's "per-call-site processing": the
// first two locations must be Constant and are skipped, the third is a
// Constant whose offset is the deopt-parameter count to skip, and
// everything after that is handed to buildFrame as base/derived pairs.
func generateFrameInfo(cs callsiteHeader, fn functionRecord, locs []locationRecord, log *logrus.Logger) (*FrameInfo, error) {
	if len(locs) < 3 {
		return nil, errors.Wrapf(ErrMalformed, "call-site needs at least 3 locations, got %d", len(locs))
	}
	if locs[0].kind != kindConstant || locs[1].kind != kindConstant {
		return nil, errors.Wrap(ErrMalformed, "first two locations must be constants")
	}
	if locs[2].kind != kindConstant {
		return nil, errors.Wrap(ErrMalformed, "third location must be a constant carrying the deopt count")
	}

	numDeopt := locs[2].offset
	if numDeopt < 0 {
		return nil, errors.Wrapf(ErrMalformed, "negative deopt parameter count %d", numDeopt)
	}

	rest := locs[3:]
	if int(numDeopt) > len(rest) {
		return nil, errors.Wrapf(ErrMalformed, "deopt count %d exceeds remaining %d locations", numDeopt, len(rest))
	}
	rest = rest[numDeopt:]

	retAddr := fn.address + uint64(cs.codeOffset)
	return buildFrame(retAddr, fn.stackSize, rest, log)
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
