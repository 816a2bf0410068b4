// Package statepoint parses the stackmap blob an LLVM-style precise-GC
// toolchain emits (Stackmap format version 3) and answers, for a given
// post-call return address, which frame slots hold live GC roots and
// which of those are base vs. derived pointers.
//
// This package only tells the collector where roots are; it never
// allocates, marks, sweeps, or relocates anything itself.
package statepoint

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// locationKind mirrors LLVM's Stackmap v3 Location::Kind enum.
type locationKind uint8

const (
	kindRegister locationKind = 1
	kindDirect   locationKind = 2
	kindIndirect locationKind = 3
	kindConstant locationKind = 4
	kindConstIdx locationKind = 5
)

// x86-64 SysV Dwarf register numbers this parser understands. Any other
// register number in a location record is fatal - this core has no
// notion of a live root sitting in a register.
const (
	dwarfRBP = 6
	dwarfRSP = 7
)

// Sentinel errors for the ways a stackmap can be malformed. Wrapped
// with positional context via github.com/pkg/errors so callers can both
// read a human message and errors.Is against the sentinel.
var (
	ErrUnsupportedVersion  = errors.New("statepoint: unsupported stackmap version")
	ErrTruncated           = errors.New("statepoint: blob truncated")
	ErrMalformed           = errors.New("statepoint: malformed stackmap record")
	ErrUnsupportedRegister = errors.New("statepoint: live root in unsupported register")
	ErrNoMatchingBase      = errors.New("statepoint: derived pointer has no matching base")
)

// cursor walks a stackmap blob field by field, little-endian, tracking
// its own byte offset so malformed-length errors can report where they
// happened.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) need(n int) error {
	if n < 0 || c.off+n > len(c.buf) {
		return errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", n, c.off, len(c.buf))
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// align8 advances the cursor to the next 8-byte boundary relative to the
// start of the blob, matching the pointer realignment the original does
// on the raw stackmap bytes.
func (c *cursor) align8() error {
	pad := (8 - (c.off % 8)) % 8
	return c.skip(pad)
}

type stackmapHeader struct {
	version      uint8
	numFunctions uint32
	numConstants uint32
	numRecords   uint32
}

func readStackmapHeader(c *cursor) (stackmapHeader, error) {
	version, err := c.u8()
	if err != nil {
		return stackmapHeader{}, errors.Wrap(err, "reading version")
	}
	if err := c.skip(2); err != nil { // two reserved bytes, must be zero
		return stackmapHeader{}, errors.Wrap(err, "reading reserved header bytes")
	}
	if version != 3 {
		return stackmapHeader{}, errors.Wrapf(ErrUnsupportedVersion, "got version %d, only 3 is supported", version)
	}

	numFunctions, err := c.u32()
	if err != nil {
		return stackmapHeader{}, errors.Wrap(err, "reading numFunctions")
	}
	numConstants, err := c.u32()
	if err != nil {
		return stackmapHeader{}, errors.Wrap(err, "reading numConstants")
	}
	numRecords, err := c.u32()
	if err != nil {
		return stackmapHeader{}, errors.Wrap(err, "reading numRecords")
	}

	return stackmapHeader{
		version:      version,
		numFunctions: numFunctions,
		numConstants: numConstants,
		numRecords:   numRecords,
	}, nil
}

type functionRecord struct {
	address       uint64
	stackSize     uint64
	callsiteCount uint64
}

func readFunctionRecord(c *cursor) (functionRecord, error) {
	address, err := c.u64()
	if err != nil {
		return functionRecord{}, errors.Wrap(err, "reading function address")
	}
	stackSize, err := c.u64()
	if err != nil {
		return functionRecord{}, errors.Wrap(err, "reading function stackSize")
	}
	callsiteCount, err := c.u64()
	if err != nil {
		return functionRecord{}, errors.Wrap(err, "reading function callsiteCount")
	}
	return functionRecord{address: address, stackSize: stackSize, callsiteCount: callsiteCount}, nil
}

type callsiteHeader struct {
	patchpointID uint64
	codeOffset   uint32
	flags        uint16
	numLocations uint16
}

func readCallsiteHeader(c *cursor) (callsiteHeader, error) {
	patchpointID, err := c.u64()
	if err != nil {
		return callsiteHeader{}, errors.Wrap(err, "reading patchpointId")
	}
	codeOffset, err := c.u32()
	if err != nil {
		return callsiteHeader{}, errors.Wrap(err, "reading codeOffset")
	}
	flags, err := c.u16()
	if err != nil {
		return callsiteHeader{}, errors.Wrap(err, "reading flags")
	}
	numLocations, err := c.u16()
	if err != nil {
		return callsiteHeader{}, errors.Wrap(err, "reading numLocations")
	}
	return callsiteHeader{
		patchpointID: patchpointID,
		codeOffset:   codeOffset,
		flags:        flags,
		numLocations: numLocations,
	}, nil
}

// locationRecord is one decoded Location entry. The reserved fields in
// the wire format carry no information and are read-then-discarded.
type locationRecord struct {
	kind   locationKind
	regNum uint16
	offset int32
}

func readLocationRecord(c *cursor) (locationRecord, error) {
	kindByte, err := c.u8()
	if err != nil {
		return locationRecord{}, errors.Wrap(err, "reading location kind")
	}
	if err := c.skip(1); err != nil { // reserved
		return locationRecord{}, errors.Wrap(err, "reading location reserved byte")
	}
	if _, err := c.u16(); err != nil { // locSize, unused by this core
		return locationRecord{}, errors.Wrap(err, "reading location size")
	}
	regNum, err := c.u16()
	if err != nil {
		return locationRecord{}, errors.Wrap(err, "reading location regNum")
	}
	if _, err := c.u16(); err != nil { // reserved2
		return locationRecord{}, errors.Wrap(err, "reading location reserved2")
	}
	offset, err := c.i32()
	if err != nil {
		return locationRecord{}, errors.Wrap(err, "reading location offset")
	}
	return locationRecord{kind: locationKind(kindByte), regNum: regNum, offset: offset}, nil
}

type liveoutHeader struct {
	numLiveouts uint16
}

func readLiveoutHeader(c *cursor) (liveoutHeader, error) {
	if _, err := c.u16(); err != nil { // padding
		return liveoutHeader{}, errors.Wrap(err, "reading liveout padding")
	}
	numLiveouts, err := c.u16()
	if err != nil {
		return liveoutHeader{}, errors.Wrap(err, "reading numLiveouts")
	}
	return liveoutHeader{numLiveouts: numLiveouts}, nil
}

const liveoutEntryBytes = 4

// convertOffset normalizes a location's offset to be relative to the
// stack pointer at the safepoint, using x86-64 SysV Dwarf register
// numbering. Any register besides RSP/RBP is fatal: live roots in
// registers aren't supported by this core.
func convertOffset(loc locationRecord, frameSize uint64) (int32, error) {
	switch loc.regNum {
	case dwarfRSP:
		if loc.offset < 0 {
			return 0, errors.Wrapf(ErrMalformed, "rsp-relative offset %d must be >= 0", loc.offset)
		}
		return loc.offset, nil
	case dwarfRBP:
		if loc.offset > 0 {
			return 0, errors.Wrapf(ErrMalformed, "rbp-relative offset %d must be <= 0", loc.offset)
		}
		return int32(frameSize) + loc.offset, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedRegister, "register number %d", loc.regNum)
	}
}
