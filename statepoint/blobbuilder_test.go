package statepoint

import (
	"bytes"
	"encoding/binary"
)

// testLocation is the test-side description of one Location record.
type testLocation struct {
	kind   locationKind
	regNum uint16
	offset int32
}

func constLoc(offset int32) testLocation {
	return testLocation{kind: kindConstant, offset: offset}
}

func indirectLoc(regNum uint16, offset int32) testLocation {
	return testLocation{kind: kindIndirect, regNum: regNum, offset: offset}
}

// testCallsite is the test-side description of one call-site record: a
// code offset plus its full location list (including the 3 fixed
// prelude constants this package's parser expects).
type testCallsite struct {
	codeOffset uint32
	locations  []testLocation
}

// testFunction groups the call sites belonging to one function record.
type testFunction struct {
	address   uint64
	stackSize uint64
	callsites []testCallsite
}

// buildStackmap encodes a v3 stackmap blob by hand, mirroring the exact
// byte layout the reader in format.go and build.go expects.
func buildStackmap(version uint8, functions []testFunction) []byte {
	var buf bytes.Buffer

	numRecords := 0
	for _, fn := range functions {
		numRecords += len(fn.callsites)
	}

	buf.WriteByte(version)
	buf.Write([]byte{0, 0}) // reserved
	writeU32(&buf, uint32(len(functions)))
	writeU32(&buf, 0) // numConstants
	writeU32(&buf, uint32(numRecords))

	for _, fn := range functions {
		writeU64(&buf, fn.address)
		writeU64(&buf, fn.stackSize)
		writeU64(&buf, uint64(len(fn.callsites)))
	}

	// no constants section (numConstants == 0)

	for _, fn := range functions {
		for _, cs := range fn.callsites {
			writeU64(&buf, 0) // patchpointId
			writeU32(&buf, cs.codeOffset)
			writeU16(&buf, 0) // flags
			writeU16(&buf, uint16(len(cs.locations)))

			for _, loc := range cs.locations {
				buf.WriteByte(byte(loc.kind))
				buf.WriteByte(0) // reserved
				writeU16(&buf, 0) // locSize
				writeU16(&buf, loc.regNum)
				writeU16(&buf, 0) // reserved2
				writeI32(&buf, loc.offset)
			}

			padTo8(&buf)

			writeU16(&buf, 0) // liveout padding
			writeU16(&buf, 0) // numLiveouts

			padTo8(&buf)
		}
	}

	return buf.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) {
	writeU32(buf, uint32(v))
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func padTo8(buf *bytes.Buffer) {
	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}
}

// standardPrelude is the 3 fixed constants every call site starts with:
// two ignored constants followed by a numDeopt-carrying constant.
func standardPrelude(numDeopt int32) []testLocation {
	return []testLocation{constLoc(0), constLoc(0), constLoc(numDeopt)}
}
