package statepoint

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PointerSlot describes one live GC root within a frame. Kind < 0 marks
// a base pointer; Kind >= 0 marks a derived pointer whose base is the
// slot at that index within the same FrameInfo. Offset is the byte
// offset from the stack pointer at the safepoint.
type PointerSlot struct {
	Kind   int32
	Offset int32
}

// IsBase reports whether this slot is a base pointer.
func (s PointerSlot) IsBase() bool { return s.Kind < 0 }

// FrameInfo records, for one call site, the return address, the caller's
// stack-frame size, and every live pointer slot - base pointers first,
// then derived pointers, so a derived slot's Kind always indexes an
// earlier entry in Slots.
type FrameInfo struct {
	RetAddr   uint64
	FrameSize uint64
	Slots     []PointerSlot
}

type locationPair struct {
	base, derived locationRecord
}

// buildFrame runs the two-pass slot emission described for the call
// site's pointer-location pairs: pairs where base and derived locations
// are identical become base-pointer slots first, then every remaining
// derived pointer is matched to the base slot it was already emitted
// for. log receives a debug-level notice whenever a pair is discarded
// for not being Indirect - release callers can pass a logger with its
// level raised past Debug to silence it entirely.
func buildFrame(retAddr, frameSize uint64, locs []locationRecord, log *logrus.Logger) (*FrameInfo, error) {
	if len(locs)%2 != 0 {
		return nil, errors.Wrapf(ErrMalformed, "pointer locations must come in pairs, got %d", len(locs))
	}

	numPairs := len(locs) / 2
	pairs := make([]locationPair, 0, numPairs)
	for i := 0; i < numPairs; i++ {
		base := locs[i*2]
		derived := locs[i*2+1]
		if base.kind != kindIndirect || derived.kind != kindIndirect {
			log.WithFields(logrus.Fields{
				"baseKind":    base.kind,
				"derivedKind": derived.kind,
			}).Debug("statepoint: discarding non-indirect root location pair")
			continue
		}
		pairs = append(pairs, locationPair{base: base, derived: derived})
	}

	// Both locations are already known Indirect by this point; the
	// original's isBasePointer compares kind and offset, which given
	// that guarantee reduces to offset equality.
	isBasePointer := func(p locationPair) bool {
		return p.base.kind == p.derived.kind && p.base.offset == p.derived.offset
	}

	slots := make([]PointerSlot, 0, len(pairs))
	// rawBaseOffsets tracks each emitted base slot's *pre-conversion*
	// offset, since pass 2 matches derived pointers to bases by the raw
	// location offset (this mirrors generate_frame_info's
	// processedBase[k].offset == base->offset comparison exactly; it is
	// only meaningful when convertOffset is the identity, i.e. RSP-
	// relative locations, which is the case this format always produces
	// in practice).
	rawBaseOffsets := make([]int32, 0, len(pairs))

	for _, p := range pairs {
		if !isBasePointer(p) {
			continue
		}
		off, err := convertOffset(p.base, frameSize)
		if err != nil {
			return nil, err
		}
		slots = append(slots, PointerSlot{Kind: -1, Offset: off})
		rawBaseOffsets = append(rawBaseOffsets, p.base.offset)
	}
	numBase := len(slots)

	for _, p := range pairs {
		if isBasePointer(p) {
			continue
		}
		baseIdx := -1
		for k := 0; k < numBase; k++ {
			if rawBaseOffsets[k] == p.base.offset {
				baseIdx = k
				break
			}
		}
		if baseIdx < 0 {
			return nil, errors.Wrapf(ErrNoMatchingBase, "derived pointer at offset %d", p.derived.offset)
		}

		off, err := convertOffset(p.derived, frameSize)
		if err != nil {
			return nil, err
		}
		slots = append(slots, PointerSlot{Kind: int32(baseIdx), Offset: off})
	}

	return &FrameInfo{RetAddr: retAddr, FrameSize: frameSize, Slots: slots}, nil
}
