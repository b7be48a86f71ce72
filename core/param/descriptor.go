// Package param decodes the 32-byte config descriptor attached to every action
// and splices captured scratch memory words into action payloads.
//
// Descriptor layout (big-endian, bit exact):
//
//	byte 0      bit 7: static flag, bits 0-6: call kind
//	bytes 1-2   number of return words to capture
//	byte 3      high nibble: replace count, low nibble: reference count
//	bytes 4-31  up to 14 (payload word offset, scratch index) pairs,
//	            unused pairs padded with 0xff
package param

import (
	"encoding/binary"
	"fmt"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
)

const (
	staticFlag = 0x80
	kindMask   = 0x7f

	kindByte    = 0
	captureHigh = 1
	countsByte  = 3
	pairsStart  = 4

	// MaxPairs is the number of (offset, index) pairs a descriptor holds.
	MaxPairs = (common.HashLength - pairsStart) / 2
	// MaxCount is the largest replace or reference count a nibble encodes.
	MaxCount = 0x0f

	// Terminator pads unused pair bytes. An offset byte of this value ends
	// the pair list.
	Terminator = 0xff
)

// Pair is one raw replacement instruction: write scratch memory word Index at
// payload word Offset.
type Pair struct {
	Offset uint8
	Index  uint8
}

// Descriptor is a decoded config. It is produced once per action and never
// mutated afterwards.
type Descriptor struct {
	Static         bool
	Kind           vm.CallKind
	CaptureWords   uint16
	ReplaceCount   uint8
	ReferenceCount uint8
	Pairs          []Pair
}

// Parse decodes a config descriptor. A static descriptor short-circuits to its
// call kind with nothing to capture or replace.
func Parse(cfg common.Hash) (*Descriptor, error) {
	kind := vm.CallKind(cfg[kindByte] & kindMask)
	if !kind.Defined() {
		return nil, configErr(ErrInvalidCallKind, "kind %d", uint8(kind))
	}
	if cfg[kindByte]&staticFlag != 0 {
		return &Descriptor{Static: true, Kind: kind}, nil
	}
	d := &Descriptor{
		Kind:           kind,
		CaptureWords:   binary.BigEndian.Uint16(cfg[captureHigh : captureHigh+2]),
		ReplaceCount:   cfg[countsByte] >> 4,
		ReferenceCount: cfg[countsByte] & 0x0f,
	}
	if int(d.ReplaceCount) > MaxPairs {
		return nil, configErr(ErrTooManyPairs, "replace count %d, max %d", d.ReplaceCount, MaxPairs)
	}
	for i := 0; i < MaxPairs; i++ {
		off := cfg[pairsStart+2*i]
		if off == Terminator {
			break
		}
		d.Pairs = append(d.Pairs, Pair{Offset: off, Index: cfg[pairsStart+2*i+1]})
	}
	if len(d.Pairs) != int(d.ReplaceCount) {
		return nil, configErr(ErrLocationCountMismatch, "%d pairs before terminator, replace count %d", len(d.Pairs), d.ReplaceCount)
	}
	return d, nil
}

// Encode packs d into its 32-byte wire form. The replace count is taken from
// the number of pairs; ReferenceCount is written as given so that callers can
// describe dynamic-array expansion.
func Encode(d *Descriptor) (common.Hash, error) {
	var cfg common.Hash
	if !d.Kind.Defined() {
		return cfg, configErr(ErrInvalidCallKind, "kind %d", uint8(d.Kind))
	}
	if d.Static {
		cfg[kindByte] = staticFlag | byte(d.Kind)
		return cfg, nil
	}
	if len(d.Pairs) > MaxPairs {
		return cfg, configErr(ErrTooManyPairs, "%d pairs, max %d", len(d.Pairs), MaxPairs)
	}
	if d.ReferenceCount > MaxCount {
		return cfg, configErr(ErrLocationCountMismatch, "reference count %d does not fit a nibble", d.ReferenceCount)
	}
	cfg[kindByte] = byte(d.Kind)
	binary.BigEndian.PutUint16(cfg[captureHigh:captureHigh+2], d.CaptureWords)
	cfg[countsByte] = byte(len(d.Pairs))<<4 | d.ReferenceCount
	for i := pairsStart; i < common.HashLength; i++ {
		cfg[i] = Terminator
	}
	for i, p := range d.Pairs {
		if p.Offset == Terminator {
			return common.Hash{}, configErr(ErrReservedOffset, "pair %d", i)
		}
		cfg[pairsStart+2*i] = p.Offset
		cfg[pairsStart+2*i+1] = p.Index
	}
	return cfg, nil
}

// MustEncode is like Encode but panics on error. It is meant for literal
// descriptors in tests and tooling.
func MustEncode(d *Descriptor) common.Hash {
	cfg, err := Encode(d)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Static returns the fast-path descriptor for kind.
func Static(kind vm.CallKind) common.Hash {
	return MustEncode(&Descriptor{Static: true, Kind: kind})
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	if d.Static {
		return fmt.Sprintf("static %v", d.Kind)
	}
	return fmt.Sprintf("%v capture=%d replace=%d reference=%d pairs=%v", d.Kind, d.CaptureWords, d.ReplaceCount, d.ReferenceCount, d.Pairs)
}
