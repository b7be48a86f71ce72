package param

import (
	"fmt"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/holiman/uint256"
)

// Replacement is a resolved splice: write scratch memory word Index over the
// payload word at Offset (counted in words after the selector).
type Replacement struct {
	Offset int
	Index  int
}

// Expand resolves the descriptor's pairs against the target's declared shape.
//
// A pair addressing a static word yields one replacement. A pair addressing a
// dynamic array head word follows the head's ABI offset to the array and
// yields one replacement for the length word plus one per element. The array
// length is read from scratch memory at the pair's index and the elements
// from the slots directly after it, so such a pair spans length+1 slots. The
// captured length must equal the length of the placeholder array already
// encoded in calldata, so a splice never runs into the following argument.
//
// The total number of replacements must equal the descriptor's reference
// count.
func (d *Descriptor) Expand(shape vm.Shape, calldata []byte, stack *vm.LocalStack) ([]Replacement, error) {
	if d.Static {
		return nil, nil
	}
	reps := make([]Replacement, 0, d.ReferenceCount)
	for i, p := range d.Pairs {
		if !shape.IsArray(p.Offset) {
			reps = append(reps, Replacement{Offset: int(p.Offset), Index: int(p.Index)})
			continue
		}
		fail := func(err error) error {
			return &SpliceError{Pair: i, Offset: int(p.Offset), Index: int(p.Index), Err: err}
		}
		lengthWord, err := arrayLengthWord(calldata, p.Offset)
		if err != nil {
			return nil, fail(err)
		}
		word, ok := stack.Get(int(p.Index))
		if !ok {
			return nil, fail(fmt.Errorf("%w: array length at %d, %d captured", ErrOutOfBounds, p.Index, stack.Len()))
		}
		length := new(uint256.Int).SetBytes32(word[:])
		if !length.IsUint64() || length.Uint64() >= vm.StackLimit {
			return nil, fail(fmt.Errorf("%w: array length %v", ErrOutOfBounds, length))
		}
		if placeholder, err := calldataWord(calldata, lengthWord); err != nil {
			return nil, fail(err)
		} else if !placeholder.Eq(length) {
			return nil, fail(fmt.Errorf("%w: array of %v elements spliced over placeholder of %v", ErrPayloadOutOfBounds, length, placeholder))
		}
		for j := 0; j <= int(length.Uint64()); j++ {
			reps = append(reps, Replacement{Offset: lengthWord + j, Index: int(p.Index) + j})
		}
	}
	if len(reps) != int(d.ReferenceCount) {
		return nil, configErr(ErrLocationCountMismatch, "%d locations after expansion, reference count %d", len(reps), d.ReferenceCount)
	}
	return reps, nil
}

// arrayLengthWord follows the ABI offset stored in the head word at offset and
// returns the word position of the array's length word.
func arrayLengthWord(calldata []byte, offset uint8) (int, error) {
	head := vm.SelectorSize + int(offset)*vm.WordSize
	if head+vm.WordSize > len(calldata) {
		return 0, fmt.Errorf("%w: head word %d, payload %d bytes", ErrPayloadOutOfBounds, offset, len(calldata))
	}
	ptr := new(uint256.Int).SetBytes32(calldata[head : head+vm.WordSize])
	args := uint64(len(calldata) - vm.SelectorSize)
	if !ptr.IsUint64() || ptr.Uint64() >= args || ptr.Uint64()%vm.WordSize != 0 {
		return 0, fmt.Errorf("%w: array offset %v", ErrPayloadOutOfBounds, ptr)
	}
	return int(ptr.Uint64() / vm.WordSize), nil
}

// calldataWord reads the calldata word at index (counted in words after the selector).
func calldataWord(calldata []byte, index int) (*uint256.Int, error) {
	pos := vm.SelectorSize + index*vm.WordSize
	if pos+vm.WordSize > len(calldata) {
		return nil, fmt.Errorf("%w: word %d, payload %d bytes", ErrPayloadOutOfBounds, index, len(calldata))
	}
	return new(uint256.Int).SetBytes32(calldata[pos : pos+vm.WordSize]), nil
}
