package param

import (
	"fmt"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
)

// Splice returns a copy of calldata with every replacement applied in order.
// Replacements targeting the same word overwrite each other, the last one
// wins. calldata itself is never modified.
func Splice(calldata []byte, reps []Replacement, stack *vm.LocalStack) ([]byte, error) {
	out := common.CopyBytes(calldata)
	for i, r := range reps {
		word, ok := stack.Get(r.Index)
		if !ok {
			return nil, &SpliceError{Pair: i, Offset: r.Offset, Index: r.Index,
				Err: fmt.Errorf("%w: %d captured", ErrOutOfBounds, stack.Len())}
		}
		pos := vm.SelectorSize + r.Offset*vm.WordSize
		if r.Offset < 0 || pos+vm.WordSize > len(out) {
			return nil, &SpliceError{Pair: i, Offset: r.Offset, Index: r.Index,
				Err: fmt.Errorf("%w: payload %d bytes", ErrPayloadOutOfBounds, len(out))}
		}
		copy(out[pos:pos+vm.WordSize], word[:])
	}
	return out, nil
}
