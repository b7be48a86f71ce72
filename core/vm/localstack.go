package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// WordSize is the width of one scratch memory slot and of one ABI word.
	WordSize = 32
	// StackLimit is the maximum number of words a single batch may capture.
	StackLimit = 256
)

// LocalStack is the scratch memory of one batch: an append-only, fixed
// capacity array of 32-byte words captured from prior action results. Index 0
// is the first word ever captured. It never shrinks and is discarded together
// with the batch that owns it.
type LocalStack struct {
	data [StackLimit]common.Hash
	size int
}

// NewLocalStack returns an empty scratch memory.
func NewLocalStack() *LocalStack {
	return new(LocalStack)
}

// Len returns the number of words captured so far.
func (st *LocalStack) Len() int {
	return st.size
}

// Push appends a single word.
func (st *LocalStack) Push(w common.Hash) error {
	if st.size >= StackLimit {
		return fmt.Errorf("%w: limit %d", ErrStackOverflow, StackLimit)
	}
	st.data[st.size] = w
	st.size++
	return nil
}

// PushWords appends the first n words of data. Either all n words are stored
// or, on failure, none are.
func (st *LocalStack) PushWords(data []byte, n int) error {
	if n < 0 || len(data) < n*WordSize {
		return fmt.Errorf("%w: have %d bytes, want %d words", ErrCaptureLengthMismatch, len(data), n)
	}
	if st.size+n > StackLimit {
		return fmt.Errorf("%w: %d captured, %d more requested, limit %d", ErrStackOverflow, st.size, n, StackLimit)
	}
	for i := 0; i < n; i++ {
		st.data[st.size+i] = common.BytesToHash(data[i*WordSize : (i+1)*WordSize])
	}
	st.size += n
	return nil
}

// Get returns the word at index i. The boolean is false if nothing has been
// captured at that index yet.
func (st *LocalStack) Get(i int) (common.Hash, bool) {
	if i < 0 || i >= st.size {
		return common.Hash{}, false
	}
	return st.data[i], true
}

// Data returns a copy of the captured words.
func (st *LocalStack) Data() []common.Hash {
	out := make([]common.Hash, st.size)
	copy(out, st.data[:st.size])
	return out
}
