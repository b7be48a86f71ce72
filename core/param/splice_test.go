package param

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
)

func wordsStack(t *testing.T, values ...int64) *vm.LocalStack {
	t.Helper()
	st := vm.NewLocalStack()
	for _, v := range values {
		if err := st.Push(common.BigToHash(big.NewInt(v))); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	return st
}

// calldata returns a selector followed by n zero words.
func calldata(n int) []byte {
	data := make([]byte, vm.SelectorSize+n*vm.WordSize)
	copy(data, []byte{0xaa, 0xbb, 0xcc, 0xdd})
	return data
}

func wordAt(data []byte, i int) *big.Int {
	pos := vm.SelectorSize + i*vm.WordSize
	return new(big.Int).SetBytes(data[pos : pos+vm.WordSize])
}

func TestSpliceWritesWordAfterSelector(t *testing.T) {
	st := wordsStack(t, 42)
	in := calldata(2)
	out, err := Splice(in, []Replacement{{Offset: 1, Index: 0}}, st)
	if err != nil {
		t.Fatalf("splice failed: %v", err)
	}
	if !bytes.Equal(out[:vm.SelectorSize], in[:vm.SelectorSize]) {
		t.Fatalf("selector modified: %x", out[:vm.SelectorSize])
	}
	if wordAt(out, 0).Sign() != 0 || wordAt(out, 1).Int64() != 42 {
		t.Fatalf("unexpected payload %x", out)
	}
	if wordAt(in, 1).Sign() != 0 {
		t.Fatalf("input payload mutated")
	}
}

func TestSpliceLastWriteWins(t *testing.T) {
	st := wordsStack(t, 1, 2)
	out, err := Splice(calldata(1), []Replacement{{0, 0}, {0, 1}}, st)
	if err != nil {
		t.Fatalf("splice failed: %v", err)
	}
	if wordAt(out, 0).Int64() != 2 {
		t.Fatalf("want last write 2, got %v", wordAt(out, 0))
	}
}

// TestSpliceOrderIndependent checks that non-colliding replacements produce
// the same payload whatever their order.
func TestSpliceOrderIndependent(t *testing.T) {
	st := wordsStack(t, 7, 8, 9)
	reps := []Replacement{{0, 2}, {1, 0}, {3, 1}}
	want, err := Splice(calldata(4), reps, st)
	if err != nil {
		t.Fatalf("splice failed: %v", err)
	}
	perms := [][]int{{0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		shuffled := make([]Replacement, len(reps))
		for i, j := range perm {
			shuffled[i] = reps[j]
		}
		got, err := Splice(calldata(4), shuffled, st)
		if err != nil {
			t.Fatalf("splice failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("order %v changed the result", perm)
		}
	}
}

func TestSpliceOutOfBounds(t *testing.T) {
	st := wordsStack(t, 1)
	_, err := Splice(calldata(2), []Replacement{{0, 1}}, st)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("want ErrOutOfBounds, got %v", err)
	}
	var serr *SpliceError
	if !errors.As(err, &serr) || serr.Index != 1 {
		t.Fatalf("unexpected splice error %#v", err)
	}
	_, err = Splice(calldata(2), []Replacement{{2, 0}}, st)
	if !errors.Is(err, ErrPayloadOutOfBounds) {
		t.Fatalf("want ErrPayloadOutOfBounds, got %v", err)
	}
	_, err = Splice([]byte{1, 2}, []Replacement{{0, 0}}, st)
	if !errors.Is(err, ErrPayloadOutOfBounds) {
		t.Fatalf("want ErrPayloadOutOfBounds for short payload, got %v", err)
	}
}
