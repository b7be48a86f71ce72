package param

import (
	"math/big"
	"testing"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// arrayCalldata builds f(uint256, uint256[]) with a placeholder array of n
// zero elements.
func arrayCalldata(n int) []byte {
	data := calldata(3 + n)
	copy(data[vm.SelectorSize+vm.WordSize:], common.BigToHash(big.NewInt(2*vm.WordSize)).Bytes())
	copy(data[vm.SelectorSize+2*vm.WordSize:], common.BigToHash(big.NewInt(int64(n))).Bytes())
	return data
}

func TestExpandDynamicArray(t *testing.T) {
	// Raw capture of an ABI encoded uint256[]{10, 20}: pointer, length, elements.
	st := wordsStack(t, 99, 0x20, 2, 10, 20)
	d := &Descriptor{ReplaceCount: 2, ReferenceCount: 4, Pairs: []Pair{{0, 0}, {1, 2}}}

	reps, err := d.Expand(vm.Shape{1}, arrayCalldata(2), st)
	require.NoError(t, err)
	require.Equal(t, []Replacement{{0, 0}, {2, 2}, {3, 3}, {4, 4}}, reps)

	out, err := Splice(arrayCalldata(2), reps, st)
	require.NoError(t, err)
	require.EqualValues(t, 99, wordAt(out, 0).Int64())
	require.EqualValues(t, 0x40, wordAt(out, 1).Int64(), "array head must be untouched")
	require.EqualValues(t, 2, wordAt(out, 2).Int64())
	require.EqualValues(t, 10, wordAt(out, 3).Int64())
	require.EqualValues(t, 20, wordAt(out, 4).Int64())
}

func TestExpandCountMismatch(t *testing.T) {
	st := wordsStack(t, 0x20, 2, 10, 20)
	// Reference count ignores the two expanded elements.
	d := &Descriptor{ReplaceCount: 1, ReferenceCount: 1, Pairs: []Pair{{1, 1}}}
	_, err := d.Expand(vm.Shape{1}, arrayCalldata(2), st)
	require.ErrorIs(t, err, ErrLocationCountMismatch)

	// Without the shape the same pair is a single static location.
	reps, err := d.Expand(nil, arrayCalldata(2), st)
	require.NoError(t, err)
	require.Equal(t, []Replacement{{1, 1}}, reps)
}

func TestExpandBounds(t *testing.T) {
	d := &Descriptor{ReplaceCount: 1, ReferenceCount: 3, Pairs: []Pair{{1, 4}}}
	_, err := d.Expand(vm.Shape{1}, arrayCalldata(2), wordsStack(t, 0x20, 2, 10, 20))
	require.ErrorIs(t, err, ErrOutOfBounds, "length index not yet captured")

	d = &Descriptor{ReplaceCount: 1, ReferenceCount: 3, Pairs: []Pair{{5, 1}}}
	_, err = d.Expand(vm.Shape{5}, arrayCalldata(2), wordsStack(t, 0x20, 2, 10, 20))
	require.ErrorIs(t, err, ErrPayloadOutOfBounds, "head word outside payload")

	bad := arrayCalldata(2)
	copy(bad[vm.SelectorSize+vm.WordSize:], common.BigToHash(big.NewInt(0x41)).Bytes())
	d = &Descriptor{ReplaceCount: 1, ReferenceCount: 3, Pairs: []Pair{{1, 1}}}
	_, err = d.Expand(vm.Shape{1}, bad, wordsStack(t, 0x20, 2, 10, 20))
	require.ErrorIs(t, err, ErrPayloadOutOfBounds, "unaligned array offset")

	// Captured array longer or shorter than the payload placeholder.
	for _, n := range []int64{3, 1} {
		st := wordsStack(t, append([]int64{0x20, n}, make([]int64, n)...)...)
		d = &Descriptor{ReplaceCount: 1, ReferenceCount: uint8(n + 1), Pairs: []Pair{{1, 1}}}
		_, err = d.Expand(vm.Shape{1}, arrayCalldata(2), st)
		require.ErrorIs(t, err, ErrPayloadOutOfBounds, "length %d over placeholder 2", n)
	}
}

// twoArrayCalldata builds f(uint256[] a, uint256[] b) with a = [0] and
// b = [7, 8].
func twoArrayCalldata() []byte {
	data := calldata(7)
	for i, v := range []int64{2 * vm.WordSize, 4 * vm.WordSize, 1, 0, 2, 7, 8} {
		copy(data[vm.SelectorSize+i*vm.WordSize:], common.BigToHash(big.NewInt(v)).Bytes())
	}
	return data
}

func TestExpandKeepsFollowingArray(t *testing.T) {
	// Raw capture of uint256[]{1, 2, 3}.
	st := wordsStack(t, 0x20, 3, 1, 2, 3)
	d := &Descriptor{ReplaceCount: 1, ReferenceCount: 4, Pairs: []Pair{{0, 1}}}
	_, err := d.Expand(vm.Shape{0, 1}, twoArrayCalldata(), st)
	var serr *SpliceError
	require.ErrorAs(t, err, &serr)
	require.ErrorIs(t, err, ErrPayloadOutOfBounds)
	require.Equal(t, 0, serr.Offset)

	// Splicing into b with a matching placeholder leaves a alone.
	st = wordsStack(t, 0x20, 2, 5, 6)
	d = &Descriptor{ReplaceCount: 1, ReferenceCount: 3, Pairs: []Pair{{1, 1}}}
	reps, err := d.Expand(vm.Shape{0, 1}, twoArrayCalldata(), st)
	require.NoError(t, err)
	out, err := Splice(twoArrayCalldata(), reps, st)
	require.NoError(t, err)
	for i, want := range []int64{0x40, 0x80, 1, 0, 2, 5, 6} {
		require.EqualValues(t, want, wordAt(out, i).Int64(), "word %d", i)
	}
}
