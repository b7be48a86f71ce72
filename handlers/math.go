package handlers

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/holiman/uint256"
)

var errArithmeticOverflow = errors.New("arithmetic overflow")

const mathABI = `[
	{"type":"function","name":"add","inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mul","inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sum","inputs":[{"name":"xs","type":"uint256[]"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sumWith","inputs":[{"name":"base","type":"uint256"},{"name":"xs","type":"uint256[]"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"seq","inputs":[{"name":"n","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"store","inputs":[{"name":"key","type":"uint256"},{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"load","inputs":[{"name":"key","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Math is a stateless arithmetic library plus a key/value store kept in the
// storage of the identity it runs as.
type Math struct {
	*contract
}

// NewMath returns a math handler.
func NewMath() *Math {
	m := new(Math)
	m.contract = newContract("math", mathABI, map[string]method{
		"add":     m.add,
		"mul":     m.mul,
		"sum":     m.sum,
		"sumWith": m.sumWith,
		"seq":     m.seq,
		"store":   m.store,
		"load":    m.load,
	})
	return m
}

func (m *Math) add(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	a, b := toU256(args[0]), toU256(args[1])
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, nil, errArithmeticOverflow
	}
	return nil, []interface{}{sum.ToBig()}, nil
}

func (m *Math) mul(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	a, b := toU256(args[0]), toU256(args[1])
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, nil, errArithmeticOverflow
	}
	return nil, []interface{}{prod.ToBig()}, nil
}

func (m *Math) sum(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	total, err := sumOf(new(uint256.Int), args[0].([]*big.Int))
	if err != nil {
		return nil, nil, err
	}
	return nil, []interface{}{total.ToBig()}, nil
}

func (m *Math) sumWith(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	total, err := sumOf(toU256(args[0]), args[1].([]*big.Int))
	if err != nil {
		return nil, nil, err
	}
	return nil, []interface{}{total.ToBig()}, nil
}

// seq returns 1..n. n is bounded so the result can always be captured.
func (m *Math) seq(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	n := args[0].(*big.Int)
	if !n.IsUint64() || n.Uint64() > vm.StackLimit-2 {
		return nil, nil, &RevertError{Reason: fmt.Sprintf("sequence too long: %v", n)}
	}
	xs := make([]*big.Int, n.Uint64())
	for i := range xs {
		xs[i] = big.NewInt(int64(i + 1))
	}
	return nil, []interface{}{xs}, nil
}

func (m *Math) store(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	key, value := toU256(args[0]), toU256(args[1])
	env.State.SetState(env.Self, key.Bytes32(), value.Bytes32())
	return nil, nil, nil
}

func (m *Math) load(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	key := toU256(args[0])
	v := env.State.GetState(env.Self, key.Bytes32())
	return nil, []interface{}{new(big.Int).SetBytes(v[:])}, nil
}

func sumOf(total *uint256.Int, xs []*big.Int) (*uint256.Int, error) {
	for _, x := range xs {
		if _, overflow := total.AddOverflow(total, toU256(x)); overflow {
			return nil, errArithmeticOverflow
		}
	}
	return total, nil
}

// toU256 converts an unpacked uint256 argument. ABI decoding guarantees it
// fits.
func toU256(arg interface{}) *uint256.Int {
	v, _ := uint256.FromBig(arg.(*big.Int))
	return v
}

