package handlers

import (
	"errors"
	"math/big"
	"testing"

	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	executor = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenA   = common.HexToAddress("0x3000000000000000000000000000000000000003")
	bob      = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

func newEnv(t *testing.T, kind vm.CallKind, self common.Address) *vm.Env {
	t.Helper()
	sdb, err := state.New(gethtypes.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		t.Fatalf("failed to create StateDB: %v", err)
	}
	return &vm.Env{State: sdb, Self: self, Caller: executor, Value: new(uint256.Int), Kind: kind}
}

func mustPack(t *testing.T, c interface {
	Pack(string, ...interface{}) ([]byte, error)
}, name string, args ...interface{}) []byte {
	t.Helper()
	data, err := c.Pack(name, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	return data
}

func TestMathAdd(t *testing.T) {
	m := NewMath()
	env := newEnv(t, vm.ContextPreserving, executor)

	out, err := m.Run(env, mustPack(t, m, "add", big.NewInt(2), big.NewInt(40)))
	require.NoError(t, err)
	require.Len(t, out.Data, 32)
	require.Equal(t, uint64(42), new(big.Int).SetBytes(out.Data).Uint64())
}

func TestMathOverflow(t *testing.T) {
	m := NewMath()
	env := newEnv(t, vm.ContextPreserving, executor)
	top := new(uint256.Int).SetAllOne().ToBig()

	_, err := m.Run(env, mustPack(t, m, "add", top, big.NewInt(1)))
	if !errors.Is(err, errArithmeticOverflow) {
		t.Fatalf("want overflow, got %v", err)
	}
}

func TestMathShapes(t *testing.T) {
	m := NewMath()
	require.Equal(t, vm.Shape{0}, m.Shape(m.Selector("sum")))
	require.Equal(t, vm.Shape{1}, m.Shape(m.Selector("sumWith")))
	require.Empty(t, m.Shape(m.Selector("add")))
	require.Empty(t, NewToken().Shape(NewToken().Selector("transfer")))
	require.Equal(t, vm.Shape{0}, NewFunds().Shape(NewFunds().Selector("deal")))
}

func TestMathSeqLayout(t *testing.T) {
	m := NewMath()
	env := newEnv(t, vm.ContextPreserving, executor)

	out, err := m.Run(env, mustPack(t, m, "seq", big.NewInt(3)))
	require.NoError(t, err)
	// pointer, length, elements
	require.Len(t, out.Data, 5*32)
	for i, want := range []uint64{0x20, 3, 1, 2, 3} {
		got := new(big.Int).SetBytes(out.Data[i*32 : (i+1)*32]).Uint64()
		if got != want {
			t.Fatalf("word %d: have %d want %d", i, got, want)
		}
	}
	res, err := m.Unpack("seq", out.Data)
	require.NoError(t, err)
	require.Len(t, res[0].([]*big.Int), 3)
}

func TestMathStoreLoad(t *testing.T) {
	m := NewMath()
	env := newEnv(t, vm.ContextPreserving, executor)

	_, err := m.Run(env, mustPack(t, m, "store", big.NewInt(7), big.NewInt(99)))
	require.NoError(t, err)
	require.Equal(t, common.BigToHash(big.NewInt(99)), env.State.GetState(executor, common.BigToHash(big.NewInt(7))))

	out, err := m.Run(env, mustPack(t, m, "load", big.NewInt(7)))
	require.NoError(t, err)
	require.Equal(t, uint64(99), new(big.Int).SetBytes(out.Data).Uint64())
}

func TestTokenTransfer(t *testing.T) {
	tok := NewToken()
	env := newEnv(t, vm.ValueCarrying, tokenA)
	asset.Mint(env.State, tokenA, executor, uint256.NewInt(100))

	out, err := tok.Run(env, mustPack(t, tok, "transfer", bob, big.NewInt(40)))
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenA}, out.Assets)
	require.Len(t, out.Consumed, 1)
	require.Equal(t, uint64(40), out.Consumed[0].Value.Uint64())
	require.Equal(t, uint64(60), asset.BalanceOf(env.State, tokenA, executor).Uint64())
	require.Equal(t, uint64(40), asset.BalanceOf(env.State, tokenA, bob).Uint64())

	_, err = tok.Run(env, mustPack(t, tok, "transfer", bob, big.NewInt(61)))
	var revert *RevertError
	require.ErrorAs(t, err, &revert)
}

func TestTokenDelegated(t *testing.T) {
	tok := NewToken()
	env := newEnv(t, vm.ContextPreserving, executor)
	if _, err := tok.Run(env, mustPack(t, tok, "balanceOf", bob)); !errors.Is(err, ErrTokenDelegated) {
		t.Fatalf("want ErrTokenDelegated, got %v", err)
	}
}

func TestTokenTransferCall(t *testing.T) {
	tok := NewToken()
	payload := tok.TransferCall(bob, big.NewInt(5))
	value, calldata, err := vm.SplitValue(payload)
	require.NoError(t, err)
	require.True(t, value.IsZero())
	require.Equal(t, tok.Selector("transfer"), vm.SelectorOf(calldata))
}

func TestFunds(t *testing.T) {
	f := NewFunds()
	env := newEnv(t, vm.ContextPreserving, executor)
	asset.Mint(env.State, tokenA, executor, uint256.NewInt(10))
	asset.Mint(env.State, tokenA, bob, uint256.NewInt(10))

	out, err := f.Run(env, mustPack(t, f, "spend", tokenA, big.NewInt(4), bob))
	require.NoError(t, err)
	require.Equal(t, uint64(4), out.Consumed[0].Value.Uint64())
	require.Equal(t, uint64(6), new(big.Int).SetBytes(out.Data).Uint64())

	out, err = f.Run(env, mustPack(t, f, "collect", tokenA, bob, big.NewInt(3)))
	require.NoError(t, err)
	require.Equal(t, uint64(3), out.Credited[0].Value.Uint64())
	require.Equal(t, uint64(9), asset.BalanceOf(env.State, tokenA, executor).Uint64())

	out, err = f.Run(env, mustPack(t, f, "deal", []common.Address{tokenA, bob}))
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenA, bob}, out.Assets)
}

func TestFundsNativeSpendNotConsumed(t *testing.T) {
	f := NewFunds()
	env := newEnv(t, vm.ContextPreserving, executor)
	asset.Mint(env.State, asset.Native, executor, uint256.NewInt(10))

	out, err := f.Run(env, mustPack(t, f, "spend", asset.Native, big.NewInt(4), bob))
	require.NoError(t, err)
	require.Empty(t, out.Consumed)
	require.Equal(t, uint64(4), env.State.GetBalance(bob).Uint64())
}

func TestFundsFail(t *testing.T) {
	f := NewFunds()
	_, err := f.Run(newEnv(t, vm.ContextPreserving, executor), mustPack(t, f, "fail", "slippage"))
	var revert *RevertError
	if !errors.As(err, &revert) || revert.Reason != "slippage" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestUnknownSelector(t *testing.T) {
	m := NewMath()
	env := newEnv(t, vm.ContextPreserving, executor)
	if _, err := m.Run(env, []byte{0xde, 0xad, 0xbe, 0xef}); err == nil {
		t.Fatalf("unknown selector accepted")
	}
	if _, err := m.Run(env, []byte{0x01}); err == nil {
		t.Fatalf("short calldata accepted")
	}
}

func TestNestedWithoutRunner(t *testing.T) {
	n := NewNested()
	data, err := n.PackBatch(&types.Batch{})
	require.NoError(t, err)

	_, err = n.Run(newEnv(t, vm.ContextPreserving, executor), data)
	if !errors.Is(err, vm.ErrNestedNotAllowed) {
		t.Fatalf("want ErrNestedNotAllowed, got %v", err)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"math", "token", "funds", "nested"} {
		if _, err := New(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := New("vault"); !errors.Is(err, ErrUnknownHandler) {
		t.Fatalf("want ErrUnknownHandler, got %v", err)
	}
}
