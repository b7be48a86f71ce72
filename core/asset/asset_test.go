package asset

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	token = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func newState(t *testing.T) *state.StateDB {
	t.Helper()
	sdb, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	require.NoError(t, err)
	return sdb
}

func TestTokenTransfer(t *testing.T) {
	sdb := newState(t)
	Mint(sdb, token, alice, uint256.NewInt(100))

	require.NoError(t, Transfer(sdb, token, alice, bob, uint256.NewInt(30), tracing.BalanceChangeTransfer))
	require.EqualValues(t, 70, BalanceOf(sdb, token, alice).Uint64())
	require.EqualValues(t, 30, BalanceOf(sdb, token, bob).Uint64())

	// Balances are plain storage of the token account.
	require.Equal(t, common.Hash(uint256.NewInt(30).Bytes32()), sdb.GetState(token, BalanceSlot(bob)))

	err := Transfer(sdb, token, bob, alice, uint256.NewInt(31), tracing.BalanceChangeTransfer)
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	require.EqualValues(t, 30, BalanceOf(sdb, token, bob).Uint64())
}

func TestNativeTransfer(t *testing.T) {
	sdb := newState(t)
	Mint(sdb, Native, alice, uint256.NewInt(5))
	require.NoError(t, Transfer(sdb, Native, alice, bob, uint256.NewInt(5), tracing.BalanceChangeTransfer))
	require.True(t, sdb.GetBalance(alice).IsZero())
	require.EqualValues(t, 5, sdb.GetBalance(bob).Uint64())
	require.ErrorIs(t, Transfer(sdb, Native, alice, bob, uint256.NewInt(1), tracing.BalanceChangeTransfer), ErrInsufficientBalance)
}

func TestSelfTransfer(t *testing.T) {
	sdb := newState(t)
	Mint(sdb, token, alice, uint256.NewInt(9))
	require.NoError(t, Transfer(sdb, token, alice, alice, uint256.NewInt(9), tracing.BalanceChangeTransfer))
	require.EqualValues(t, 9, BalanceOf(sdb, token, alice).Uint64())
}

func TestDealingSetDedup(t *testing.T) {
	a, b, c := alice, bob, token
	s := NewDealingSet()
	require.Equal(t, 2, s.Add(a, b))
	require.Equal(t, 1, s.Add(a, c))
	require.Equal(t, 0, s.Add(c, c))
	require.Equal(t, []common.Address{a, b, c}, s.List())
	require.True(t, s.Contains(b))
	require.Equal(t, 3, s.Len())
}
