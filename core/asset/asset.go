// Package asset models the assets a batch moves: the native currency held as
// account balance and tokens whose balances live in the token's storage.
package asset

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Native is the identifier standing for the native currency.
var Native = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// balancesSlot is the storage slot of the balances mapping in a token account,
// following the usual mapping layout keccak256(holder . slot).
const balancesSlot = 0

var ErrInsufficientBalance = errors.New("insufficient asset balance")

// IsNative reports whether asset is the native currency.
func IsNative(asset common.Address) bool {
	return asset == Native
}

// BalanceSlot returns the storage key of holder's balance in a token account.
func BalanceSlot(holder common.Address) common.Hash {
	return crypto.Keccak256Hash(
		common.LeftPadBytes(holder.Bytes(), 32),
		common.LeftPadBytes([]byte{balancesSlot}, 32),
	)
}

// BalanceOf returns holder's balance of asset.
func BalanceOf(db *state.StateDB, asset, holder common.Address) *uint256.Int {
	if IsNative(asset) {
		return db.GetBalance(holder).Clone()
	}
	v := db.GetState(asset, BalanceSlot(holder))
	return new(uint256.Int).SetBytes32(v[:])
}

// Mint credits amount of asset to holder out of thin air. It is meant for
// genesis style setup and for token targets implementing issuance.
func Mint(db *state.StateDB, asset, holder common.Address, amount *uint256.Int) {
	if IsNative(asset) {
		db.AddBalance(holder, amount, tracing.BalanceChangeUnspecified)
		return
	}
	bal := BalanceOf(db, asset, holder)
	bal.Add(bal, amount)
	db.SetState(asset, BalanceSlot(holder), common.Hash(bal.Bytes32()))
}

// Transfer moves amount of asset from one holder to another.
func Transfer(db *state.StateDB, asset, from, to common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) error {
	have := BalanceOf(db, asset, from)
	if have.Lt(amount) {
		return fmt.Errorf("%w: asset %v holder %v have %v want %v", ErrInsufficientBalance, asset, from, have, amount)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	if IsNative(asset) {
		db.SubBalance(from, amount, reason)
		db.AddBalance(to, amount, reason)
		return nil
	}
	left := new(uint256.Int).Sub(have, amount)
	db.SetState(asset, BalanceSlot(from), common.Hash(left.Bytes32()))

	bal := BalanceOf(db, asset, to)
	bal.Add(bal, amount)
	db.SetState(asset, BalanceSlot(to), common.Hash(bal.Bytes32()))
	return nil
}
