// Package quota implements the per-batch asset quota ledger.
//
// Remaining amounts live in the transient storage of the executor identity,
// keyed by asset and batch depth, so a nested batch never observes its
// parent's ledger and every entry disappears with the state's journal.
package quota

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientQuota = errors.New("insufficient quota")
	ErrQuotaOverflow     = errors.New("quota overflow")
)

var slotTag = []byte("taskexec.quota")

// Store is the transient key/value space the ledger is kept in.
// *state.StateDB satisfies it.
type Store interface {
	GetTransientState(addr common.Address, key common.Hash) common.Hash
	SetTransientState(addr common.Address, key, value common.Hash)
}

// Slot returns the transient storage key of asset's remaining quota at depth.
func Slot(asset common.Address, depth int) common.Hash {
	d := uint256.NewInt(uint64(depth)).Bytes32()
	return crypto.Keccak256Hash(asset.Bytes(), d[:], slotTag)
}

// Ledger tracks how much of each asset a batch may still spend.
type Ledger struct {
	store Store
	owner common.Address
	depth int

	initial map[common.Address]*uint256.Int
	assets  []common.Address // every asset ever written, first-seen order
}

// New returns an empty ledger for the batch at depth run by owner.
func New(store Store, owner common.Address, depth int) *Ledger {
	return &Ledger{
		store:   store,
		owner:   owner,
		depth:   depth,
		initial: make(map[common.Address]*uint256.Int),
	}
}

// Set declares the starting quota of asset.
func (l *Ledger) Set(asset common.Address, amount *uint256.Int) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	l.track(asset)
	l.initial[asset] = amount.Clone()
	l.write(asset, amount)
}

// Remaining returns the quota left for asset.
func (l *Ledger) Remaining(asset common.Address) *uint256.Int {
	v := l.store.GetTransientState(l.owner, Slot(asset, l.depth))
	return new(uint256.Int).SetBytes32(v[:])
}

// Initial returns the quota declared for asset at the start of the batch.
func (l *Ledger) Initial(asset common.Address) *uint256.Int {
	if v, ok := l.initial[asset]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Consumed returns how much of the initial quota has been used, saturating at
// zero when credits pushed the remaining amount above the initial one.
func (l *Ledger) Consumed(asset common.Address) *uint256.Int {
	used, underflow := new(uint256.Int).SubOverflow(l.Initial(asset), l.Remaining(asset))
	if underflow {
		return new(uint256.Int)
	}
	return used
}

// Consume spends amount of asset's quota. The ledger is left untouched when the
// remaining quota does not cover it.
func (l *Ledger) Consume(asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	have := l.Remaining(asset)
	left, underflow := new(uint256.Int).SubOverflow(have, amount)
	if underflow {
		return nil, fmt.Errorf("%w: asset %v remaining %v want %v", ErrInsufficientQuota, asset, have, amount)
	}
	l.track(asset)
	l.write(asset, left)
	return left, nil
}

// Credit adds amount to asset's quota.
func (l *Ledger) Credit(asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	have := l.Remaining(asset)
	sum, overflow := new(uint256.Int).AddOverflow(have, amount)
	if overflow {
		return nil, fmt.Errorf("%w: asset %v remaining %v credit %v", ErrQuotaOverflow, asset, have, amount)
	}
	l.track(asset)
	l.write(asset, sum)
	return sum, nil
}

// Assets returns every asset the ledger has held an entry for, in first-seen
// order.
func (l *Ledger) Assets() []common.Address {
	return append([]common.Address(nil), l.assets...)
}

// Reset zeroes the entry of every asset the ledger has ever held.
func (l *Ledger) Reset() {
	for _, asset := range l.assets {
		l.store.SetTransientState(l.owner, Slot(asset, l.depth), common.Hash{})
	}
}

func (l *Ledger) track(asset common.Address) {
	if _, ok := l.initial[asset]; ok {
		return
	}
	l.initial[asset] = new(uint256.Int)
	l.assets = append(l.assets, asset)
}

func (l *Ledger) write(asset common.Address, v *uint256.Int) {
	l.store.SetTransientState(l.owner, Slot(asset, l.depth), common.Hash(v.Bytes32()))
}
