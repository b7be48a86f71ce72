// Package permission provides an in-memory authorization oracle and asset
// registry keyed by permission tier.
package permission

import (
	"sync"

	"github.com/clydemeng/taskexec/core/vm"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// call identifies a single function of a target.
type call struct {
	target common.Address
	sel    vm.Selector
}

type tier struct {
	calls   mapset.Set[call]
	targets mapset.Set[common.Address] // every selector permitted
	initial mapset.Set[common.Address]
	touched mapset.Set[common.Address]
}

func newTier() *tier {
	return &tier{
		calls:   mapset.NewThreadUnsafeSet[call](),
		targets: mapset.NewThreadUnsafeSet[common.Address](),
		initial: mapset.NewThreadUnsafeSet[common.Address](),
		touched: mapset.NewThreadUnsafeSet[common.Address](),
	}
}

// List is a permission table. Permissions granted to a tier are not inherited
// by other tiers. It is safe for concurrent use.
type List struct {
	lock  sync.RWMutex
	tiers map[uint64]*tier
}

// NewList returns an empty list that denies everything.
func NewList() *List {
	return &List{tiers: make(map[uint64]*tier)}
}

func (l *List) tier(level uint64) *tier {
	t, ok := l.tiers[level]
	if !ok {
		t = newTier()
		l.tiers[level] = t
	}
	return t
}

// PermitCall allows level to invoke the given selectors of target.
func (l *List) PermitCall(level uint64, target common.Address, sels ...vm.Selector) *List {
	l.lock.Lock()
	defer l.lock.Unlock()

	t := l.tier(level)
	for _, sel := range sels {
		t.calls.Add(call{target, sel})
	}
	return l
}

// PermitTarget allows level to invoke any selector of target.
func (l *List) PermitTarget(level uint64, targets ...common.Address) *List {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.tier(level).targets.Append(targets...)
	return l
}

// PermitInitialAsset allows level to declare a quota for the given assets.
func (l *List) PermitInitialAsset(level uint64, assets ...common.Address) *List {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.tier(level).initial.Append(assets...)
	return l
}

// PermitDealingAsset allows actions run at level to deal with the given assets.
func (l *List) PermitDealingAsset(level uint64, assets ...common.Address) *List {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.tier(level).touched.Append(assets...)
	return l
}

// Revoke drops every permission of level.
func (l *List) Revoke(level uint64) {
	l.lock.Lock()
	defer l.lock.Unlock()

	delete(l.tiers, level)
}

// IsPermitted reports whether level may invoke sel on target.
func (l *List) IsPermitted(level uint64, target common.Address, sel vm.Selector) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()

	t, ok := l.tiers[level]
	if !ok {
		return false
	}
	return t.targets.Contains(target) || t.calls.Contains(call{target, sel})
}

// IsPermittedInitialAsset reports whether level may declare a quota for asset.
func (l *List) IsPermittedInitialAsset(level uint64, asset common.Address) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()

	t, ok := l.tiers[level]
	return ok && t.initial.Contains(asset)
}

// IsPermittedTouchedAsset reports whether actions run at level may deal with
// asset.
func (l *List) IsPermittedTouchedAsset(level uint64, asset common.Address) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()

	t, ok := l.tiers[level]
	return ok && t.touched.Contains(asset)
}
