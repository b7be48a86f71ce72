package core

import (
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/clydemeng/taskexec/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AuthorizationOracle decides which functions of which targets a permission
// tier may invoke.
type AuthorizationOracle interface {
	IsPermitted(level uint64, target common.Address, sel vm.Selector) bool
}

// AssetRegistry decides which assets a permission tier may declare a quota
// for and which assets its actions may deal with.
type AssetRegistry interface {
	IsPermittedInitialAsset(level uint64, asset common.Address) bool
	IsPermittedTouchedAsset(level uint64, asset common.Address) bool
}

// FeeSink is notified of every execution fee charged by a committed batch.
type FeeSink interface {
	Notify(payer, asset common.Address, amount *uint256.Int)
}

// Backend bundles the collaborators of the task executor. A nil Oracle or
// Assets denies everything, a nil Fees or Hooks is ignored.
type Backend struct {
	Oracle AuthorizationOracle
	Assets AssetRegistry
	Fees   FeeSink
	Hooks  *tracing.Hooks
}

type denyAll struct{}

func (denyAll) IsPermitted(uint64, common.Address, vm.Selector) bool { return false }
func (denyAll) IsPermittedInitialAsset(uint64, common.Address) bool { return false }
func (denyAll) IsPermittedTouchedAsset(uint64, common.Address) bool { return false }
func (denyAll) Notify(common.Address, common.Address, *uint256.Int) {}
