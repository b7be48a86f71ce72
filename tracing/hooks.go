// Package tracing defines the observer hooks of the task executor. Every hook
// is optional and is called synchronously from the executing batch.
package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type (
	// BatchStartHook is called once a batch has passed validation.
	BatchStartHook = func(depth int, self common.Address, actions int)

	// BatchEndHook is called when a batch commits or aborts. touched is nil
	// when err is set.
	BatchEndHook = func(depth int, touched []common.Address, err error)

	// ActionStartHook is called right before an action's target runs, with
	// the finalized (spliced) calldata.
	ActionStartHook = func(depth, index int, target common.Address, input []byte)

	// ActionEndHook is called after an action's target returned.
	ActionEndHook = func(depth, index int, output []byte, err error)

	// QuotaChangeHook is called whenever a ledger entry changes.
	QuotaChangeHook = func(depth int, asset common.Address, prev, next *uint256.Int, reason QuotaChangeReason)

	// FeeChargedHook is called once per charged asset of a batch and its
	// nested batches, after the outermost batch committed. amount is zero when
	// the fee rounded down.
	FeeChargedHook = func(payer, asset common.Address, amount *uint256.Int)
)

// Hooks bundles the observer callbacks. The zero value observes nothing.
type Hooks struct {
	OnBatchStart  BatchStartHook
	OnBatchEnd    BatchEndHook
	OnActionStart ActionStartHook
	OnActionEnd   ActionEndHook
	OnQuotaChange QuotaChangeHook
	OnFeeCharged  FeeChargedHook
}
