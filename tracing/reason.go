package tracing

import gethtracing "github.com/ethereum/go-ethereum/core/tracing"

// QuotaChangeReason is a description of the reason why a quota ledger entry
// changed.
type QuotaChangeReason int

const (
	QuotaChangeUnspecified QuotaChangeReason = iota
	QuotaChangeDeclared                      // set from the batch's quota declaration
	QuotaChangeConsumed                      // spent by an action
	QuotaChangeCredited                      // given back or produced by an action
	QuotaChangeSettled                       // zeroed when the batch ends
)

// String returns a human-readable string for the reason.
func (r QuotaChangeReason) String() string {
	switch r {
	case QuotaChangeUnspecified:
		return "unspecified"
	case QuotaChangeDeclared:
		return "declared"
	case QuotaChangeConsumed:
		return "consumed"
	case QuotaChangeCredited:
		return "credited"
	case QuotaChangeSettled:
		return "settled"
	}
	return "unknown"
}

// BalanceChangeExecutionFee is the balance change reason recorded on the state
// when the execution fee is moved to the fee collector.
const BalanceChangeExecutionFee = gethtracing.BalanceChangeTransfer
