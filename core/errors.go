package core

import (
	"errors"
	"fmt"

	"github.com/clydemeng/taskexec/core/quota"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
)

// List of batch errors.
var (
	ErrLengthMismatch       = errors.New("batch length mismatch")
	ErrDirectCallNotAllowed = errors.New("direct call not allowed")
	ErrInvalidInitialAsset  = errors.New("invalid initial asset")
	ErrDuplicateQuotaAsset  = errors.New("duplicate quota asset")
	ErrUnauthorizedTarget   = errors.New("unauthorized target")
	ErrInvalidDealingAsset  = errors.New("invalid dealing asset")
	ErrDepthExceeded        = errors.New("max batch depth exceeded")
	ErrFeeTransferFailed    = errors.New("fee transfer failed")

	ErrStackOverflow     = vm.ErrStackOverflow
	ErrInsufficientQuota = quota.ErrInsufficientQuota
	ErrQuotaOverflow     = quota.ErrQuotaOverflow
)

// Phase is a state of the batch lifecycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseExecuting
	PhaseSettling
	PhaseCommitted
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseExecuting:
		return "executing"
	case PhaseSettling:
		return "settling"
	case PhaseCommitted:
		return "committed"
	case PhaseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// BatchError is returned by an aborted batch. Index and Target identify the
// failing action when the batch failed while executing, Index is -1 otherwise.
type BatchError struct {
	Depth  int
	Phase  Phase
	Index  int
	Target common.Address
	Err    error
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("batch at depth %d failed %s: %v", e.Depth, e.Phase, e.Err)
	}
	return fmt.Sprintf("batch at depth %d failed at action %d (%s): %v", e.Depth, e.Index, e.Target.Hex(), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Innermost follows nested batch failures down to the deepest one, which is
// the batch whose action actually failed.
func (e *BatchError) Innermost() *BatchError {
	cur := e
	for {
		var inner *BatchError
		if !errors.As(cur.Err, &inner) {
			return cur
		}
		cur = inner
	}
}
