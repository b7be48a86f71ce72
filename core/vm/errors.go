package vm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// List of invocation errors.
var (
	ErrTargetNotExecutable   = errors.New("target not executable")
	ErrNonContractTarget     = errors.New("call data sent to non-contract target")
	ErrCallFailed            = errors.New("call failed")
	ErrCaptureLengthMismatch = errors.New("return data shorter than capture length")
	ErrInsufficientBalance   = errors.New("insufficient balance for transfer")
	ErrReservedCallKind      = errors.New("reserved call kind")
	ErrMissingValue          = errors.New("value-carrying payload shorter than value prefix")
	ErrNestedNotAllowed      = errors.New("nested batches not supported by this invoker")
)

// ErrStackOverflow is returned when a capture would exceed StackLimit words.
var ErrStackOverflow = errors.New("local stack overflow")

// InvocationError is returned when a single action cannot be invoked or when
// the invoked target fails. Err holds the failure category (one of the
// invocation sentinels above) and Reason, if set, the error produced by the
// target itself, untouched.
type InvocationError struct {
	Target common.Address
	Kind   CallKind
	Err    error
	Reason error
}

func (e *InvocationError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%s call to %s: %v: %v", e.Kind, e.Target.Hex(), e.Err, e.Reason)
	}
	return fmt.Sprintf("%s call to %s: %v", e.Kind, e.Target.Hex(), e.Err)
}

// Unwrap exposes both the category and the target's own reason to errors.Is
// and errors.As.
func (e *InvocationError) Unwrap() []error {
	if e.Reason == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Reason}
}
