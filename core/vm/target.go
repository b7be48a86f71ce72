package vm

import (
	"github.com/clydemeng/taskexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/holiman/uint256"
)

// SelectorSize is the length of the function selector heading every call
// payload.
const SelectorSize = 4

// Selector identifies the function of a target an action invokes.
type Selector [SelectorSize]byte

// SelectorOf returns the selector heading calldata. Payloads shorter than a
// selector are right padded with zeroes, so a bare transfer has the zero
// selector.
func SelectorOf(calldata []byte) Selector {
	var sel Selector
	copy(sel[:], calldata)
	return sel
}

// Target is anything an action can invoke. Targets are polymorphic over the
// call kind: the same target may be run context-preserving or value-carrying,
// and Env tells it which.
type Target interface {
	Run(env *Env, input []byte) (*Output, error)
}

// TargetFunc adapts a plain function to the Target interface.
type TargetFunc func(env *Env, input []byte) (*Output, error)

// Run implements Target.
func (f TargetFunc) Run(env *Env, input []byte) (*Output, error) {
	return f(env, input)
}

// Shape lists the argument head words (counted in words after the selector)
// that hold dynamic arrays.
type Shape []uint8

// IsArray reports whether the head word at offset is a dynamic array.
func (s Shape) IsArray(offset uint8) bool {
	for _, o := range s {
		if o == offset {
			return true
		}
	}
	return false
}

// Shaper is implemented by targets that declare which of their arguments are
// dynamic arrays. Targets without it are treated as having only static words.
type Shaper interface {
	Shape(sel Selector) Shape
}

// Output is what a target returns on success. Data is the raw return data and
// is what gets captured into scratch memory. The remaining fields are the
// action's self-reported bookkeeping.
type Output struct {
	Data     []byte
	Assets   []common.Address // assets the action dealt with
	Consumed []types.Amount   // quota the action spent
	Credited []types.Amount   // quota the action gave back or produced
}

// BatchRunner re-enters the orchestrator for a nested batch started by a
// running target.
type BatchRunner interface {
	RunNested(parent *Env, batch *types.Batch) ([]common.Address, error)
}

// Env is the execution environment handed to a target.
type Env struct {
	State  *state.StateDB
	Self   common.Address // identity whose balances and storage the target acts on
	Caller common.Address
	Value  *uint256.Int
	Kind   CallKind
	Depth  int // nesting depth of the batch running this action

	runner BatchRunner
}

// ExecuteBatch runs a nested batch on behalf of the current action. The nested
// batch owns its own scratch memory and quota ledger, and is subject to the
// same entry checks as a top-level batch.
func (env *Env) ExecuteBatch(batch *types.Batch) ([]common.Address, error) {
	if env.runner == nil {
		return nil, ErrNestedNotAllowed
	}
	return env.runner.RunNested(env, batch)
}
