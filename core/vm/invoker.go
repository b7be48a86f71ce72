package vm

import (
	"errors"
	"fmt"

	"github.com/clydemeng/taskexec/core/asset"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Invoker executes single actions against a state, dispatching on the call
// kind. It does not snapshot or revert: atomicity is owned by the batch.
type Invoker struct {
	state    *state.StateDB
	registry *Registry
	runner   BatchRunner
}

// NewInvoker returns an invoker over db resolving targets through registry.
// runner, if non-nil, is handed to targets so they can request nested batches;
// whether such a request is admitted is up to the runner.
func NewInvoker(db *state.StateDB, registry *Registry, runner BatchRunner) *Invoker {
	return &Invoker{state: db, registry: registry, runner: runner}
}

// Invoke runs the action described by call and returns the target's output.
// A nil output from a successful target is normalised to an empty one.
func (in *Invoker) Invoke(call *CallMetadata) (*Output, error) {
	switch call.Kind {
	case ContextPreserving:
		return in.delegate(call)
	case ValueCarrying:
		return in.call(call)
	default:
		return nil, &InvocationError{Target: call.To, Kind: call.Kind, Err: ErrReservedCallKind}
	}
}

// delegate runs the target under the executor's own identity.
func (in *Invoker) delegate(call *CallMetadata) (*Output, error) {
	target, ok := in.registry.Lookup(call.To)
	if !ok {
		return nil, &InvocationError{Target: call.To, Kind: call.Kind, Err: ErrTargetNotExecutable}
	}
	env := &Env{
		State:  in.state,
		Self:   call.From,
		Caller: call.From,
		Value:  new(uint256.Int),
		Kind:   ContextPreserving,
		Depth:  call.Depth,
		runner: in.runner,
	}
	return in.run(target, env, call)
}

// call runs the target as an independent callee, moving the forwarded value
// first.
func (in *Invoker) call(call *CallMetadata) (*Output, error) {
	value := call.Value
	if value == nil {
		value = new(uint256.Int)
	}
	target, ok := in.registry.Lookup(call.To)
	if !ok && len(call.Data) > 0 {
		return nil, &InvocationError{Target: call.To, Kind: call.Kind, Err: ErrNonContractTarget}
	}
	if !value.IsZero() {
		if err := in.transfer(call.From, call.To, value); err != nil {
			return nil, &InvocationError{Target: call.To, Kind: call.Kind, Err: err}
		}
	}
	if !ok {
		log.Trace("Plain value transfer", "from", call.From, "to", call.To, "value", value)
		return new(Output), nil
	}
	env := &Env{
		State:  in.state,
		Self:   call.To,
		Caller: call.From,
		Value:  value,
		Kind:   ValueCarrying,
		Depth:  call.Depth,
		runner: in.runner,
	}
	return in.run(target, env, call)
}

func (in *Invoker) run(target Target, env *Env, call *CallMetadata) (*Output, error) {
	out, err := target.Run(env, call.Data)
	if err != nil {
		return nil, &InvocationError{Target: call.To, Kind: call.Kind, Err: ErrCallFailed, Reason: err}
	}
	if out == nil {
		out = new(Output)
	}
	return out, nil
}

func (in *Invoker) transfer(from, to common.Address, value *uint256.Int) error {
	if err := asset.Transfer(in.state, asset.Native, from, to, value, tracing.BalanceChangeTransfer); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	return nil
}

// Capture appends the first n words of the action's return data to stack.
// Short return data is reported as an invocation failure of the action, a
// full stack as ErrStackOverflow.
func Capture(stack *LocalStack, call *CallMetadata, out *Output, n int) error {
	if n == 0 {
		return nil
	}
	err := stack.PushWords(out.Data, n)
	if errors.Is(err, ErrCaptureLengthMismatch) {
		return &InvocationError{Target: call.To, Kind: call.Kind, Err: err}
	}
	return err
}
