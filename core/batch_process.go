package core

import (
	"fmt"

	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/param"
	"github.com/clydemeng/taskexec/core/quota"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/clydemeng/taskexec/tracing"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// batchProcess is the state of a single batch run. Scratch memory, quota
// ledger and touched assets are owned by it and never outlive the batch.
type batchProcess struct {
	exec  *TaskExecutor
	depth int
	phase Phase

	invoker *vm.Invoker
	stack   *vm.LocalStack
	ledger  *quota.Ledger
	dealing *asset.DealingSet

	declared []common.Address
	charges  []feeCharge // own and committed nested fees, reported on top-level commit
	log      log.Logger
}

type feeCharge struct {
	depth  int
	asset  common.Address
	amount *uint256.Int
}

func newProcess(e *TaskExecutor, depth int) *batchProcess {
	return &batchProcess{
		exec:    e,
		depth:   depth,
		phase:   PhaseIdle,
		invoker: vm.NewInvoker(e.state, e.registry, e),
		stack:   vm.NewLocalStack(),
		ledger:  quota.New(e.state, e.config.Self, depth),
		dealing: asset.NewDealingSet(),
		log:     e.logger.With("depth", depth),
	}
}

// validate checks the batch shape and entry before any state is touched.
func (p *batchProcess) validate(entry Entry, b *types.Batch) error {
	p.phase = PhaseValidating
	if len(b.Targets) != len(b.Configs) || len(b.Targets) != len(b.Payloads) {
		return p.fail(-1, common.Address{}, fmt.Errorf("%w: %d targets, %d configs, %d payloads",
			ErrLengthMismatch, len(b.Targets), len(b.Configs), len(b.Payloads)))
	}
	if len(b.QuotaAssets) != len(b.QuotaAmounts) {
		return p.fail(-1, common.Address{}, fmt.Errorf("%w: %d quota assets, %d quota amounts",
			ErrLengthMismatch, len(b.QuotaAssets), len(b.QuotaAmounts)))
	}
	if entry.Kind != vm.ContextPreserving {
		return p.fail(-1, common.Address{}, fmt.Errorf("%w: entered %s by %v", ErrDirectCallNotAllowed, entry.Kind, entry.Caller))
	}
	if p.depth > p.exec.config.MaxDepth {
		return p.fail(-1, common.Address{}, fmt.Errorf("%w: depth %d, max %d", ErrDepthExceeded, p.depth, p.exec.config.MaxDepth))
	}
	seen := mapset.NewThreadUnsafeSetWithSize[common.Address](len(b.QuotaAssets))
	for _, a := range b.QuotaAssets {
		if asset.IsNative(a) || !p.exec.assets.IsPermittedInitialAsset(p.exec.config.Level, a) {
			return p.fail(-1, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidInitialAsset, a))
		}
		if !seen.Add(a) {
			return p.fail(-1, common.Address{}, fmt.Errorf("%w: %v", ErrDuplicateQuotaAsset, a))
		}
	}
	return nil
}

// declare loads the batch's quota declaration into the ledger.
func (p *batchProcess) declare(b *types.Batch) {
	for i, a := range b.QuotaAssets {
		amount := b.QuotaAmounts[i]
		if amount == nil {
			amount = new(uint256.Int)
		}
		p.ledger.Set(a, amount)
		p.declared = append(p.declared, a)
		p.quotaChanged(a, new(uint256.Int), amount, tracing.QuotaChangeDeclared)
	}
}

func (p *batchProcess) execute(b *types.Batch) error {
	p.phase = PhaseExecuting
	for i := 0; i < b.Len(); i++ {
		action := b.Action(i)
		if err := p.apply(i, action); err != nil {
			return p.fail(i, action.Target, err)
		}
		actionMeter.Mark(1)
	}
	return nil
}

// apply runs a single action: decode its descriptor, link earlier results
// into its payload, invoke it and account for what it reports.
func (p *batchProcess) apply(index int, action types.Action) error {
	desc, err := p.exec.parser.Parse(action.Config)
	if err != nil {
		return err
	}
	call := &vm.CallMetadata{
		From:  p.exec.config.Self,
		To:    action.Target,
		Kind:  desc.Kind,
		Data:  action.Payload,
		Depth: p.depth,
	}
	if desc.Kind == vm.ValueCarrying {
		value, calldata, err := vm.SplitValue(action.Payload)
		if err != nil {
			return &vm.InvocationError{Target: action.Target, Kind: desc.Kind, Err: err}
		}
		call.Value, call.Data = value, calldata
	}
	sel := vm.SelectorOf(call.Data)
	if !p.exec.oracle.IsPermitted(p.exec.config.Level, action.Target, sel) {
		return fmt.Errorf("%w: %v selector %x", ErrUnauthorizedTarget, action.Target, sel[:])
	}
	reps, err := desc.Expand(p.exec.registry.ShapeOf(action.Target, sel), call.Data, p.stack)
	if err != nil {
		return err
	}
	if call.Data, err = param.Splice(call.Data, reps, p.stack); err != nil {
		return err
	}
	p.log.Debug("Executing action", "index", index, "target", action.Target, "kind", desc.Kind, "replacements", len(reps))

	if p.exec.hooks.OnActionStart != nil {
		p.exec.hooks.OnActionStart(p.depth, index, action.Target, call.Data)
	}
	out, err := p.invoker.Invoke(call)
	if p.exec.hooks.OnActionEnd != nil {
		var data []byte
		if out != nil {
			data = out.Data
		}
		p.exec.hooks.OnActionEnd(p.depth, index, data, err)
	}
	if err != nil {
		return err
	}
	if err := vm.Capture(p.stack, call, out, int(desc.CaptureWords)); err != nil {
		return err
	}
	for _, a := range out.Assets {
		if !p.exec.assets.IsPermittedTouchedAsset(p.exec.config.Level, a) {
			return fmt.Errorf("%w: %v", ErrInvalidDealingAsset, a)
		}
	}
	p.dealing.Add(out.Assets...)
	return p.account(out)
}

// account applies the quota an action consumed and credited.
func (p *batchProcess) account(out *vm.Output) error {
	for _, c := range out.Consumed {
		if c.Value == nil {
			continue
		}
		prev := p.ledger.Remaining(c.Asset)
		next, err := p.ledger.Consume(c.Asset, c.Value)
		if err != nil {
			return err
		}
		p.quotaChanged(c.Asset, prev, next, tracing.QuotaChangeConsumed)
	}
	for _, c := range out.Credited {
		if c.Value == nil {
			continue
		}
		prev := p.ledger.Remaining(c.Asset)
		next, err := p.ledger.Credit(c.Asset, c.Value)
		if err != nil {
			return err
		}
		p.quotaChanged(c.Asset, prev, next, tracing.QuotaChangeCredited)
	}
	return nil
}

// settle moves the execution fee on every declared asset to the collector and
// zeroes the ledger. Every asset with nonzero consumption is charged while a
// fee rate is set, even when its fee rounds down to zero; only nonzero fees
// are transferred. Charges are reported once the outermost batch committed.
func (p *batchProcess) settle() error {
	p.phase = PhaseSettling
	var (
		self      = p.exec.config.Self
		collector = p.exec.config.FeeCollector
	)
	for _, a := range p.declared {
		if p.exec.config.FeeRate == 0 || p.ledger.Initial(a).IsZero() {
			continue
		}
		consumed := p.ledger.Consumed(a)
		if consumed.IsZero() {
			continue
		}
		fee := p.exec.feeOf(consumed)
		if !fee.IsZero() {
			if err := asset.Transfer(p.exec.state, a, self, collector, fee, tracing.BalanceChangeExecutionFee); err != nil {
				return p.fail(-1, common.Address{}, fmt.Errorf("%w: asset %v fee %v: %v", ErrFeeTransferFailed, a, fee, err))
			}
		}
		p.charges = append(p.charges, feeCharge{depth: p.depth, asset: a, amount: fee})
	}
	p.resetLedger()
	return nil
}

// resetLedger zeroes every ledger entry the batch wrote.
func (p *batchProcess) resetLedger() {
	for _, a := range p.ledger.Assets() {
		if prev := p.ledger.Remaining(a); !prev.IsZero() {
			p.quotaChanged(a, prev, new(uint256.Int), tracing.QuotaChangeSettled)
		}
	}
	p.ledger.Reset()
}

func (p *batchProcess) quotaChanged(a common.Address, prev, next *uint256.Int, reason tracing.QuotaChangeReason) {
	if p.exec.hooks.OnQuotaChange != nil {
		p.exec.hooks.OnQuotaChange(p.depth, a, prev, next, reason)
	}
}

// fail wraps err into a BatchError for the current phase. Errors that already
// are this batch's BatchError pass through.
func (p *batchProcess) fail(index int, target common.Address, err error) error {
	if berr, ok := err.(*BatchError); ok && berr.Depth == p.depth {
		return berr
	}
	return &BatchError{Depth: p.depth, Phase: p.phase, Index: index, Target: target, Err: err}
}

// abort finishes a failed batch. The caller has already reverted the state.
func (p *batchProcess) abort(err error) error {
	p.phase = PhaseAborted
	batchAbortedCounter.Inc(1)
	if p.depth == 0 {
		p.log.Warn("Batch aborted", "err", err)
	} else {
		p.log.Debug("Nested batch aborted", "err", err)
	}
	if p.exec.hooks.OnBatchEnd != nil {
		p.exec.hooks.OnBatchEnd(p.depth, nil, err)
	}
	return err
}
