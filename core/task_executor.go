package core

import (
	"time"

	"github.com/clydemeng/taskexec/core/param"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/clydemeng/taskexec/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// descriptorCacheSize is the number of decoded config descriptors kept by an
// executor.
const descriptorCacheSize = 1024

// TaskExecutor runs batches of actions on a state. Every batch is atomic: it
// either commits all of its actions and fees or leaves the state as it found
// it.
//
// A TaskExecutor is bound to a single StateDB and must not run batches
// concurrently.
type TaskExecutor struct {
	config   Config
	state    *state.StateDB
	registry *vm.Registry
	parser   *param.Parser

	oracle AuthorizationOracle
	assets AssetRegistry
	fees   FeeSink
	hooks  *tracing.Hooks

	active []*batchProcess // running batches, outermost first
	logger log.Logger
}

// New creates a task executor acting as config.Self on db, resolving targets
// through registry.
func New(config *Config, db *state.StateDB, registry *vm.Registry, backend Backend) *TaskExecutor {
	conf := config.Sanitize()
	e := &TaskExecutor{
		config:   conf,
		state:    db,
		registry: registry,
		parser:   param.NewParser(descriptorCacheSize),
		oracle:   backend.Oracle,
		assets:   backend.Assets,
		fees:     backend.Fees,
		hooks:    backend.Hooks,
		logger:   log.New("executor", conf.Self),
	}
	if e.oracle == nil {
		e.oracle = denyAll{}
	}
	if e.assets == nil {
		e.assets = denyAll{}
	}
	if e.fees == nil {
		e.fees = denyAll{}
	}
	if e.hooks == nil {
		e.hooks = new(tracing.Hooks)
	}
	return e
}

// Engine implements BatchExecutor.
func (e *TaskExecutor) Engine() string { return "taskexec" }

// Config returns the sanitized configuration the executor runs with.
func (e *TaskExecutor) Config() Config { return e.config }

// ExecuteBatch runs a top-level batch.
func (e *TaskExecutor) ExecuteBatch(entry Entry, batch *types.Batch) ([]common.Address, error) {
	return e.run(0, entry, batch)
}

// RunNested runs a batch requested by an action of the batch at parent.Depth.
// The nested batch is entered the way the parent action was, with fresh
// scratch memory and its own quota ledger.
func (e *TaskExecutor) RunNested(parent *vm.Env, batch *types.Batch) ([]common.Address, error) {
	return e.run(parent.Depth+1, Entry{Kind: parent.Kind, Caller: parent.Caller}, batch)
}

func (e *TaskExecutor) run(depth int, entry Entry, batch *types.Batch) ([]common.Address, error) {
	if batch == nil {
		batch = new(types.Batch)
	}
	start := time.Now()
	p := newProcess(e, depth)
	e.active = append(e.active, p)
	defer func() { e.active = e.active[:len(e.active)-1] }()

	if err := p.validate(entry, batch); err != nil {
		return nil, p.abort(err)
	}
	snap := e.state.Snapshot()
	p.declare(batch)
	if e.hooks.OnBatchStart != nil {
		e.hooks.OnBatchStart(depth, e.config.Self, batch.Len())
	}
	err := p.execute(batch)
	if err == nil {
		err = p.settle()
	}
	if err != nil {
		e.state.RevertToSnapshot(snap)
		p.resetLedger()
		return nil, p.abort(err)
	}
	p.phase = PhaseCommitted

	// A nested batch's fees are only final once the outermost batch commits.
	if n := len(e.active); n > 1 {
		parent := e.active[n-2]
		parent.charges = append(parent.charges, p.charges...)
	} else {
		e.reportFees(p)
	}
	touched := p.dealing.List()
	batchCommittedCounter.Inc(1)
	batchTimer.UpdateSince(start)
	p.log.Debug("Batch committed", "actions", batch.Len(), "touched", len(touched), "elapsed", common.PrettyDuration(time.Since(start)))
	if e.hooks.OnBatchEnd != nil {
		e.hooks.OnBatchEnd(depth, touched, nil)
	}
	return touched, nil
}

// reportFees notifies the fee sink of every fee charged by a committed
// top-level batch and the batches nested in it.
func (e *TaskExecutor) reportFees(p *batchProcess) {
	for _, c := range p.charges {
		e.fees.Notify(e.config.Self, c.asset, c.amount)
		if e.hooks.OnFeeCharged != nil {
			e.hooks.OnFeeCharged(e.config.Self, c.asset, c.amount)
		}
		feeMeter.Mark(1)
		p.log.Info("Charged execution fee", "asset", c.asset, "amount", c.amount, "depth", c.depth, "collector", e.config.FeeCollector)
	}
}

// feeOf returns the execution fee due on consumed.
func (e *TaskExecutor) feeOf(consumed *uint256.Int) *uint256.Int {
	if e.config.FeeRate == 0 || consumed.IsZero() {
		return new(uint256.Int)
	}
	fee, _ := new(uint256.Int).MulDivOverflow(consumed, uint256.NewInt(e.config.FeeRate), uint256.NewInt(FeeBase))
	return fee
}
