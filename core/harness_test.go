package core_test

import (
	"math/big"
	"testing"

	"github.com/clydemeng/taskexec/core"
	"github.com/clydemeng/taskexec/core/param"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/clydemeng/taskexec/handlers"
	"github.com/clydemeng/taskexec/permission"
	"github.com/clydemeng/taskexec/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const level = 1

var (
	self      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	collector = common.HexToAddress("0x1000000000000000000000000000000000000002")
	bob       = common.HexToAddress("0x4000000000000000000000000000000000000004")

	mathAddr   = common.HexToAddress("0x0a00000000000000000000000000000000000001")
	fundsAddr  = common.HexToAddress("0x0a00000000000000000000000000000000000002")
	nestedAddr = common.HexToAddress("0x0a00000000000000000000000000000000000003")

	tokenA = common.HexToAddress("0x3000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x3000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x3000000000000000000000000000000000000003")
	tokenX = common.HexToAddress("0x3000000000000000000000000000000000000009") // never permitted
)

type feeNotice struct {
	payer, asset common.Address
	amount       uint64
}

type feeRecorder struct {
	notices []feeNotice
}

func (r *feeRecorder) Notify(payer, asset common.Address, amount *uint256.Int) {
	r.notices = append(r.notices, feeNotice{payer, asset, amount.Uint64()})
}

type harness struct {
	t    *testing.T
	db   *state.StateDB
	reg  *vm.Registry
	perm *permission.List
	fees *feeRecorder
	exec *core.TaskExecutor

	math   *handlers.Math
	funds  *handlers.Funds
	nested *handlers.Nested
	token  *handlers.Token

	actionsStarted int
}

func newHarness(t *testing.T, cfg core.Config) *harness {
	t.Helper()
	db, err := state.New(gethtypes.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		t.Fatalf("failed to create StateDB: %v", err)
	}
	h := &harness{
		t:      t,
		db:     db,
		reg:    vm.NewRegistry(),
		fees:   new(feeRecorder),
		math:   handlers.NewMath(),
		funds:  handlers.NewFunds(),
		nested: handlers.NewNested(),
		token:  handlers.NewToken(),
	}
	h.reg.Register(mathAddr, h.math)
	h.reg.Register(fundsAddr, h.funds)
	h.reg.Register(nestedAddr, h.nested)
	for _, tok := range []common.Address{tokenA, tokenB, tokenC, tokenX} {
		h.reg.Register(tok, h.token)
	}
	h.perm = permission.NewList().
		PermitTarget(level, mathAddr, fundsAddr, nestedAddr, tokenA, tokenB, tokenC).
		PermitInitialAsset(level, tokenA, tokenB, tokenC).
		PermitDealingAsset(level, tokenA, tokenB, tokenC)

	cfg.Self, cfg.Level = self, level
	hooks := &tracing.Hooks{
		OnActionStart: func(int, int, common.Address, []byte) { h.actionsStarted++ },
	}
	h.exec = core.New(&cfg, db, h.reg, core.Backend{Oracle: h.perm, Assets: h.perm, Fees: h.fees, Hooks: hooks})
	return h
}

func defaultHarness(t *testing.T) *harness {
	return newHarness(t, core.DefaultConfig)
}

func (h *harness) run(b *types.Batch) ([]common.Address, error) {
	return h.exec.ExecuteBatch(core.DelegateEntry(bob), b)
}

func (h *harness) pack(c interface {
	Pack(string, ...interface{}) ([]byte, error)
}, name string, args ...interface{}) []byte {
	h.t.Helper()
	data, err := c.Pack(name, args...)
	if err != nil {
		h.t.Fatalf("pack %s: %v", name, err)
	}
	return data
}

func (h *harness) storage(key int64) uint64 {
	v := h.db.GetState(self, common.BigToHash(big.NewInt(key)))
	return new(big.Int).SetBytes(v[:]).Uint64()
}

// delegate returns a context-preserving descriptor capturing n words.
func delegate(capture uint16, refs uint8, pairs ...param.Pair) common.Hash {
	return param.MustEncode(&param.Descriptor{
		Kind:           vm.ContextPreserving,
		CaptureWords:   capture,
		ReplaceCount:   uint8(len(pairs)),
		ReferenceCount: refs,
		Pairs:          pairs,
	})
}

func action(target common.Address, cfg common.Hash, payload []byte) types.Action {
	return types.Action{Target: target, Config: cfg, Payload: payload}
}

func limit(asset common.Address, v uint64) types.Amount {
	return types.NewAmount(asset, v)
}

func bn(v int64) *big.Int { return big.NewInt(v) }
