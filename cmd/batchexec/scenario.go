package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/clydemeng/taskexec/core"
	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/param"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/clydemeng/taskexec/handlers"
	"github.com/clydemeng/taskexec/permission"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/state"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/naoina/toml"
	"gopkg.in/yaml.v3"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type executorConfig struct {
	Self         common.Address `yaml:"Self"`
	Level        uint64         `yaml:"Level"`
	FeeRate      uint64         `yaml:"FeeRate"`
	FeeCollector common.Address `yaml:"FeeCollector"`
	MaxDepth     *int           `yaml:"MaxDepth"`
}

type targetConfig struct {
	Address common.Address `yaml:"Address"`
	Handler string         `yaml:"Handler"`
}

type permissionConfig struct {
	Targets       []common.Address `yaml:"Targets"`
	InitialAssets []common.Address `yaml:"InitialAssets"`
	DealingAssets []common.Address `yaml:"DealingAssets"`
}

type balanceConfig struct {
	Asset  common.Address `yaml:"Asset"`
	Holder common.Address `yaml:"Holder"`
	Amount string         `yaml:"Amount"`
}

type amountConfig struct {
	Asset  common.Address `yaml:"Asset"`
	Amount string         `yaml:"Amount"`
}

type pairConfig struct {
	Offset uint8 `yaml:"Offset"`
	Index  uint8 `yaml:"Index"`
}

type actionConfig struct {
	Target common.Address `yaml:"Target"`

	// Descriptor, either raw or by fields.
	Config     string       `yaml:"Config"`
	Kind       string       `yaml:"Kind"` // "delegate" or "call"
	Static     bool         `yaml:"Static"`
	Capture    uint16       `yaml:"Capture"`
	References *uint8       `yaml:"References"` // defaults to the number of pairs
	Pairs      []pairConfig `yaml:"Pairs"`

	// Payload, either raw or as an ABI call of the target's handler.
	Payload string   `yaml:"Payload"`
	Method  string   `yaml:"Method"`
	Args    []string `yaml:"Args"`
	Value   string   `yaml:"Value"` // forwarded by value-carrying calls
}

type expectConfig struct {
	Outcome string `yaml:"Outcome"` // "committed" or "aborted"
	Error   string `yaml:"Error"`   // substring of the abort error
}

// scenario is a self-contained batch run: the world it starts from, the
// executor's permissions and the batch itself.
type scenario struct {
	Executor    executorConfig   `yaml:"Executor"`
	Targets     []targetConfig   `yaml:"Targets"`
	Permissions permissionConfig `yaml:"Permissions"`
	Balances    []balanceConfig  `yaml:"Balances"`
	Quota       []amountConfig   `yaml:"Quota"`
	Actions     []actionConfig   `yaml:"Actions"`
	Expect      expectConfig     `yaml:"Expect"`
}

// loadScenario reads a TOML or, by extension, YAML scenario file.
func loadScenario(file string) (*scenario, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := new(scenario)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bufio.NewReader(f))
		dec.KnownFields(true)
		err = dec.Decode(s)
	default:
		err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(s)
		// Add file name to errors that have a line number.
		if _, ok := err.(*toml.LineError); ok {
			err = errors.New(file + ", " + err.Error())
		}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// abiTarget is a handler calls can be encoded for by method name.
type abiTarget interface {
	Method(name string) (abi.Method, bool)
	Pack(name string, args ...interface{}) ([]byte, error)
}

// world is a scenario materialised into a state, an executor and a batch.
type world struct {
	db       *state.StateDB
	exec     *core.TaskExecutor
	batch    *types.Batch
	targets  map[common.Address]string
	fees     *feeLog
	balances []balanceConfig
}

type feeEntry struct {
	payer, asset common.Address
	amount       *uint256.Int
}

type feeLog struct {
	entries []feeEntry
}

func (l *feeLog) Notify(payer, asset common.Address, amount *uint256.Int) {
	l.entries = append(l.entries, feeEntry{payer, asset, amount.Clone()})
}

func (s *scenario) build() (*world, error) {
	db, err := state.New(gethtypes.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		return nil, err
	}
	w := &world{
		db:       db,
		targets:  make(map[common.Address]string),
		fees:     new(feeLog),
		balances: s.Balances,
	}
	registry := vm.NewRegistry()
	impls := make(map[common.Address]vm.Target)
	for _, t := range s.Targets {
		impl, err := handlers.New(t.Handler)
		if err != nil {
			return nil, fmt.Errorf("target %v: %w", t.Address, err)
		}
		registry.Register(t.Address, impl)
		impls[t.Address] = impl
		w.targets[t.Address] = t.Handler
	}
	for _, b := range s.Balances {
		amount, err := parseAmount(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance of %v: %w", b.Holder, err)
		}
		asset.Mint(db, b.Asset, b.Holder, amount)
	}
	level := s.Executor.Level
	perms := permission.NewList().
		PermitTarget(level, s.Permissions.Targets...).
		PermitInitialAsset(level, s.Permissions.InitialAssets...).
		PermitDealingAsset(level, s.Permissions.DealingAssets...)

	cfg := core.DefaultConfig
	cfg.Self, cfg.Level = s.Executor.Self, level
	cfg.FeeRate, cfg.FeeCollector = s.Executor.FeeRate, s.Executor.FeeCollector
	if s.Executor.MaxDepth != nil {
		cfg.MaxDepth = *s.Executor.MaxDepth
	}
	w.exec = core.New(&cfg, db, registry, core.Backend{Oracle: perms, Assets: perms, Fees: w.fees})

	quota := make([]types.Amount, 0, len(s.Quota))
	for _, q := range s.Quota {
		amount, err := parseAmount(q.Amount)
		if err != nil {
			return nil, fmt.Errorf("quota of %v: %w", q.Asset, err)
		}
		quota = append(quota, types.Amount{Asset: q.Asset, Value: amount})
	}
	actions := make([]types.Action, 0, len(s.Actions))
	for i, a := range s.Actions {
		action, err := a.build(impls[a.Target])
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	w.batch = types.NewBatch(quota, actions)
	return w, nil
}

func (a *actionConfig) kind() (vm.CallKind, error) {
	switch a.Kind {
	case "", "delegate":
		return vm.ContextPreserving, nil
	case "call":
		return vm.ValueCarrying, nil
	default:
		return 0, fmt.Errorf("unknown call kind %q", a.Kind)
	}
}

func (a *actionConfig) descriptor() (common.Hash, vm.CallKind, error) {
	if a.Config != "" {
		raw, err := hexutil.Decode(a.Config)
		if err != nil {
			return common.Hash{}, 0, fmt.Errorf("config: %w", err)
		}
		if len(raw) != common.HashLength {
			return common.Hash{}, 0, fmt.Errorf("config: %d bytes, want %d", len(raw), common.HashLength)
		}
		cfg := common.BytesToHash(raw)
		d, err := param.Parse(cfg)
		if err != nil {
			return common.Hash{}, 0, err
		}
		return cfg, d.Kind, nil
	}
	kind, err := a.kind()
	if err != nil {
		return common.Hash{}, 0, err
	}
	d := &param.Descriptor{Static: a.Static, Kind: kind, CaptureWords: a.Capture}
	for _, p := range a.Pairs {
		d.Pairs = append(d.Pairs, param.Pair{Offset: p.Offset, Index: p.Index})
	}
	d.ReferenceCount = uint8(len(d.Pairs))
	if a.References != nil {
		d.ReferenceCount = *a.References
	}
	cfg, err := param.Encode(d)
	return cfg, kind, err
}

func (a *actionConfig) calldata(impl vm.Target) ([]byte, error) {
	if a.Payload != "" {
		return hexutil.Decode(a.Payload)
	}
	if a.Method == "" {
		return nil, nil
	}
	target, ok := impl.(abiTarget)
	if !ok {
		return nil, fmt.Errorf("method %q on a target without a handler", a.Method)
	}
	m, ok := target.Method(a.Method)
	if !ok {
		return nil, fmt.Errorf("unknown method %q", a.Method)
	}
	if len(a.Args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, have %d", a.Method, len(m.Inputs), len(a.Args))
	}
	args := make([]interface{}, len(a.Args))
	for i, in := range m.Inputs {
		v, err := parseArg(in.Type, a.Args[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %q: %w", a.Method, in.Name, err)
		}
		args[i] = v
	}
	return target.Pack(a.Method, args...)
}

func (a *actionConfig) build(impl vm.Target) (types.Action, error) {
	cfg, kind, err := a.descriptor()
	if err != nil {
		return types.Action{}, err
	}
	data, err := a.calldata(impl)
	if err != nil {
		return types.Action{}, err
	}
	if kind == vm.ValueCarrying {
		value := new(uint256.Int)
		if a.Value != "" {
			if value, err = parseAmount(a.Value); err != nil {
				return types.Action{}, fmt.Errorf("value: %w", err)
			}
		}
		data = vm.JoinValue(value, data)
	} else if a.Value != "" {
		return types.Action{}, errors.New("value on a context-preserving action")
	}
	return types.Action{Target: a.Target, Config: cfg, Payload: data}, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	amount, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", s)
	}
	return amount, nil
}
