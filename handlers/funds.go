package handlers

import (
	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
)

const fundsABI = `[
	{"type":"function","name":"spend","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"collect","inputs":[{"name":"asset","type":"address"},{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balance","inputs":[{"name":"asset","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deal","inputs":[{"name":"assets","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"fail","inputs":[{"name":"reason","type":"string"}],"outputs":[]}
]`

// Funds moves assets held by the identity it runs as. Run context-preserving
// it manages the executor's own holdings and reports every movement to the
// quota ledger.
type Funds struct {
	*contract
}

// NewFunds returns a funds handler.
func NewFunds() *Funds {
	f := new(Funds)
	f.contract = newContract("funds", fundsABI, map[string]method{
		"spend":   f.spend,
		"collect": f.collect,
		"balance": f.balance,
		"deal":    f.deal,
		"fail":    f.fail,
	})
	return f
}

// spend sends amount of an asset to a receiver and returns the holder's
// remaining balance.
func (f *Funds) spend(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	a, amount, to := args[0].(common.Address), toU256(args[1]), args[2].(common.Address)
	if err := asset.Transfer(env.State, a, env.Self, to, amount, tracing.BalanceChangeTransfer); err != nil {
		return nil, nil, &RevertError{Reason: err.Error()}
	}
	out := &vm.Output{Assets: []common.Address{a}}
	if !asset.IsNative(a) {
		out.Consumed = []types.Amount{{Asset: a, Value: amount}}
	}
	return out, []interface{}{asset.BalanceOf(env.State, a, env.Self).ToBig()}, nil
}

// collect pulls amount of an asset from a holder and returns the collected
// amount, crediting it back to the quota.
func (f *Funds) collect(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	a, from, amount := args[0].(common.Address), args[1].(common.Address), toU256(args[2])
	if err := asset.Transfer(env.State, a, from, env.Self, amount, tracing.BalanceChangeTransfer); err != nil {
		return nil, nil, &RevertError{Reason: err.Error()}
	}
	out := &vm.Output{Assets: []common.Address{a}}
	if !asset.IsNative(a) {
		out.Credited = []types.Amount{{Asset: a, Value: amount}}
	}
	return out, []interface{}{amount.ToBig()}, nil
}

func (f *Funds) balance(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	return nil, []interface{}{asset.BalanceOf(env.State, args[0].(common.Address), env.Self).ToBig()}, nil
}

// deal reports the given assets as touched without moving anything.
func (f *Funds) deal(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	return &vm.Output{Assets: args[0].([]common.Address)}, nil, nil
}

func (f *Funds) fail(_ *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	return nil, nil, &RevertError{Reason: args[0].(string)}
}
