package handlers

import (
	"errors"
	"math/big"

	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
)

// ErrTokenDelegated is returned when a token is run context-preserving: a
// token only makes sense under its own identity.
var ErrTokenDelegated = errors.New("token must be called, not delegated to")

const tokenABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","inputs":[{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

// Token is a fungible token whose balances are kept in its own storage using
// the asset package layout. Its address is the asset identifier.
type Token struct {
	*contract
}

// NewToken returns a token handler.
func NewToken() *Token {
	t := new(Token)
	t.contract = newContract("token", tokenABI, map[string]method{
		"transfer":  t.transfer,
		"balanceOf": t.balanceOf,
		"mint":      t.mint,
	})
	return t
}

// Run implements vm.Target.
func (t *Token) Run(env *vm.Env, input []byte) (*vm.Output, error) {
	if env.Kind != vm.ValueCarrying {
		return nil, ErrTokenDelegated
	}
	return t.contract.Run(env, input)
}

// transfer moves the caller's tokens and reports the amount as consumed quota
// of the token.
func (t *Token) transfer(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	to, amount := args[0].(common.Address), toU256(args[1])
	if err := asset.Transfer(env.State, env.Self, env.Caller, to, amount, tracing.BalanceChangeTransfer); err != nil {
		return nil, nil, &RevertError{Reason: err.Error()}
	}
	out := &vm.Output{
		Assets:   []common.Address{env.Self},
		Consumed: []types.Amount{{Asset: env.Self, Value: amount}},
	}
	return out, []interface{}{true}, nil
}

func (t *Token) balanceOf(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	bal := asset.BalanceOf(env.State, env.Self, args[0].(common.Address))
	return nil, []interface{}{bal.ToBig()}, nil
}

func (t *Token) mint(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	to, amount := args[0].(common.Address), toU256(args[1])
	asset.Mint(env.State, env.Self, to, amount)
	return &vm.Output{Assets: []common.Address{env.Self}}, nil, nil
}

// TransferCall encodes a value-carrying payload for a token transfer.
func (t *Token) TransferCall(to common.Address, amount *big.Int) []byte {
	data, err := t.Pack("transfer", to, amount)
	if err != nil {
		panic(err)
	}
	return vm.JoinValue(nil, data)
}
