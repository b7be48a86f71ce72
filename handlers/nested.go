package handlers

import (
	"math/big"

	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const nestedABI = `[
	{"type":"function","name":"execute","inputs":[
		{"name":"quotaAssets","type":"address[]"},
		{"name":"quotaAmounts","type":"uint256[]"},
		{"name":"targets","type":"address[]"},
		{"name":"configs","type":"bytes32[]"},
		{"name":"payloads","type":"bytes[]"}
	],"outputs":[{"name":"","type":"address[]"}]}
]`

// Nested starts a nested batch from within a running one, the way a flash
// loan callback re-enters the executor. The nested batch's touched assets are
// returned and reported to the parent batch.
type Nested struct {
	*contract
}

// NewNested returns a nested batch handler.
func NewNested() *Nested {
	n := new(Nested)
	n.contract = newContract("nested", nestedABI, map[string]method{
		"execute": n.execute,
	})
	return n
}

func (n *Nested) execute(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error) {
	amounts := args[1].([]*big.Int)
	batch := &types.Batch{
		QuotaAssets:  args[0].([]common.Address),
		QuotaAmounts: make([]*uint256.Int, len(amounts)),
		Targets:      args[2].([]common.Address),
		Payloads:     args[4].([][]byte),
	}
	for i, a := range amounts {
		batch.QuotaAmounts[i] = toU256(a)
	}
	for _, c := range args[3].([][32]byte) {
		batch.Configs = append(batch.Configs, c)
	}
	touched, err := env.ExecuteBatch(batch)
	if err != nil {
		return nil, nil, err
	}
	return &vm.Output{Assets: touched}, []interface{}{touched}, nil
}

// PackBatch encodes a call running b as a nested batch.
func (n *Nested) PackBatch(b *types.Batch) ([]byte, error) {
	amounts := make([]*big.Int, len(b.QuotaAmounts))
	for i, a := range b.QuotaAmounts {
		if a == nil {
			a = new(uint256.Int)
		}
		amounts[i] = a.ToBig()
	}
	configs := make([][32]byte, len(b.Configs))
	for i, c := range b.Configs {
		configs[i] = c
	}
	return n.Pack("execute", b.QuotaAssets, amounts, b.Targets, configs, b.Payloads)
}
