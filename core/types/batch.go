package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Amount pairs an asset identifier with a quantity of that asset.
type Amount struct {
	Asset common.Address
	Value *uint256.Int
}

// NewAmount is a convenience constructor for small literal amounts.
func NewAmount(asset common.Address, value uint64) Amount {
	return Amount{Asset: asset, Value: uint256.NewInt(value)}
}

// Action is one step of a batch: the target to invoke, the 32-byte config
// descriptor controlling capture and replacement, and the raw payload.
type Action struct {
	Target  common.Address
	Config  common.Hash
	Payload []byte
}

// Batch is the request accepted by the task executor. The quota slices and the
// action slices are parallel arrays and are validated for equal length before
// anything executes.
type Batch struct {
	QuotaAssets  []common.Address
	QuotaAmounts []*uint256.Int

	Targets  []common.Address
	Configs  []common.Hash
	Payloads [][]byte
}

// NewBatch assembles a batch from structured quota amounts and actions.
func NewBatch(quota []Amount, actions []Action) *Batch {
	b := &Batch{
		QuotaAssets:  make([]common.Address, 0, len(quota)),
		QuotaAmounts: make([]*uint256.Int, 0, len(quota)),
		Targets:      make([]common.Address, 0, len(actions)),
		Configs:      make([]common.Hash, 0, len(actions)),
		Payloads:     make([][]byte, 0, len(actions)),
	}
	for _, q := range quota {
		b.QuotaAssets = append(b.QuotaAssets, q.Asset)
		b.QuotaAmounts = append(b.QuotaAmounts, q.Value)
	}
	for _, a := range actions {
		b.Targets = append(b.Targets, a.Target)
		b.Configs = append(b.Configs, a.Config)
		b.Payloads = append(b.Payloads, a.Payload)
	}
	return b
}

// Len returns the number of actions in the batch. It assumes the action
// slices have been validated to be of equal length.
func (b *Batch) Len() int {
	return len(b.Targets)
}

// Action returns the i'th action of the batch.
func (b *Batch) Action(i int) Action {
	return Action{Target: b.Targets[i], Config: b.Configs[i], Payload: b.Payloads[i]}
}
