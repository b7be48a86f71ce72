package core

import (
	"github.com/clydemeng/taskexec/core/types"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/common"
)

// BatchExecutor is an abstraction over a batch execution backend. Callers
// such as the CLI or embedding services submit batches through it without
// knowing how targets are resolved or how state is kept.
type BatchExecutor interface {
	// Engine returns a short human identifier of the backend.
	Engine() string

	// ExecuteBatch runs batch as a single all-or-nothing unit entered through
	// entry and returns the deduplicated assets the batch dealt with.
	ExecuteBatch(entry Entry, batch *types.Batch) ([]common.Address, error)
}

// Entry describes how a batch was entered. Only context-preserving entry is
// accepted: a batch must run under the executor's own identity.
type Entry struct {
	Kind   vm.CallKind
	Caller common.Address
}

// DelegateEntry returns the context-preserving entry used by callers running
// a batch on the executor's behalf.
func DelegateEntry(caller common.Address) Entry {
	return Entry{Kind: vm.ContextPreserving, Caller: caller}
}

var (
	_ BatchExecutor  = (*TaskExecutor)(nil)
	_ vm.BatchRunner = (*TaskExecutor)(nil)
)
