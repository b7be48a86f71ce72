package vm

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// Registry maps target addresses to their executable implementation. An
// address without a registered Target has no executable code.
//
// The registry may be shared between executors and mutated while batches run
// in other goroutines.
type Registry struct {
	targets sync.Map // map[common.Address]Target
	count   atomic.Int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return new(Registry)
}

// Register installs t as the code of addr, replacing any previous target.
func (r *Registry) Register(addr common.Address, t Target) {
	if t == nil {
		r.Unregister(addr)
		return
	}
	if _, loaded := r.targets.Swap(addr, t); !loaded {
		r.count.Add(1)
	}
}

// Unregister removes the code of addr. Unknown addresses are ignored.
func (r *Registry) Unregister(addr common.Address) {
	if _, loaded := r.targets.LoadAndDelete(addr); loaded {
		r.count.Add(-1)
	}
}

// Lookup returns the target registered at addr.
func (r *Registry) Lookup(addr common.Address) (Target, bool) {
	if v, ok := r.targets.Load(addr); ok {
		return v.(Target), true
	}
	return nil, false
}

// ShapeOf returns the declared argument shape of sel on the target at addr,
// or nil if the target is unknown or declares none.
func (r *Registry) ShapeOf(addr common.Address, sel Selector) Shape {
	t, ok := r.Lookup(addr)
	if !ok {
		return nil
	}
	if s, ok := t.(Shaper); ok {
		return s.Shape(sel)
	}
	return nil
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return int(r.count.Load())
}
