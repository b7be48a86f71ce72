package vm

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type shapedTarget struct{ shape Shape }

func (shapedTarget) Run(*Env, []byte) (*Output, error) { return nil, nil }
func (s shapedTarget) Shape(Selector) Shape          { return s.shape }

// TestRegistry verifies that Register, Lookup and Unregister agree and that
// Len tracks distinct addresses only.
func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := common.HexToAddress("0xaaaa")
	noop := TargetFunc(func(*Env, []byte) (*Output, error) { return nil, nil })

	r.Register(addr, noop)
	r.Register(addr, noop)
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
	if _, ok := r.Lookup(addr); !ok {
		t.Fatalf("lookup failed for registered target")
	}
	if s := r.ShapeOf(addr, Selector{}); s != nil {
		t.Fatalf("unshaped target reported shape %v", s)
	}
	r.Unregister(addr)
	if _, ok := r.Lookup(addr); ok {
		t.Fatalf("target should have been removed")
	}
	if r.Len() != 0 {
		t.Fatalf("len = %d after unregister", r.Len())
	}

	r.Register(addr, shapedTarget{shape: Shape{0, 2}})
	if s := r.ShapeOf(addr, Selector{}); !s.IsArray(2) || s.IsArray(1) {
		t.Fatalf("unexpected shape %v", s)
	}
}

// TestRegistryRace ensures concurrent registration is race-free.
func TestRegistryRace(t *testing.T) {
	const n = 100
	r := NewRegistry()

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			r.Register(common.BigToAddress(big.NewInt(int64(i+1))), TargetFunc(func(*Env, []byte) (*Output, error) { return nil, nil }))
		}(i)
	}
	wg.Wait()
	if r.Len() != n {
		t.Fatalf("len = %d, want %d", r.Len(), n)
	}
}
