package asset

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// DealingSet accumulates the assets actions report having dealt with. It keeps
// first-seen order and merges duplicates by identity.
type DealingSet struct {
	seen  mapset.Set[common.Address]
	order []common.Address
}

// NewDealingSet returns an empty set.
func NewDealingSet() *DealingSet {
	return &DealingSet{seen: mapset.NewThreadUnsafeSet[common.Address]()}
}

// Add merges assets into the set and reports how many were new.
func (s *DealingSet) Add(assets ...common.Address) int {
	added := 0
	for _, a := range assets {
		if s.seen.Add(a) {
			s.order = append(s.order, a)
			added++
		}
	}
	return added
}

// Contains reports whether asset has been added.
func (s *DealingSet) Contains(asset common.Address) bool {
	return s.seen.Contains(asset)
}

// Len returns the number of distinct assets.
func (s *DealingSet) Len() int {
	return len(s.order)
}

// List returns the assets in first-seen order.
func (s *DealingSet) List() []common.Address {
	return append([]common.Address{}, s.order...)
}
