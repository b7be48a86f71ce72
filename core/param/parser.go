package param

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// Parser decodes descriptors and remembers the most recent ones. Batches tend
// to reuse a handful of descriptors, and decoded descriptors are never
// mutated, so cached values are shared between callers. It is safe for
// concurrent use.
type Parser struct {
	cache *lru.Cache
}

// NewParser returns a parser caching up to size descriptors. A non-positive
// size disables caching.
func NewParser(size int) *Parser {
	p := new(Parser)
	if size > 0 {
		p.cache, _ = lru.New(size)
	}
	return p
}

// Parse is like the package level Parse. Invalid descriptors are not cached.
func (p *Parser) Parse(cfg common.Hash) (*Descriptor, error) {
	if p.cache != nil {
		if d, ok := p.cache.Get(cfg); ok {
			return d.(*Descriptor), nil
		}
	}
	d, err := Parse(cfg)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Add(cfg, d)
	}
	return d, nil
}

// Len returns the number of cached descriptors.
func (p *Parser) Len() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}
