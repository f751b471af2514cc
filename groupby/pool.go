package groupby

import "sync"

// Pool recycles Accumulators for one Grouping across goroutines.
//
// Each worker acquires an instance, owns it exclusively for the duration
// of its aggregation calls, and releases it afterwards. The shared
// Grouping (including group sizes) is read-only and safe to use from all
// workers concurrently.
type Pool struct {
	grouping *Grouping
	pool     sync.Pool
}

// NewPool creates a Pool producing Accumulators sized for g.
func NewPool(g *Grouping) *Pool {
	p := &Pool{grouping: g}
	p.pool.New = func() any {
		return NewAccumulator(g)
	}
	return p
}

// Acquire retrieves a reset Accumulator from the pool.
func (p *Pool) Acquire() *Accumulator {
	a := p.pool.Get().(*Accumulator)
	a.Reset()
	return a
}

// Release returns an Accumulator to the pool. Accumulators built for a
// different grouping are dropped.
func (p *Pool) Release(a *Accumulator) {
	if a == nil || a.grouping != p.grouping {
		return
	}
	p.pool.Put(a)
}
