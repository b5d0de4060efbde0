package server

import "sync"

const fillStripes = 64

// fillGuard keeps a read-through cache fill from landing after an
// invalidation of the same key. Readers take a generation before loading and
// only store if no invalidation ran since. Ids share striped generations, so
// an unrelated write can cost a fill but never lets a stale one through.
type fillGuard struct {
	stripes [fillStripes]struct {
		mu  sync.Mutex
		gen uint64
	}
}

func (g *fillGuard) stripe(id int64) int {
	i := id % fillStripes
	if i < 0 {
		i = -i
	}
	return int(i)
}

// generation returns the current generation for id
func (g *fillGuard) generation(id int64) uint64 {
	s := &g.stripes[g.stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill runs store if no invalidation of id's stripe happened after gen was
// taken. It reports whether store ran.
func (g *fillGuard) fill(id int64, gen uint64, store func()) bool {
	s := &g.stripes[g.stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	store()
	return true
}

// invalidate bumps id's generation and runs drop under the same lock
func (g *fillGuard) invalidate(id int64, drop func()) {
	s := &g.stripes[g.stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	drop()
}
