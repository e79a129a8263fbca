package catalog

import "sync/atomic"

// Generations tracks which asynchronous request is the latest. Take a
// generation with Next when a request starts and apply its result only if
// IsCurrent still reports true when it completes; older responses are
// silently discarded.
type Generations struct {
	n atomic.Uint64
}

// Next starts a new generation and returns it.
func (g *Generations) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the latest generation handed out.
func (g *Generations) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether gen is still the latest generation.
func (g *Generations) IsCurrent(gen uint64) bool {
	return gen == g.n.Load()
}
