package harmony

import (
	"context"
	"sync"

	"github.com/bli0428/vocalharmony/internal/observe"
	"github.com/bli0428/vocalharmony/pkg/audio"
)

// Registry owns every live voice chain, keyed by offset. Chains are created
// lazily through [Registry.Ensure] and removed through [Registry.Release] or
// [Registry.DisposeAll]; once removed a chain is disposed and never reused.
type Registry struct {
	dev     audio.Device
	params  ChainParams
	metrics *observe.Metrics

	mu     sync.Mutex
	chains map[Offset]*Chain
}

// NewRegistry returns an empty registry that builds chains on dev with the
// given parameters. A nil metrics instance falls back to
// [observe.DefaultMetrics].
func NewRegistry(dev audio.Device, params ChainParams, m *observe.Metrics) *Registry {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Registry{
		dev:     dev,
		params:  params.withDefaults(),
		metrics: m,
		chains:  make(map[Offset]*Chain),
	}
}

// Ensure returns a loaded chain for o, creating it first if the registry
// does not hold one. The chain is loaded with rec before it is returned; if
// loading fails the chain is released again so a later Ensure starts from a
// clean slate.
func (r *Registry) Ensure(ctx context.Context, o Offset, rec *audio.Recording) (*Chain, error) {
	r.mu.Lock()
	c, ok := r.chains[o]
	if !ok {
		var err error
		c, err = NewChain(o, r.dev, r.params)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.chains[o] = c
		r.metrics.ChainsCreated.Add(ctx, 1)
		r.metrics.ActiveChains.Add(ctx, 1)
	}
	r.mu.Unlock()

	if err := c.Load(ctx, rec); err != nil {
		r.Release(o)
		return nil, err
	}
	return c, nil
}

// Release removes the chain for o, if any, and disposes it. Releasing an
// offset with no chain is a no-op.
func (r *Registry) Release(o Offset) {
	r.mu.Lock()
	c, ok := r.chains[o]
	if ok {
		delete(r.chains, o)
	}
	r.mu.Unlock()
	if ok {
		c.Dispose()
		r.metrics.ChainsDisposed.Add(context.Background(), 1)
		r.metrics.ActiveChains.Add(context.Background(), -1)
	}
}

// DisposeAll removes and disposes every chain. The registry stays usable
// afterwards; the next Ensure builds fresh chains.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	old := r.chains
	r.chains = make(map[Offset]*Chain)
	r.mu.Unlock()
	for _, c := range old {
		c.Dispose()
	}
	if n := len(old); n > 0 {
		r.metrics.ChainsDisposed.Add(context.Background(), int64(n))
		r.metrics.ActiveChains.Add(context.Background(), int64(-n))
	}
}

// Chain returns the chain registered for o, or nil.
func (r *Registry) Chain(o Offset) *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chains[o]
}

// Chains returns a snapshot of all registered chains.
func (r *Registry) Chains() []*Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered chains.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chains)
}
