package jwks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Registry runs many named strategies side by side, one per JWKS source.
//
// Strategies never share state: a failing or slow provider only affects the
// strategy it belongs to. Lookups read a copy-on-write snapshot of the name
// table and never take the registry lock.
//
// Example usage:
//
//	reg := jwks.NewRegistry(jwks.WithLogger(logger))
//	defer reg.StopAll()
//
//	_, err := reg.Start(ctx, "tenant-a",
//	    jwks.WithJWKSURL("https://tenant-a.example.com/.well-known/jwks.json"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	signer, err := reg.MatchSigner("tenant-a", kid)
type Registry struct {
	defaults []Option

	mu      sync.Mutex
	pending map[string]struct{}
	entries atomic.Pointer[map[string]*Strategy]
}

// NewRegistry creates an empty registry. The defaults are applied to every
// strategy started through it, before the strategy's own options.
func NewRegistry(defaults ...Option) *Registry {
	r := &Registry{
		defaults: defaults,
		pending:  make(map[string]struct{}),
	}
	empty := make(map[string]*Strategy)
	r.entries.Store(&empty)
	return r
}

// Start creates the strategy name and starts it.
//
// The name is reserved before the strategy starts so a concurrent Start for
// the same name fails with strategy_already_started. Starting, including a
// synchronous first fetch, happens outside the registry lock.
func (r *Registry) Start(ctx context.Context, name string, opts ...Option) (*Strategy, error) {
	if err := r.reserve(name); err != nil {
		return nil, err
	}

	all := make([]Option, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)

	s, err := New(name, all...)
	if err != nil {
		r.release(name)
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		r.release(name)
		return nil, err
	}

	r.publish(s)
	return s, nil
}

// StartAll starts every strategy of specs concurrently and waits for all
// of them. It returns the first error encountered; a failing name does not
// cancel the others, and strategies that did start stay registered.
func (r *Registry) StartAll(ctx context.Context, specs map[string][]Option) error {
	var g errgroup.Group
	for name, opts := range specs {
		g.Go(func() error {
			if _, err := r.Start(ctx, name, opts...); err != nil {
				return fmt.Errorf("strategy %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Lookup returns the running strategy registered under name.
func (r *Registry) Lookup(name string) (*Strategy, error) {
	s, ok := (*r.entries.Load())[name]
	if !ok {
		return nil, newError(ErrStrategyNotFound, fmt.Errorf("strategy %q", name))
	}
	return s, nil
}

// MatchSigner resolves kid against the strategy registered under name.
func (r *Registry) MatchSigner(name, kid string) (*Signer, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.MatchSigner(kid)
}

// Source returns a SigningKeySource bound to name. The name is resolved on
// every call, so the source follows a strategy that is stopped and started
// again under the same name.
func (r *Registry) Source(name string) SigningKeySource {
	return registrySource{registry: r, name: name}
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	entries := *r.entries.Load()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop stops the strategy registered under name and removes it.
func (r *Registry) Stop(name string) error {
	r.mu.Lock()
	current := *r.entries.Load()
	s, ok := current[name]
	if !ok {
		r.mu.Unlock()
		return newError(ErrStrategyNotFound, fmt.Errorf("strategy %q", name))
	}
	next := make(map[string]*Strategy, len(current))
	for k, v := range current {
		if k != name {
			next[k] = v
		}
	}
	r.entries.Store(&next)
	r.mu.Unlock()

	s.Stop()
	return nil
}

// StopAll stops and removes every registered strategy.
func (r *Registry) StopAll() {
	r.mu.Lock()
	current := *r.entries.Load()
	empty := make(map[string]*Strategy)
	r.entries.Store(&empty)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range current {
		wg.Add(1)
		go func(s *Strategy) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()
}

func (r *Registry) reserve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := (*r.entries.Load())[name]; ok {
		return newError(ErrStrategyAlreadyStarted, fmt.Errorf("strategy %q", name))
	}
	if _, ok := r.pending[name]; ok {
		return newError(ErrStrategyAlreadyStarted, fmt.Errorf("strategy %q", name))
	}
	r.pending[name] = struct{}{}
	return nil
}

func (r *Registry) release(name string) {
	r.mu.Lock()
	delete(r.pending, name)
	r.mu.Unlock()
}

func (r *Registry) publish(s *Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, s.name)
	current := *r.entries.Load()
	next := make(map[string]*Strategy, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[s.name] = s
	r.entries.Store(&next)
}

type registrySource struct {
	registry *Registry
	name     string
}

func (s registrySource) MatchSigner(kid string) (*Signer, error) {
	return s.registry.MatchSigner(s.name, kid)
}
