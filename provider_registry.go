package authsession

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
)

// ProviderRegistry holds at most one adapter per identity provider.
type ProviderRegistry struct {
	mu       sync.RWMutex
	adapters map[core.Provider]providers.Adapter
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{adapters: map[core.Provider]providers.Adapter{}}
}

func (r *ProviderRegistry) Register(adapter providers.Adapter) error {
	if r == nil {
		return fmt.Errorf("authsession: provider registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("authsession: provider adapter is required")
	}
	id := adapter.ID()
	if id != core.ProviderGoogle && id != core.ProviderApple {
		return fmt.Errorf("authsession: unsupported identity provider %q", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("authsession: provider %q already registered", id)
	}
	r.adapters[id] = adapter
	return nil
}

// Adapter matches command.AdapterResolver.
func (r *ProviderRegistry) Adapter(provider core.Provider) (providers.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[provider]
	return adapter, ok
}

func (r *ProviderRegistry) Providers() []core.Provider {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]core.Provider, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InitAll initializes every registered adapter concurrently. One provider
// failing does not stop the others; the returned map holds each failure and
// the error joins them.
func (r *ProviderRegistry) InitAll(ctx context.Context) (map[core.Provider]error, error) {
	ids := r.Providers()
	if len(ids) == 0 {
		return map[core.Provider]error{}, nil
	}

	var (
		mu       sync.Mutex
		failures = map[core.Provider]error{}
		group    errgroup.Group
	)
	for _, id := range ids {
		adapter, ok := r.Adapter(id)
		if !ok {
			continue
		}
		group.Go(func() error {
			if err := adapter.Init(ctx); err != nil {
				mu.Lock()
				failures[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	if len(failures) == 0 {
		return failures, nil
	}
	errs := make([]error, 0, len(failures))
	for _, id := range ids {
		if err, ok := failures[id]; ok {
			errs = append(errs, err)
		}
	}
	return failures, errors.Join(errs...)
}
