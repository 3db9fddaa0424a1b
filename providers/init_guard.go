package providers

import (
	"context"
	"sync"
)

// InitGuard runs a setup function at most once. Callers arriving while the
// setup is in flight wait on the same attempt. Success is permanent and so is
// failure: a failed setup is reported to every later caller without being
// retried.
type InitGuard struct {
	mu          sync.Mutex
	initialized bool
	pending     *initAttempt
}

type initAttempt struct {
	done chan struct{}
	err  error
}

// Do runs setup unless it already ran. setup receives a context detached
// from the caller's cancellation, since the attempt is shared; a caller whose
// own ctx ends stops waiting and gets ctx.Err() while the attempt carries on.
func (g *InitGuard) Do(ctx context.Context, setup func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g.mu.Lock()
	if g.initialized {
		g.mu.Unlock()
		return nil
	}
	attempt := g.pending
	if attempt == nil {
		attempt = &initAttempt{done: make(chan struct{})}
		g.pending = attempt
		go g.run(context.WithoutCancel(ctx), attempt, setup)
	}
	g.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *InitGuard) run(ctx context.Context, attempt *initAttempt, setup func(context.Context) error) {
	var err error
	if setup != nil {
		err = setup(ctx)
	}
	g.mu.Lock()
	attempt.err = err
	if err == nil {
		g.initialized = true
	}
	g.mu.Unlock()
	close(attempt.done)
}

func (g *InitGuard) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}
