package core

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultRefreshSkew        = 60 * time.Second
	defaultRefreshMinInterval = 5 * time.Second
)

// RefreshDueAt reports when a session should be refreshed: skew before it
// expires. It returns false when there is no session or the expiry is
// unknown.
func RefreshDueAt(state SessionState, skew time.Duration) (time.Time, bool) {
	if !state.IsAuthenticated() || state.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	if skew < 0 {
		skew = 0
	}
	return state.ExpiresAt.Add(-skew), true
}

type RefreshRunnerOptions struct {
	Skew time.Duration
	// MinInterval spaces consecutive refreshes when the skew exceeds the
	// token lifetime.
	MinInterval time.Duration
	// OnError receives refresh failures; the loop keeps running.
	OnError func(error)
}

// RefreshRunner refreshes the session ahead of its expiry until its context
// is cancelled.
type RefreshRunner struct {
	store       *Store
	skew        time.Duration
	minInterval time.Duration
	onError     func(error)
	lastRefresh time.Time
}

func NewRefreshRunner(store *Store, opts RefreshRunnerOptions) (*RefreshRunner, error) {
	if store == nil {
		return nil, fmt.Errorf("core: store is required")
	}
	skew := opts.Skew
	if skew <= 0 {
		skew = defaultRefreshSkew
	}
	minInterval := opts.MinInterval
	if minInterval <= 0 {
		minInterval = defaultRefreshMinInterval
	}
	return &RefreshRunner{
		store:       store,
		skew:        skew,
		minInterval: minInterval,
		onError:     opts.OnError,
	}, nil
}

// Run blocks until ctx is done. Each state transition re-evaluates the next
// due time, so logins and logouts reschedule the timer.
func (r *RefreshRunner) Run(ctx context.Context) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("core: refresh runner is not configured")
	}
	changed := make(chan struct{}, 1)
	unsubscribe := r.store.Subscribe(func(SessionState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		state := r.store.State()
		dueAt, scheduled := r.nextDue(state)
		if !scheduled || state.Loading {
			if err := waitForSignal(ctx, changed, nil); err != nil {
				return err
			}
			continue
		}

		delay := dueAt.Sub(r.store.now())
		if delay > 0 {
			timer := time.NewTimer(delay)
			err := waitForSignal(ctx, changed, timer.C)
			timer.Stop()
			if err != nil {
				return err
			}
			if r.store.now().Before(dueAt) {
				continue
			}
			if current, ok := r.nextDue(r.store.State()); !ok || !current.Equal(dueAt) {
				continue
			}
		}

		r.lastRefresh = r.store.now()
		if _, err := r.store.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.onError != nil {
				r.onError(err)
			}
		}
		drain(changed)
	}
}

func (r *RefreshRunner) nextDue(state SessionState) (time.Time, bool) {
	dueAt, ok := RefreshDueAt(state, r.skew)
	if !ok {
		return time.Time{}, false
	}
	if !r.lastRefresh.IsZero() {
		if earliest := r.lastRefresh.Add(r.minInterval); dueAt.Before(earliest) {
			dueAt = earliest
		}
	}
	return dueAt, true
}

func waitForSignal(ctx context.Context, changed <-chan struct{}, fired <-chan time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-changed:
		return nil
	case <-fired:
		return nil
	}
}

func drain(changed chan struct{}) {
	select {
	case <-changed:
	default:
	}
}
