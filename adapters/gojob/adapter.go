// Package gojob schedules session refreshes through a go-job queue. The
// scheduler enqueues one job per expiry; the worker defers jobs that are not
// due yet and drops jobs made stale by a newer session.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-auth-session/core"
)

const (
	JobIDRefresh      = "auth_session.refresh"
	ScriptPathRefresh = "auth_session/refresh"

	ParamDueAt  = "due_at"
	ParamUserID = "user_id"

	defaultSkew = 60 * time.Second
)

// SessionRefresher is the part of core.Store the refresh jobs need.
type SessionRefresher interface {
	State() core.SessionState
	Subscribe(listener core.Listener) func()
	Refresh(ctx context.Context) (*core.Session, error)
}

// RetryPolicy bounds how a job that is not due yet is put back on the queue.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt caps the delay and stops requeueing after MaxAttempts.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// NewRefreshMessage builds the job for a refresh due at dueAt. The
// idempotency key is stable per user and due time.
func NewRefreshMessage(userID string, dueAt time.Time) *job.ExecutionMessage {
	due := dueAt.UTC()
	userID = strings.TrimSpace(userID)
	return &job.ExecutionMessage{
		JobID:      JobIDRefresh,
		ScriptPath: ScriptPathRefresh,
		Parameters: map[string]any{
			ParamDueAt:  due.Format(time.RFC3339Nano),
			ParamUserID: userID,
		},
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", JobIDRefresh, userID, due.UnixNano()),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// DueAt reads the due time carried by a refresh job.
func DueAt(msg *job.ExecutionMessage) (time.Time, bool) {
	if msg == nil || msg.Parameters == nil {
		return time.Time{}, false
	}
	raw, ok := msg.Parameters[ParamDueAt].(string)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

type RefreshScheduler struct {
	enqueuer queue.Enqueuer
	skew     time.Duration
	logger   glog.Logger

	mu      sync.Mutex
	lastKey string
}

func NewRefreshScheduler(enqueuer queue.Enqueuer, skew time.Duration, logger glog.Logger) (*RefreshScheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	if skew <= 0 {
		skew = defaultSkew
	}
	if logger == nil {
		logger = glog.Nop()
	}
	return &RefreshScheduler{enqueuer: enqueuer, skew: skew, logger: logger}, nil
}

func (s *RefreshScheduler) Skew() time.Duration {
	if s == nil {
		return defaultSkew
	}
	return s.skew
}

// Schedule enqueues a refresh job for state unless one was already enqueued
// for the same due time. Sessions with an unknown expiry are skipped.
func (s *RefreshScheduler) Schedule(ctx context.Context, state core.SessionState) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: scheduler is not configured")
	}
	dueAt, ok := core.RefreshDueAt(state, s.skew)
	if !ok {
		return nil
	}
	msg := NewRefreshMessage(state.Session.User.ID, dueAt)

	s.mu.Lock()
	if s.lastKey == msg.IdempotencyKey {
		s.mu.Unlock()
		return nil
	}
	previous := s.lastKey
	s.lastKey = msg.IdempotencyKey
	s.mu.Unlock()

	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		s.mu.Lock()
		if s.lastKey == msg.IdempotencyKey {
			s.lastKey = previous
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Watch schedules a job after every settled state transition. The returned
// function stops watching.
func (s *RefreshScheduler) Watch(ctx context.Context, store SessionRefresher) func() {
	if s == nil || store == nil {
		return func() {}
	}
	return store.Subscribe(func(state core.SessionState) {
		if state.Loading {
			return
		}
		if err := s.Schedule(ctx, state); err != nil {
			s.logger.Warn("refresh job enqueue failed", "error", err.Error())
		}
	})
}

type WorkerOption func(*RefreshWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *RefreshWorker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *RefreshWorker) {
		if hook != nil {
			w.hook = hook
		}
	}
}

func WithClock(now func() time.Time) WorkerOption {
	return func(w *RefreshWorker) {
		if now != nil {
			w.now = now
		}
	}
}

// RefreshWorker executes refresh jobs against the session store.
type RefreshWorker struct {
	dequeuer queue.Dequeuer
	store    SessionRefresher
	skew     time.Duration
	policy   RetryPolicy
	hook     worker.Hook
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

func NewRefreshWorker(dequeuer queue.Dequeuer, store SessionRefresher, skew time.Duration, opts ...WorkerOption) (*RefreshWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("gojob: session store is required")
	}
	if skew <= 0 {
		skew = defaultSkew
	}
	w := &RefreshWorker{
		dequeuer: dequeuer,
		store:    store,
		skew:     skew,
		hook:     NewLoggingHook(nil),
		now:      time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// ProcessNext dequeues and handles one delivery.
func (w *RefreshWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("gojob: refresh worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	return w.Handle(ctx, delivery)
}

// Run processes deliveries until ctx is done.
func (w *RefreshWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (w *RefreshWorker) Handle(ctx context.Context, delivery queue.Delivery) error {
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDRefresh {
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: "unsupported job"})
	}
	dueAt, ok := DueAt(msg)
	if !ok {
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: "missing due_at"})
	}
	key := msg.IdempotencyKey

	current, scheduled := core.RefreshDueAt(w.store.State(), w.skew)
	if !scheduled || !current.Equal(dueAt) {
		w.forget(key)
		return delivery.Ack(ctx)
	}

	attempt := w.nextAttempt(key)
	if wait := dueAt.Sub(w.now()); wait > 0 {
		opts := w.policy.NormalizeAttempt(queue.NackOptions{Delay: wait, Requeue: true, Reason: "refresh not due"}, attempt)
		event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, Delay: opts.Delay, StartedAt: w.now()}
		if opts.Requeue {
			w.hook.OnRetry(ctx, event)
		} else {
			w.forget(key)
			event.Err = fmt.Errorf("gojob: refresh deferred %d times", attempt)
			w.hook.OnFailure(ctx, event)
		}
		return delivery.Nack(ctx, opts)
	}

	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: w.now()}
	w.hook.OnStart(ctx, event)
	_, refreshErr := w.store.Refresh(ctx)
	event.Duration = w.now().Sub(event.StartedAt)
	w.forget(key)
	if refreshErr != nil {
		// The store already cleared the session; there is nothing to retry.
		event.Err = refreshErr
		w.hook.OnFailure(ctx, event)
		return delivery.Ack(ctx)
	}
	w.hook.OnSuccess(ctx, event)
	return delivery.Ack(ctx)
}

func (w *RefreshWorker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *RefreshWorker) forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

type loggingHook struct {
	logger glog.Logger
}

// NewLoggingHook reports refresh job events through logger.
func NewLoggingHook(logger glog.Logger) worker.Hook {
	if logger == nil {
		logger = glog.Nop()
	}
	return loggingHook{logger: logger}
}

func (h loggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Debug("refresh job started", eventFields(event)...)
}

func (h loggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Info("refresh job succeeded", eventFields(event)...)
}

func (h loggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Warn("refresh job failed", eventFields(event)...)
}

func (h loggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Debug("refresh job deferred", eventFields(event)...)
}

func eventFields(event worker.Event) []any {
	fields := []any{"attempt", event.Attempt}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message != nil {
		fields = append(fields, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Delay > 0 {
		fields = append(fields, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Duration > 0 {
		fields = append(fields, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

var (
	_ worker.Hook      = loggingHook{}
	_ SessionRefresher = (*core.Store)(nil)
)
