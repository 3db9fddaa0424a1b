package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	fallbackAuthMessage    = "Authentication failed"
	fallbackRefreshMessage = "Token refresh failed"
	fallbackStorageMessage = "Session storage is unavailable"
	incompleteAuthMessage  = "Authentication response is incomplete"
)

// Store owns the session state. It is built once per process and shared by
// reference; every mutation goes through one of its actions.
type Store struct {
	api             AuthAPI
	account         AccountAPI
	storage         Storage
	codec           UserCodec
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	now             func() time.Time

	mu        sync.Mutex
	session   *Session
	expiresAt time.Time
	inflight  int
	lastError *StructuredError

	listeners    []listenerEntry
	nextListener uint64

	// pending holds snapshots not yet delivered, in transition order. Only
	// the goroutine that set delivering drains it.
	pending    []notification
	delivering bool
}

type notification struct {
	state     SessionState
	listeners []Listener
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// transition is applied atomically when an action completes.
type transition struct {
	replaceSession bool
	session        *Session
	expiresAt      time.Time
	failure        Failure
}

func NewStore(api AuthAPI, storage Storage, opts ...Option) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("core: auth api is required")
	}
	builder := defaultStoreBuilder()
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if builder.accountAPI == nil {
		if account, ok := api.(AccountAPI); ok {
			builder.accountAPI = account
		}
	}
	if builder.userCodec == nil {
		builder.userCodec = JSONUserCodec{}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}
	loggerProvider, logger := builder.resolveLogger()

	return &Store{
		api:             api,
		account:         builder.accountAPI,
		storage:         storage,
		codec:           builder.userCodec,
		logger:          logger,
		loggerProvider:  loggerProvider,
		metricsRecorder: builder.metricsRecorder,
		now:             builder.now,
	}, nil
}

// Init restores the session from storage. Partial data is treated as no
// session and left untouched.
func (s *Store) Init(ctx context.Context) (err error) {
	op := s.track(ctx, "init")
	defer func() { op.done(err) }()

	values := make(map[string]string, 3)
	for _, key := range SessionKeys() {
		value, ok, getErr := s.storage.Get(ctx, key)
		if getErr != nil {
			return Normalize(getErr, fallbackStorageMessage)
		}
		if ok && strings.TrimSpace(value) != "" {
			values[key] = value
		}
	}

	var restored *Session
	if len(values) == len(SessionKeys()) {
		user, decodeErr := s.codec.Decode(values[StorageKeyUser])
		if decodeErr != nil {
			s.warn(ctx, "persisted user could not be decoded", decodeErr)
		} else {
			candidate := &Session{
				AccessToken:  strings.TrimSpace(values[StorageKeyAccessToken]),
				RefreshToken: strings.TrimSpace(values[StorageKeyRefreshToken]),
				User:         user,
			}
			if candidate.Valid() {
				restored = candidate
			}
		}
	}

	s.mu.Lock()
	s.session = restored
	s.expiresAt = time.Time{}
	s.releaseAndNotify()
	return nil
}

func (s *Store) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return s.authenticate(ctx, "register", ProviderEmail, req.Validate, func(ctx context.Context) (AuthResponse, error) {
		return s.api.Register(ctx, req)
	})
}

func (s *Store) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	return s.authenticate(ctx, "login", ProviderEmail, req.Validate, func(ctx context.Context) (AuthResponse, error) {
		return s.api.Login(ctx, req)
	})
}

func (s *Store) GoogleAuth(ctx context.Context, req GoogleAuthRequest) (*Session, error) {
	return s.authenticate(ctx, "google_auth", ProviderGoogle, req.Validate, func(ctx context.Context) (AuthResponse, error) {
		return s.api.GoogleAuth(ctx, req)
	})
}

func (s *Store) AppleAuth(ctx context.Context, req AppleAuthRequest) (*Session, error) {
	return s.authenticate(ctx, "apple_auth", ProviderApple, req.Validate, func(ctx context.Context) (AuthResponse, error) {
		return s.api.AppleAuth(ctx, req)
	})
}

func (s *Store) authenticate(
	ctx context.Context,
	operation string,
	provider Provider,
	validate func() error,
	call func(context.Context) (AuthResponse, error),
) (session *Session, err error) {
	op := s.track(ctx, operation)
	op.set("provider", string(provider))
	defer func() {
		if session != nil {
			op.set("user_id", session.User.ID)
		}
		op.done(err)
	}()

	s.begin()
	if validate != nil {
		if validationErr := validate(); validationErr != nil {
			failure := Normalize(validationErr, fallbackAuthMessage)
			s.finish(transition{failure: failure})
			return nil, failure
		}
	}

	resp, callErr := call(ctx)
	if callErr != nil {
		failure := Normalize(callErr, fallbackAuthMessage)
		s.finish(transition{failure: failure})
		return nil, failure
	}

	next, expiresAt, failure := s.persist(ctx, resp)
	if failure != nil {
		s.finish(transition{replaceSession: true, failure: failure})
		return nil, failure
	}
	s.finish(transition{replaceSession: true, session: next, expiresAt: expiresAt})
	return next.clone(), nil
}

// Refresh exchanges the persisted refresh token for a new session. Any
// failure clears the session and matches ErrRefreshFailed.
func (s *Store) Refresh(ctx context.Context) (session *Session, err error) {
	op := s.track(ctx, "refresh")
	defer func() {
		if session != nil {
			op.set("user_id", session.User.ID)
		}
		op.done(err)
	}()

	s.begin()
	token, ok, getErr := s.storage.Get(ctx, StorageKeyRefreshToken)
	if getErr != nil {
		return nil, s.failRefresh(ctx, Normalize(getErr, fallbackStorageMessage))
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, s.failRefresh(ctx, &RefreshUnavailableError{})
	}

	resp, callErr := s.api.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: token})
	if callErr != nil {
		return nil, s.failRefresh(ctx, Normalize(callErr, fallbackRefreshMessage))
	}

	next, expiresAt, failure := s.persist(ctx, resp)
	if failure != nil {
		return nil, s.failRefresh(ctx, failure)
	}
	s.finish(transition{replaceSession: true, session: next, expiresAt: expiresAt})
	return next.clone(), nil
}

func (s *Store) failRefresh(ctx context.Context, failure Failure) error {
	if clearErr := s.clearStorage(ctx); clearErr != nil {
		s.warn(ctx, "session storage clear failed", clearErr)
	}
	s.finish(transition{replaceSession: true, failure: failure})
	if errors.Is(failure, ErrRefreshFailed) {
		return failure
	}
	return fmt.Errorf("%w: %w", ErrRefreshFailed, failure)
}

// Logout revokes the refresh token when one is held. Server and transport
// failures are logged and swallowed; local state is always cleared. Only a
// failure to clear storage is returned.
func (s *Store) Logout(ctx context.Context) (err error) {
	op := s.track(ctx, "logout")
	defer func() { op.done(err) }()

	s.begin()
	token, ok, getErr := s.storage.Get(ctx, StorageKeyRefreshToken)
	if getErr != nil {
		s.warn(ctx, "refresh token read failed during logout", getErr)
	}
	token = strings.TrimSpace(token)
	if getErr == nil && ok && token != "" {
		if _, logoutErr := s.api.Logout(ctx, RefreshTokenRequest{RefreshToken: token}); logoutErr != nil {
			op.set("remote_error", logoutErr.Error())
			s.warn(ctx, "logout request failed", logoutErr)
		}
	}

	if clearErr := s.clearStorage(ctx); clearErr != nil {
		failure := Normalize(clearErr, fallbackStorageMessage)
		s.finish(transition{replaceSession: true, failure: failure})
		return failure
	}
	s.finish(transition{replaceSession: true})
	return nil
}

// ClearAuth drops the session and the persisted keys without contacting the
// API and resets the last error.
func (s *Store) ClearAuth(ctx context.Context) error {
	clearErr := s.clearStorage(ctx)
	s.mu.Lock()
	s.session = nil
	s.expiresAt = time.Time{}
	s.lastError = nil
	s.releaseAndNotify()
	if clearErr != nil {
		return Normalize(clearErr, fallbackStorageMessage)
	}
	return nil
}

// persist writes the three keys and returns the session to commit. On a
// write failure the keys are removed so no partial session survives.
func (s *Store) persist(ctx context.Context, resp AuthResponse) (*Session, time.Time, Failure) {
	next := resp.session()
	if !next.Valid() {
		return nil, time.Time{}, &UnknownError{Message: incompleteAuthMessage}
	}
	encodedUser, err := s.codec.Encode(next.User)
	if err != nil {
		return nil, time.Time{}, Normalize(err, fallbackStorageMessage)
	}
	writes := []struct {
		key   string
		value string
	}{
		{StorageKeyAccessToken, next.AccessToken},
		{StorageKeyRefreshToken, next.RefreshToken},
		{StorageKeyUser, encodedUser},
	}
	for _, write := range writes {
		if setErr := s.storage.Set(ctx, write.key, write.value); setErr != nil {
			if clearErr := s.clearStorage(ctx); clearErr != nil {
				s.warn(ctx, "session storage rollback failed", clearErr)
			}
			return nil, time.Time{}, Normalize(setErr, fallbackStorageMessage)
		}
	}

	var expiresAt time.Time
	if resp.ExpiresIn > 0 {
		expiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return next, expiresAt, nil
}

// clearStorage removes every session key. It runs detached from caller
// cancellation so an aborted request still clears local credentials.
func (s *Store) clearStorage(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, key := range SessionKeys() {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("core: remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inflight++
	s.lastError = nil
	s.releaseAndNotify()
}

func (s *Store) finish(t transition) {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	if t.replaceSession {
		s.session = t.session.clone()
		s.expiresAt = t.expiresAt
	}
	if t.failure != nil {
		structured := t.failure.Structured()
		s.lastError = &structured
	}
	s.releaseAndNotify()
}

// releaseAndNotify must be called with mu held. It queues a snapshot for
// the current listeners and releases mu. If no delivery is running, the
// caller drains the queue; otherwise the running delivery picks it up, so a
// listener may call back into the store without blocking.
func (s *Store) releaseAndNotify() {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, entry := range s.listeners {
		listeners = append(listeners, entry.fn)
	}
	s.pending = append(s.pending, notification{state: s.stateLocked(), listeners: listeners})
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()
		for _, listener := range next.listeners {
			listener(next.state)
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *Store) stateLocked() SessionState {
	return SessionState{
		Session:   s.session.clone(),
		ExpiresAt: s.expiresAt,
		Loading:   s.inflight > 0,
		LastError: s.lastError.clone(),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	if s == nil || listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, entry := range s.listeners {
				if entry.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

func (s *Store) LastError() *StructuredError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError.clone()
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Valid()
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// ExpiresAt is zero when the expiry is unknown, e.g. after Init.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Store) LoggerProvider() LoggerProvider {
	if s == nil {
		return nil
	}
	return s.loggerProvider
}
