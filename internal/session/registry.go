// Package session keeps one page session per browser profile. A page session
// owns its own local cart store, reconciliation engine, cart drawer and auth
// bridge.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/cart/authbridge"
	"storefront/internal/cart/localstore"
	"storefront/internal/cart/presenter"
	"storefront/internal/cart/reconcile"
	"storefront/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultIdleTTL is how long an unused session is kept.
const DefaultIdleTTL = 30 * time.Minute

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("session registry closed")

type Session struct {
	ProfileID string
	Store     *localstore.Store
	Engine    *reconcile.Engine
	Panel     *presenter.Panel
	Bridge    *authbridge.Bridge

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close(ctx context.Context) error {
	s.Panel.Detach()
	return s.Engine.Close(ctx)
}

type Registry struct {
	backend storage.Backend
	remote  reconcile.Remote
	logger  *zap.Logger
	idleTTL time.Duration
	engine  []reconcile.Option
	now     func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

type Option func(*Registry)

// IdleTTL overrides DefaultIdleTTL.
func IdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// EngineOptions are passed to every engine the registry builds.
func EngineOptions(opts ...reconcile.Option) Option {
	return func(r *Registry) { r.engine = append(r.engine, opts...) }
}

func NewRegistry(backend storage.Backend, remote reconcile.Remote, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		backend:  backend,
		remote:   remote,
		logger:   logger,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session of profileID, creating it on first use.
func (r *Registry) Get(ctx context.Context, profileID string) (*Session, error) {
	if s, ok, err := r.lookup(profileID); ok || err != nil {
		return s, err
	}
	v, err, _ := r.group.Do(profileID, func() (any, error) {
		if s, ok, err := r.lookup(profileID); ok || err != nil {
			return s, err
		}
		s := r.build(ctx, profileID)
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = s.close(ctx)
			return nil, ErrClosed
		}
		r.sessions[profileID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) lookup(profileID string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, ErrClosed
	}
	s, ok := r.sessions[profileID]
	if ok {
		s.touch(r.now())
	}
	return s, ok, nil
}

func (r *Registry) build(ctx context.Context, profileID string) *Session {
	logger := r.logger.With(zap.String("profile_id", profileID))
	store := localstore.New(r.backend.Scope(profileID), logger)
	store.Migrate(ctx)
	engine := reconcile.New(ctx, store, r.remote, logger, r.engine...)
	s := &Session{
		ProfileID: profileID,
		Store:     store,
		Engine:    engine,
		Panel:     presenter.New(engine),
		Bridge:    authbridge.New(engine, logger),
		lastUsed:  r.now(),
	}
	logger.Debug("page session started", zap.Int("lines", len(engine.Snapshot())))
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle closes sessions unused for longer than the idle TTL and returns
// how many were closed.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := s.close(ctx); err != nil {
			r.logger.Warn("close idle session", zap.String("profile_id", s.ProfileID), zap.Error(err))
		}
	}
	if len(idle) > 0 {
		r.logger.Info("idle sessions evicted", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}

// Close closes every session, draining queued remote writes until ctx ends.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
