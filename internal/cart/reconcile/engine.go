// Package reconcile decides which of the local, remote or merged cart is
// authoritative on every mutation and identity change, and propagates
// changes to local storage and the remote cart.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/cart/gateway"
	"storefront/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultMaxLineQuantity = 99
	DefaultRemoteTimeout   = 5 * time.Second
	DefaultFetchRetries    = 2
	DefaultFetchRetryDelay = 500 * time.Millisecond
)

// Local is the session's local cart store.
type Local interface {
	Load(ctx context.Context) domain.Snapshot
	Persist(ctx context.Context, snap domain.Snapshot)
	Clear(ctx context.Context)
}

// Remote is the remote cart gateway.
type Remote interface {
	FetchAll(ctx context.Context, userID string) gateway.FetchResult
	UpsertLine(ctx context.Context, userID string, line domain.CartLine) error
	DeleteLine(ctx context.Context, userID, productID string, variant domain.Variant) error
	ReplaceAll(ctx context.Context, userID string, snap domain.Snapshot) error
}

type Option func(*Engine)

// MaxLineQuantity caps the quantity of a single line; n <= 0 disables the cap.
func MaxLineQuantity(n int) Option {
	return func(e *Engine) { e.maxQty = n }
}

// RemoteTimeout bounds every remote call.
func RemoteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.remoteTimeout = d
		}
	}
}

// FetchRetries sets how often an unavailable sign-in fetch is retried, and
// the delay between attempts.
func FetchRetries(n int, delay time.Duration) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.fetchRetries = n
		}
		if delay >= 0 {
			e.fetchRetryDelay = delay
		}
	}
}

// Engine owns the cart of one page session. Mutations are applied to the
// in-memory snapshot synchronously and in call order; remote writes are
// dispatched in the background and never block the caller.
type Engine struct {
	local  Local
	remote Remote
	logger *zap.Logger

	maxQty          int
	remoteTimeout   time.Duration
	fetchRetries    int
	fetchRetryDelay time.Duration

	mu         sync.Mutex
	state      State
	dispatcher *dispatcher

	notifyMu    sync.Mutex
	notified    uint64
	nextSubID   int
	subscribers map[int]func(domain.Snapshot)

	closeOnce sync.Once
	closeErr  error
}

// New loads the local cart and starts in guest mode.
func New(ctx context.Context, local Local, remote Remote, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		local:           local,
		remote:          remote,
		logger:          logger,
		maxQty:          DefaultMaxLineQuantity,
		remoteTimeout:   DefaultRemoteTimeout,
		fetchRetries:    DefaultFetchRetries,
		fetchRetryDelay: DefaultFetchRetryDelay,
		subscribers:     make(map[int]func(domain.Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatcher = newDispatcher(logger, e.remoteTimeout)
	e.state = Initial(local.Load(ctx))
	return e
}

func (e *Engine) MaxLineQuantity() int {
	return e.maxQty
}

// Add puts line into the cart, incrementing the existing line with the same key.
func (e *Engine) Add(ctx context.Context, line domain.CartLine) error {
	if line.ProductID == "" {
		return fmt.Errorf("add to cart: %w", domain.ErrNotFound)
	}
	if line.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	_, err := e.mutate(ctx, Mutation{Op: OpAdd, Line: line})
	return err
}

// SetQuantity sets the quantity of a line; qty < 1 removes it.
func (e *Engine) SetQuantity(ctx context.Context, key string, qty int) error {
	return e.keyed(ctx, Mutation{Op: OpSetQuantity, Key: key, Quantity: qty})
}

func (e *Engine) Increment(ctx context.Context, key string) error {
	return e.adjust(ctx, key, 1)
}

// Decrement lowers the quantity by one, removing the line at zero.
func (e *Engine) Decrement(ctx context.Context, key string) error {
	return e.adjust(ctx, key, -1)
}

func (e *Engine) Remove(ctx context.Context, key string) error {
	return e.keyed(ctx, Mutation{Op: OpRemove, Key: key})
}

// Clear empties the cart, and the remote cart when synced.
func (e *Engine) Clear(ctx context.Context) {
	_, _ = e.mutate(ctx, Mutation{Op: OpClear})
}

func (e *Engine) adjust(ctx context.Context, key string, delta int) error {
	if _, ok := e.Snapshot().Find(key); !ok {
		return domain.ErrNotFound
	}
	// At the ceiling an increment is a no-op rather than an error.
	_, err := e.mutate(ctx, Mutation{Op: OpAdjust, Key: key, Quantity: delta})
	return err
}

func (e *Engine) keyed(ctx context.Context, m Mutation) error {
	changed, err := e.mutate(ctx, m)
	if err != nil {
		return err
	}
	if !changed {
		return domain.ErrNotFound
	}
	return nil
}

func (e *Engine) mutate(ctx context.Context, m Mutation) (bool, error) {
	e.mu.Lock()
	next, cmds, changed := ApplyMutation(e.state, m, e.maxQty)
	if !changed {
		e.mu.Unlock()
		return false, nil
	}
	e.state = next
	e.execLocked(ctx, cmds)
	version, lines := next.Epoch, next.Lines.Clone()
	e.mu.Unlock()

	e.notify(version, lines)
	return true, nil
}

// SignIn runs the sign-in transition for userID. It blocks until the remote
// cart has been fetched and reconciled, or the fetch has failed and its
// retries are exhausted; in that case the current snapshot is kept.
func (e *Engine) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("sign in: empty user id")
	}
	e.mu.Lock()
	next, cmds := SignIn(e.state, userID)
	prevMode := e.state.Mode
	e.state = next
	fetches := e.execLocked(ctx, cmds)
	e.mu.Unlock()

	e.logger.Info("cart sign-in",
		zap.String("user_id", userID), zap.Stringer("from", prevMode), zap.Stringer("to", next.Mode))
	for _, f := range fetches {
		if f, ok := e.settle(ctx, f); ok {
			e.fetch(ctx, f)
		}
	}
	return ctx.Err()
}

// settle waits until every remote write queued for the fetch's user has
// landed, so the read cannot predate an optimistic local edit, and restamps
// the fetch with the epoch it observes. It reports false when the session
// left that user or ctx ended while waiting.
func (e *Engine) settle(ctx context.Context, f Command) (Command, bool) {
	for {
		e.mu.Lock()
		if e.state.Mode == ModeGuest || e.state.UserID != f.UserID {
			e.mu.Unlock()
			return f, false
		}
		idle := e.dispatcher.idle(f.UserID)
		if idle == nil {
			f.Epoch = e.state.Epoch
			e.mu.Unlock()
			return f, true
		}
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return f, false
		}
	}
}

func (e *Engine) fetch(ctx context.Context, cmd Command) {
	for attempt := 0; ; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
		res := e.remote.FetchAll(fetchCtx, cmd.UserID)
		cancel()

		e.mu.Lock()
		next, cmds := ApplyFetch(e.state, cmd.UserID, cmd.Epoch, res)
		changed := next.Epoch != e.state.Epoch
		e.state = next
		e.execLocked(ctx, cmds)
		retry := !res.Available && next.Mode == ModeAuthenticatedSyncing && next.UserID == cmd.UserID
		version, lines := next.Epoch, next.Lines.Clone()
		e.mu.Unlock()

		if changed {
			e.notify(version, lines)
		}
		if !retry {
			return
		}
		if attempt >= e.fetchRetries {
			e.logger.Warn("remote cart unavailable, keeping local cart",
				zap.String("user_id", cmd.UserID), zap.Int("attempts", attempt+1))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.fetchRetryDelay):
		}
	}
}

// SignOut stops remote synchronization and keeps the current cart.
func (e *Engine) SignOut() {
	e.mu.Lock()
	userID := e.state.UserID
	e.state, _ = SignOut(e.state)
	e.mu.Unlock()
	e.logger.Info("cart sign-out", zap.String("user_id", userID))
}

// execLocked runs local commands, dispatches remote writes and returns the
// fetches for the caller to perform without holding the lock.
func (e *Engine) execLocked(ctx context.Context, cmds []Command) []Command {
	var fetches []Command
	for _, cmd := range cmds {
		switch cmd.Kind {
		case PersistLocal:
			if len(cmd.Lines) == 0 {
				e.local.Clear(ctx)
				continue
			}
			e.local.Persist(ctx, cmd.Lines)
		case FetchRemote:
			fetches = append(fetches, cmd)
		case UpsertRemote:
			userID, line := cmd.UserID, cmd.Line
			e.dispatcher.enqueue(userID, cmd.Kind, line.Key(), func(ctx context.Context) error {
				return e.remote.UpsertLine(ctx, userID, line)
			})
		case DeleteRemote:
			userID, line := cmd.UserID, cmd.Line
			e.dispatcher.enqueue(userID, cmd.Kind, line.Key(), func(ctx context.Context) error {
				return e.remote.DeleteLine(ctx, userID, line.ProductID, line.Variant)
			})
		case ReplaceRemote:
			userID, lines := cmd.UserID, cmd.Lines
			e.dispatcher.enqueue(userID, cmd.Kind, "", func(ctx context.Context) error {
				return e.remote.ReplaceAll(ctx, userID, lines)
			})
		}
	}
	return fetches
}

// Snapshot returns a copy of the current cart.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Lines.Clone()
}

// State returns a copy of the reconciliation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Subscribe registers fn for snapshot changes. Notifications arrive in
// version order; a notification older than one already delivered is
// dropped. fn must not call back into the engine's mutators.
func (e *Engine) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	e.notifyMu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.notifyMu.Unlock()

	return func() {
		e.notifyMu.Lock()
		delete(e.subscribers, id)
		e.notifyMu.Unlock()
	}
}

func (e *Engine) notify(version uint64, lines domain.Snapshot) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if version <= e.notified {
		return
	}
	e.notified = version
	for _, fn := range e.subscribers {
		fn(lines.Clone())
	}
}

// Close waits for dispatched remote commands. When ctx ends first the
// remaining commands are cancelled and ctx.Err() is returned.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closeErr = e.dispatcher.close(ctx)
	})
	return e.closeErr
}
