// Package authbridge feeds identity changes from the auth provider into the
// cart engine.
package authbridge

import (
	"context"
	"sync"

	"storefront/internal/cart/reconcile"
	"storefront/internal/domain"

	"go.uber.org/zap"
)

type Kind int

const (
	SignedIn Kind = iota
	SignedOut
	SessionRestored
	TokenRefreshed
)

func (k Kind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case SessionRestored:
		return "session_restored"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event is one notification from the auth provider. UserID is empty for
// SignedOut and for a restored session without a user.
type Event struct {
	Kind   Kind
	UserID string
}

func (e Event) identity() domain.Identity {
	if e.Kind == SignedOut {
		return domain.Guest()
	}
	return domain.Authenticated(e.UserID)
}

// Engine is the part of the reconciliation engine the bridge drives.
type Engine interface {
	SignIn(ctx context.Context, userID string) error
	SignOut()
	State() reconcile.State
}

// Bridge forwards identity transitions. Notifications repeating the current
// identity are dropped so the engine does not re-run the sign-in path on
// every auth event; an explicit SignedIn still refreshes the cart, and a
// repeat while the first fetch has not been reconciled retries it.
type Bridge struct {
	engine Engine
	logger *zap.Logger

	mu   sync.Mutex
	last domain.Identity
}

func New(engine Engine, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{engine: engine, logger: logger, last: domain.Guest()}
}

// Handle processes one event. Events are serialized, so a sign-in fetch
// delays later events of the same session.
func (b *Bridge) Handle(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := ev.identity()
	if id == b.last && !b.forward(ev) {
		b.logger.Debug("auth event deduplicated", zap.Stringer("kind", ev.Kind), zap.Stringer("identity", id))
		return nil
	}

	b.logger.Info("auth transition",
		zap.Stringer("kind", ev.Kind), zap.Stringer("from", b.last), zap.Stringer("to", id))
	b.last = id
	if id.IsGuest() {
		b.engine.SignOut()
		return nil
	}
	return b.engine.SignIn(ctx, id.UserID)
}

// forward reports whether an event repeating the current identity still
// reaches the engine.
func (b *Bridge) forward(ev Event) bool {
	if b.last.IsGuest() {
		return false
	}
	if ev.Kind == SignedIn {
		return true
	}
	return b.engine.State().Mode == reconcile.ModeAuthenticatedSyncing
}
