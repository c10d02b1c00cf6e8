// Package gateway maps remote cart operations onto the cart repository. It
// holds no cart state of its own.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned by writes while the circuit breaker is open.
var ErrUnavailable = errors.New("remote cart unavailable")

// FetchResult distinguishes a genuinely empty remote cart from one that
// could not be read.
type FetchResult struct {
	Lines     domain.Snapshot
	Available bool
}

func Unavailable() FetchResult {
	return FetchResult{}
}

func Available(lines domain.Snapshot) FetchResult {
	if lines == nil {
		lines = domain.Snapshot{}
	}
	return FetchResult{Lines: lines, Available: true}
}

// Repository is the subset of the cart repository the gateway needs.
type Repository interface {
	ListByUser(ctx context.Context, userID string) (domain.Snapshot, error)
	UpdateQuantity(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) (bool, error)
	Insert(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) error
	Delete(ctx context.Context, userID, productID string, variant domain.Variant) error
	DeleteAll(ctx context.Context, userID string) error
	InsertMany(ctx context.Context, userID string, lines domain.Snapshot) error
}

const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second
	DefaultFetchTimeout     = 5 * time.Second
)

type Gateway struct {
	repo    Repository
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[any]
	fetches singleflight.Group

	failureThreshold uint32
	openTimeout      time.Duration
	fetchTimeout     time.Duration
}

type Option func(*Gateway)

// WithBreaker opens the circuit after threshold consecutive failures and
// keeps it open for openTimeout.
func WithBreaker(threshold uint32, openTimeout time.Duration) Option {
	return func(g *Gateway) {
		if threshold > 0 {
			g.failureThreshold = threshold
		}
		if openTimeout > 0 {
			g.openTimeout = openTimeout
		}
	}
}

// WithFetchTimeout bounds the repository read shared by concurrent fetches.
func WithFetchTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.fetchTimeout = d
		}
	}
}

func New(repo Repository, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		repo:             repo,
		logger:           logger,
		failureThreshold: DefaultFailureThreshold,
		openTimeout:      DefaultOpenTimeout,
		fetchTimeout:     DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	threshold := g.failureThreshold
	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "remote-cart",
		MaxRequests: 1,
		Timeout:     g.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return g
}

// FetchAll reads the user's remote cart. Any failure, including an open
// breaker or ctx ending, yields Unavailable. Concurrent fetches for one user
// share a single repository read, which is not tied to any one caller's ctx.
func (g *Gateway) FetchAll(ctx context.Context, userID string) FetchResult {
	ch := g.fetches.DoChan(userID, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.fetchTimeout)
		defer cancel()
		return g.breaker.Execute(func() (any, error) {
			return g.repo.ListByUser(readCtx, userID)
		})
	})
	select {
	case <-ctx.Done():
		g.logger.Debug("remote cart fetch abandoned", zap.String("user_id", userID), zap.Error(ctx.Err()))
		return Unavailable()
	case res := <-ch:
		if res.Err != nil {
			g.logger.Warn("remote cart fetch failed", zap.String("user_id", userID), zap.Error(res.Err))
			return Unavailable()
		}
		return Available(res.Val.(domain.Snapshot).Clone())
	}
}

// UpsertLine sets the quantity of the matching remote row, inserting it when
// absent. A concurrent insert of the same row falls back to the update.
func (g *Gateway) UpsertLine(ctx context.Context, userID string, line domain.CartLine) error {
	return g.execute(func() error {
		found, err := g.repo.UpdateQuantity(ctx, userID, line.ProductID, line.Variant, line.Quantity)
		if err != nil {
			return fmt.Errorf("update cart line %s: %w", line.Key(), err)
		}
		if found {
			return nil
		}
		err = g.repo.Insert(ctx, userID, line.ProductID, line.Variant, line.Quantity)
		if errors.Is(err, domain.ErrAlreadyExists) {
			if _, err = g.repo.UpdateQuantity(ctx, userID, line.ProductID, line.Variant, line.Quantity); err != nil {
				return fmt.Errorf("update cart line %s after conflict: %w", line.Key(), err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert cart line %s: %w", line.Key(), err)
		}
		return nil
	})
}

// DeleteLine removes the matching remote row; absent rows are not an error.
func (g *Gateway) DeleteLine(ctx context.Context, userID, productID string, variant domain.Variant) error {
	return g.execute(func() error {
		if err := g.repo.Delete(ctx, userID, productID, variant); err != nil {
			return fmt.Errorf("delete cart line %s: %w", domain.CompositeKey(productID, variant), err)
		}
		return nil
	})
}

// ReplaceAll deletes every remote row of the user and inserts snap. The two
// steps are not atomic: a failure between them leaves the remote cart empty.
func (g *Gateway) ReplaceAll(ctx context.Context, userID string, snap domain.Snapshot) error {
	return g.execute(func() error {
		if err := g.repo.DeleteAll(ctx, userID); err != nil {
			return fmt.Errorf("clear remote cart: %w", err)
		}
		if err := g.repo.InsertMany(ctx, userID, snap); err != nil {
			return fmt.Errorf("insert remote cart: %w", err)
		}
		return nil
	})
}

func (g *Gateway) execute(fn func() error) error {
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
