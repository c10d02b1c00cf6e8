package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository maps cart rows keyed by (user, product, variant). It owns no state.
type Repository interface {
	// ListByUser returns the user's lines joined with catalog display data,
	// oldest first.
	ListByUser(ctx context.Context, userID string) (domain.Snapshot, error)
	// UpdateQuantity reports whether a matching row existed.
	UpdateQuantity(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) (bool, error)
	// Insert returns domain.ErrAlreadyExists when the row was inserted concurrently.
	Insert(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) error
	Delete(ctx context.Context, userID, productID string, variant domain.Variant) error
	DeleteAll(ctx context.Context, userID string) error
	// InsertMany skips lines whose product no longer exists.
	InsertMany(ctx context.Context, userID string, lines domain.Snapshot) error
}
