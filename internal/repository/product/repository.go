package product

import (
	"context"

	"storefront/internal/domain"
)

// Filter narrows a product listing. Query matches name or brand,
// case-insensitively.
type Filter struct {
	Category string
	Query    string
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
