package seed

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	products   []domain.Product
	categories []domain.Category
}

type productSink struct{ r *recorder }

type categorySink struct{ r *recorder }

func (s productSink) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.r.products = append(s.r.products, p)
	return &p, nil
}

func (s categorySink) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	s.r.categories = append(s.r.categories, c)
	return &c, nil
}

func TestApply(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Apply(context.Background(), productSink{rec}, categorySink{rec}, nil))

	assert.Len(t, rec.categories, len(categories), "seeded categories are not re-created for products")
	assert.Equal(t, "T-Shirts", rec.categories[1].Name)
	require.Len(t, rec.products, len(products))

	keys := map[string]bool{}
	for _, p := range rec.products {
		assert.False(t, keys[p.Key], "duplicate key %s", p.Key)
		keys[p.Key] = true
		assert.Positive(t, p.PriceCents)
		require.NotNil(t, p.Stock)
	}
	assert.Equal(t, "awesome-hoodie", rec.products[0].Key)
	assert.Equal(t, int64(100000), rec.products[0].PriceCents)
}

func TestRecords_HaveSoldOutAndLowStock(t *testing.T) {
	var soldOut, low int
	for _, r := range Records() {
		switch {
		case *r.Stock == 0:
			soldOut++
		case *r.Stock <= 5:
			low++
		}
	}
	assert.Positive(t, soldOut)
	assert.Positive(t, low)
}
