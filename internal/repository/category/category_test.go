package category

import (
	"context"
	"testing"

	"storefront/internal/db/dbtest"
	"storefront/internal/domain"
)

func TestPostgres_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)

	for _, c := range []domain.Category{
		{Key: "tees", Name: "Tees", Slug: "tees", SortOrder: 2},
		{Key: "hoodies", Name: "Hoodies", Slug: "hoodies", SortOrder: 1},
	} {
		if _, err := repo.Upsert(ctx, c); err != nil {
			t.Fatalf("upsert %s: %v", c.Key, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "hoodies" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestPostgres_UpsertUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool)

	first, err := repo.Upsert(ctx, domain.Category{Key: "caps", Name: "Caps", Slug: "caps"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, domain.Category{Key: "caps", Name: "Hats"})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same id, got %s and %s", first.ID, second.ID)
	}
	if second.Name != "Hats" || second.Slug != "caps" {
		t.Fatalf("unexpected category %+v", second)
	}
}
