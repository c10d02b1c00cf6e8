package category

import (
	"context"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id::text, key, name, COALESCE(slug, ''), sort_order, created_at
FROM categories
ORDER BY sort_order ASC, name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (key, name, slug, sort_order)
VALUES ($1, $2, NULLIF($3, ''), $4)
ON CONFLICT (key) DO UPDATE
SET name = EXCLUDED.name,
    slug = COALESCE(EXCLUDED.slug, categories.slug),
    sort_order = EXCLUDED.sort_order
RETURNING id::text, COALESCE(slug, ''), created_at
`
	out := c
	err := r.pool.QueryRow(ctx, q, c.Key, c.Name, c.Slug, c.SortOrder).Scan(&out.ID, &out.Slug, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
