package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const selectProduct = `
SELECT id::text, key, name, COALESCE(brand, ''), category, price_cents, currency,
       COALESCE(image_front, ''), COALESCE(image_back, ''), stock, created_at
FROM products
`

func (r *postgresRepo) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	q := selectProduct + `
WHERE ($1 = '' OR category = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR brand ILIKE '%' || $2 || '%')
ORDER BY created_at DESC, key ASC
`
	query := escapeLike(strings.TrimSpace(f.Query))
	rows, err := r.pool.Query(ctx, q, f.Category, query)
	if err != nil {
		r.logger.Error("product repo: list", zap.String("category", f.Category), zap.Error(err))
		return nil, err
	}
	result, err := collect(rows)
	if err != nil {
		r.logger.Error("product repo: list rows", zap.String("category", f.Category), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: list",
		zap.String("category", f.Category), zap.String("query", f.Query), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+`WHERE id = $1`, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	result, err := collect(rows)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if len(result) == 0 {
		r.logger.Debug("product repo: get not found", zap.String("id", id))
		return nil, domain.ErrNotFound
	}
	return &result[0], nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectProduct+`WHERE id::text = ANY($1)`, ids)
	if err != nil {
		r.logger.Error("product repo: get many", zap.Int("ids", len(ids)), zap.Error(err))
		return nil, err
	}
	return collect(rows)
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, key, name, brand, category, price_cents, currency, image_front, image_back, stock)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
ON CONFLICT (key) DO UPDATE SET
    name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    category = EXCLUDED.category,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    image_front = EXCLUDED.image_front,
    image_back = EXCLUDED.image_back,
    stock = EXCLUDED.stock
RETURNING id::text, created_at
`
	if p.Currency == "" {
		p.Currency = "USD"
	}
	res := p
	err := r.pool.QueryRow(ctx, q,
		p.ID, p.Key, p.Name, p.Brand, p.Category, p.PriceCents, p.Currency, p.ImageFront, p.ImageBack, p.Stock,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("key", p.Key), zap.Error(err))
		return nil, err
	}
	if p.ID != "" && res.ID != p.ID {
		return nil, fmt.Errorf("product repo: id mismatch for key=%s existing_id=%s import_id=%s", p.Key, res.ID, p.ID)
	}
	r.logger.Debug("product repo: upserted", zap.String("key", res.Key), zap.String("id", res.ID))
	return &res, nil
}

func collect(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Key, &p.Name, &p.Brand, &p.Category, &p.PriceCents, &p.Currency,
			&p.ImageFront, &p.ImageBack, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// mapLookupErr treats malformed ids (invalid_text_representation) as not found.
func mapLookupErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return domain.ErrNotFound
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
