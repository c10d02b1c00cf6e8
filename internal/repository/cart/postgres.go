package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) (domain.Snapshot, error) {
	const q = `
SELECT ci.product_id::text, ci.variant, ci.quantity, p.name, p.price_cents, COALESCE(p.image_front, '')
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $1
ORDER BY ci.seq ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := domain.Snapshot{}
	for rows.Next() {
		var (
			line       domain.CartLine
			variant    *string
			priceCents int64
		)
		if err := rows.Scan(&line.ProductID, &variant, &line.Quantity, &line.Name, &priceCents, &line.Image); err != nil {
			return nil, err
		}
		line.Variant = domain.VariantFromPtr(variant)
		line.UnitPrice = decimal.New(priceCents, -2)
		snap = append(snap, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items
SET quantity = $4
WHERE user_id = $1 AND product_id = $2 AND variant IS NOT DISTINCT FROM $3
`, userID, productID, variant.Ptr(), quantity)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) Insert(ctx context.Context, userID, productID string, variant domain.Variant, quantity int) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO cart_items (user_id, product_id, variant, quantity)
VALUES ($1, $2, $3, $4)
`, userID, productID, variant.Ptr(), quantity)
	return mapInsertErr(err)
}

func (r *postgresRepo) Delete(ctx context.Context, userID, productID string, variant domain.Variant) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM cart_items
WHERE user_id = $1 AND product_id = $2 AND variant IS NOT DISTINCT FROM $3
`, userID, productID, variant.Ptr())
	return err
}

func (r *postgresRepo) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

// InsertMany inserts lines in order. Lines whose product is no longer in the
// catalog are skipped so one stale line cannot abort the batch.
func (r *postgresRepo) InsertMany(ctx context.Context, userID string, lines domain.Snapshot) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(`
INSERT INTO cart_items (user_id, product_id, variant, quantity)
SELECT $1::uuid, p.id, $3::text, $4::int
FROM products p
WHERE p.id::text = $2
`, userID, line.ProductID, line.Variant.Ptr(), line.Quantity)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for _, line := range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert line %s: %w", line.Key(), mapInsertErr(err))
		}
	}
	return nil
}

func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}
