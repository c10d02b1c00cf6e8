// Package dbtest connects integration tests to the test database.
package dbtest

import (
	"context"
	"os"
	"testing"

	"storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool returns a migrated pool for TEST_DB_DSN with every table truncated.
// Tests are skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}
	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE cart_items, tokens, customers, products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

// InsertCategory inserts a category and returns its key.
func InsertCategory(t *testing.T, pool *pgxpool.Pool, key string) string {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO categories (key, name, slug) VALUES ($1, $1, $1)`, key); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	return key
}

// InsertProduct inserts a product in category and returns its id.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, key, category string, priceCents int64) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO products (key, name, brand, category, price_cents, image_front)
VALUES ($1, $1, 'Brand', $2, $3, '/img/' || $1 || '.jpg')
RETURNING id::text
`, key, category, priceCents).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

// InsertCustomer inserts a customer and returns its id.
func InsertCustomer(t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO customers (email, password_hash, username)
VALUES ($1, 'x', $1)
RETURNING id::text
`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}
