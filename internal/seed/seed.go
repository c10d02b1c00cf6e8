// Package seed loads the demo streetwear catalog for manual testing.
package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/importer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var categories = []domain.Category{
	{Key: "hoodies", Name: "Hoodies", Slug: "hoodies", SortOrder: 1},
	{Key: "tshirts", Name: "T-Shirts", Slug: "tshirts", SortOrder: 2},
	{Key: "jackets", Name: "Jackets", Slug: "jackets", SortOrder: 3},
	{Key: "pants", Name: "Pants", Slug: "pants", SortOrder: 4},
	{Key: "shoes", Name: "Shoes", Slug: "shoes", SortOrder: 5},
	{Key: "bags", Name: "Bags", Slug: "bags", SortOrder: 6},
	{Key: "other", Name: "Other", Slug: "other", SortOrder: 7},
}

type productSeed struct {
	name     string
	brand    string
	category string
	price    int64
	image    string
	stock    int
}

var products = []productSeed{
	{"Awesome Hoodie", "Storefront", "hoodies", 1000, "hoodie", 25},
	{"Cool Pants", "Storefront", "pants", 1200, "pants", 25},
	{"Balenciaga NBA 25", "Balenciaga", "tshirts", 1500, "balenciaga_nba25", 10},
	{"Balenciaga NBA 26", "Balenciaga", "tshirts", 1500, "balenciaga_nba26", 3},
	{"Balenciaga NBA Backpack", "Balenciaga", "bags", 2000, "balenciaga_nba_backpack30", 5},
	{"Balenciaga NBA Jacket", "Balenciaga", "jackets", 2500, "balenciaga_nba_jacket_32", 0},
	{"Balenciaga NBA Slides", "Balenciaga", "shoes", 800, "balenciaga_nba_slides29", 12},
	{"Corteiz Denim Jacket", "Corteiz", "jackets", 2200, "corteiz_denimjacket19", 8},
	{"Corteiz Hoodie", "Corteiz", "hoodies", 1200, "corteiz_hoodie16", 20},
	{"Corteiz Pants", "Corteiz", "pants", 1500, "corteiz_pants14", 15},
	{"Corteiz Shirt", "Corteiz", "tshirts", 900, "corteiz_shirt20", 30},
	{"Supreme Caps", "Supreme", "other", 550, "supreme_caps1", 40},
	{"Supreme Hoodie", "Supreme", "hoodies", 1300, "supreme_hoodie1", 2},
	{"Supreme Shorts", "Supreme", "pants", 1000, "supreme_shorts11", 18},
	{"Supreme Triple 9", "Supreme", "tshirts", 1100, "supreme_triple9", 22},
}

// Records returns the demo products in import form.
func Records() []importer.ProductRecord {
	out := make([]importer.ProductRecord, 0, len(products))
	for _, p := range products {
		stock := p.stock
		out = append(out, importer.ProductRecord{
			Key:       importer.Slugify(p.name),
			Name:      p.name,
			Brand:     p.brand,
			Category:  p.category,
			Price:     decimal.NewFromInt(p.price),
			Currency:  "USD",
			ImageSrc:  "/images/" + p.image + ".jpeg",
			ImageBack: "/images/" + p.image + "_back.jpeg",
			Stock:     &stock,
		})
	}
	return out
}

// Apply upserts the demo catalog. It is idempotent: products are keyed by slug.
func Apply(ctx context.Context, products importer.ProductWriter, cats importer.CategoryWriter, logger *zap.Logger) error {
	imp := importer.New(products, cats, logger)
	if err := imp.Categories(ctx, categories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if _, err := imp.Import(ctx, Records()); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	return nil
}
