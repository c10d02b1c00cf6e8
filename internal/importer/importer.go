package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, category domain.Category) (*domain.Category, error)
}

// Kind tells which entity a CSV file holds.
type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
)

// Importer upserts catalog files. Categories referenced by products are
// created on the fly so product rows never violate the category reference.
type Importer struct {
	products   ProductWriter
	categories CategoryWriter
	logger     *zap.Logger
	ensured    map[string]bool
}

func New(products ProductWriter, categories CategoryWriter, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		products:   products,
		categories: categories,
		logger:     logger,
		ensured:    make(map[string]bool),
	}
}

// ProductRecord is one product of a JSON catalog file. Price is in currency
// units, e.g. 49.99.
type ProductRecord struct {
	ID        string          `json:"id,omitempty"`
	Key       string          `json:"key,omitempty"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	ImageSrc  string          `json:"imageSrc,omitempty"`
	ImageBack string          `json:"imageBack,omitempty"`
	Stock     *int            `json:"stock,omitempty"`
}

// RunJSON imports a JSON array of ProductRecord and returns the number of
// products written.
func (i *Importer) RunJSON(ctx context.Context, r io.Reader) (int, error) {
	var records []ProductRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode catalog: %w", err)
	}
	return i.Import(ctx, records)
}

// Import upserts records in order and returns the number written.
func (i *Importer) Import(ctx context.Context, records []ProductRecord) (int, error) {
	imported := 0
	for n, rec := range records {
		if err := i.saveProduct(ctx, rec); err != nil {
			return imported, fmt.Errorf("record %d: %w", n, err)
		}
		imported++
	}
	i.logger.Info("catalog imported", zap.Int("products", imported))
	return imported, nil
}

// Categories upserts cats before any product that references them.
func (i *Importer) Categories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		if err := i.saveCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// DetectKind inspects the CSV header.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(r).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers))
}

func kindOf(index map[string]int) (Kind, error) {
	if _, ok := index["price"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["key"]; ok {
		if _, ok := index["name"]; ok {
			return KindCategories, nil
		}
	}
	return "", errors.New("unrecognized csv header")
}

// RunCSV imports a products or categories CSV and returns the number of rows written.
func (i *Importer) RunCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may have trailing commas
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	kind, err := kindOf(index)
	if err != nil {
		return 0, err
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}
		switch kind {
		case KindProducts:
			rec, err := parseProductRow(record, index)
			if err == nil {
				err = i.saveProduct(ctx, rec)
			}
			if err != nil {
				return imported, fmt.Errorf("line %d: %w", line, err)
			}
		case KindCategories:
			if err := i.saveCategory(ctx, parseCategoryRow(record, index)); err != nil {
				return imported, fmt.Errorf("line %d: %w", line, err)
			}
		}
		imported++
	}
	i.logger.Info("csv imported", zap.String("kind", string(kind)), zap.Int("rows", imported))
	return imported, nil
}

func (i *Importer) saveProduct(ctx context.Context, rec ProductRecord) error {
	rec.Category = strings.ToLower(strings.TrimSpace(rec.Category))
	if rec.Name == "" || rec.Category == "" || !rec.Price.IsPositive() {
		return fmt.Errorf("invalid product %q (missing required fields)", rec.Name)
	}
	if rec.ID != "" && len(rec.ID) != 36 {
		rec.ID = ""
	}
	key := rec.Key
	if key == "" {
		key = Slugify(rec.Name)
	}
	if err := i.ensureCategory(ctx, rec.Category); err != nil {
		return err
	}

	p := domain.Product{
		ID:         rec.ID,
		Key:        key,
		Name:       rec.Name,
		Brand:      rec.Brand,
		Category:   rec.Category,
		PriceCents: rec.Price.Shift(2).Round(0).IntPart(),
		Currency:   strings.ToUpper(rec.Currency),
		ImageFront: rec.ImageSrc,
		ImageBack:  rec.ImageBack,
		Stock:      rec.Stock,
	}
	if _, err := i.products.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", key, err)
	}
	return nil
}

func (i *Importer) ensureCategory(ctx context.Context, key string) error {
	if i.ensured[key] {
		return nil
	}
	return i.saveCategory(ctx, domain.Category{Key: key, Name: titleCase(key), Slug: key})
}

func (i *Importer) saveCategory(ctx context.Context, c domain.Category) error {
	if c.Key == "" {
		return errors.New("category key required")
	}
	if c.Name == "" {
		c.Name = titleCase(c.Key)
	}
	if _, err := i.categories.Upsert(ctx, c); err != nil {
		return fmt.Errorf("upsert category %q: %w", c.Key, err)
	}
	i.ensured[c.Key] = true
	return nil
}

func parseProductRow(record []string, index map[string]int) (ProductRecord, error) {
	rec := ProductRecord{
		ID:        pick(record, index, "id"),
		Key:       pick(record, index, "key"),
		Name:      pick(record, index, "name"),
		Brand:     pick(record, index, "brand"),
		Category:  pick(record, index, "category"),
		Currency:  pick(record, index, "currency"),
		ImageSrc:  pick(record, index, "image_front"),
		ImageBack: pick(record, index, "image_back"),
	}
	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return rec, fmt.Errorf("price for %q: %w", rec.Name, err)
	}
	rec.Price = price
	if s := pick(record, index, "stock"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return rec, fmt.Errorf("stock for %q: %w", rec.Name, err)
		}
		rec.Stock = &n
	}
	return rec, nil
}

func parseCategoryRow(record []string, index map[string]int) domain.Category {
	c := domain.Category{
		Key:  strings.ToLower(pick(record, index, "key")),
		Name: pick(record, index, "name"),
		Slug: pick(record, index, "slug"),
	}
	if c.Slug == "" {
		c.Slug = c.Key
	}
	c.SortOrder, _ = strconv.Atoi(pick(record, index, "sort_order"))
	return c
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func titleCase(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
