package catalog

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"

	"go.uber.org/zap"
)

// ProductDetail is a product with the storefront fields derived from its category and stock.
type ProductDetail struct {
	domain.Product
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`
	StockStatus string   `json:"stockStatus,omitempty"`
	StockLabel  string   `json:"stockLabel,omitempty"`
}

// Unavailable is a cart line that failed the checkout stock check.
type Unavailable struct {
	Key       string `json:"key"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type Service struct {
	products   productrepo.Repository
	categories categoryrepo.Repository
	logger     *zap.Logger
}

func New(products productrepo.Repository, categories categoryrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, categories: categories, logger: logger}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *Service) ListProducts(ctx context.Context, f productrepo.Filter) ([]ProductDetail, error) {
	f.Category = strings.TrimSpace(strings.ToLower(f.Category))
	f.Query = strings.TrimSpace(f.Query)
	products, err := s.products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]ProductDetail, 0, len(products))
	for _, p := range products {
		out = append(out, detail(p))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ProductDetail, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := detail(*p)
	return &d, nil
}

// CartLine builds the line added to a cart for productID in the given size.
// Prices, names and images are captured from the catalog at this point.
func (s *Service) CartLine(ctx context.Context, productID string, size *string, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if p.SoldOut() {
		return domain.CartLine{}, fmt.Errorf("%s: %w", p.Name, domain.ErrSoldOut)
	}
	variant := domain.NoVariant()
	if size != nil {
		if !offers(SizesFor(p.Category), *size) {
			return domain.CartLine{}, fmt.Errorf("size %q for %s: %w", *size, p.Name, domain.ErrInvalidVariant)
		}
		variant = domain.VariantOf(*size)
	}
	return domain.CartLine{
		ProductID: p.ID,
		Variant:   variant,
		Quantity:  qty,
		UnitPrice: p.Price(),
		Name:      p.Name,
		Image:     p.ImageFront,
	}, nil
}

// CheckStock is a point-in-time check of snap against tracked stock. It
// reserves nothing. Lines of deleted products are reported with zero stock.
func (s *Service) CheckStock(ctx context.Context, snap domain.Snapshot) ([]Unavailable, error) {
	if len(snap) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(snap))
	seen := make(map[string]struct{}, len(snap))
	for _, line := range snap {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checkout stock lookup: %w", err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Sizes of one product share its stock.
	requested := make(map[string]int, len(ids))
	for _, line := range snap {
		requested[line.ProductID] += line.Quantity
	}

	var out []Unavailable
	for _, line := range snap {
		p, ok := byID[line.ProductID]
		if !ok {
			out = append(out, Unavailable{Key: line.Key(), ProductID: line.ProductID, Name: line.Name, Requested: line.Quantity})
			continue
		}
		if p.Stock == nil || requested[p.ID] <= *p.Stock {
			continue
		}
		out = append(out, Unavailable{
			Key:       line.Key(),
			ProductID: line.ProductID,
			Name:      line.Name,
			Requested: line.Quantity,
			Available: max(*p.Stock, 0),
		})
	}
	if len(out) > 0 {
		s.logger.Info("checkout stock check failed", zap.Int("lines", len(out)))
	}
	return out, nil
}

func detail(p domain.Product) ProductDetail {
	return ProductDetail{
		Product:     p,
		Description: Description(p),
		Sizes:       SizesFor(p.Category),
		StockStatus: p.StockStatus(),
		StockLabel:  StockLabel(p),
	}
}

func offers(sizes []string, size string) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}
