package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which a product is flagged as low.
const LowStockThreshold = 5

type Product struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand,omitempty"`
	Category   string    `json:"category"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	ImageFront string    `json:"imageFront,omitempty"`
	ImageBack  string    `json:"imageBack,omitempty"`
	Stock      *int      `json:"stock,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Price returns the catalog price as a decimal amount.
func (p Product) Price() decimal.Decimal {
	return decimal.New(p.PriceCents, -2)
}

// SoldOut reports whether the product is tracked and has no stock.
func (p Product) SoldOut() bool {
	return p.Stock != nil && *p.Stock <= 0
}

// StockStatus returns "out_of_stock", "low_stock" or "" for untracked or plentiful stock.
func (p Product) StockStatus() string {
	if p.Stock == nil {
		return ""
	}
	switch {
	case *p.Stock <= 0:
		return "out_of_stock"
	case *p.Stock <= LowStockThreshold:
		return "low_stock"
	default:
		return ""
	}
}
