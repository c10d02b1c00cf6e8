// Package presenter renders the reconciled cart as a drawer and routes the
// drawer's controls back into the engine.
package presenter

import (
	"context"
	"html/template"
	"io"
	"sync"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Engine is the part of the reconciliation engine the drawer drives.
type Engine interface {
	Snapshot() domain.Snapshot
	Subscribe(fn func(domain.Snapshot)) (unsubscribe func())
	MaxLineQuantity() int
	Add(ctx context.Context, line domain.CartLine) error
	Increment(ctx context.Context, key string) error
	Decrement(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
}

type LineView struct {
	Key          string          `json:"key"`
	ProductID    string          `json:"productId"`
	Size         *string         `json:"size"`
	Name         string          `json:"name"`
	Image        string          `json:"image,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CanIncrement bool            `json:"canIncrement"`
}

type View struct {
	Lines []LineView      `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Empty bool            `json:"empty"`
	Open  bool            `json:"open"`
}

// Panel is the cart drawer of one page session.
type Panel struct {
	engine      Engine
	unsubscribe func()

	mu    sync.RWMutex
	open  bool
	lines domain.Snapshot
}

func New(engine Engine) *Panel {
	p := &Panel{engine: engine}
	p.unsubscribe = engine.Subscribe(p.update)
	p.lines = engine.Snapshot()
	return p
}

func (p *Panel) update(lines domain.Snapshot) {
	p.mu.Lock()
	p.lines = lines
	p.mu.Unlock()
}

// Detach stops following the engine.
func (p *Panel) Detach() {
	p.unsubscribe()
}

func (p *Panel) View() View {
	p.mu.RLock()
	lines, open := p.lines, p.open
	p.mu.RUnlock()

	maxQty := p.engine.MaxLineQuantity()
	v := View{
		Lines: make([]LineView, 0, len(lines)),
		Total: lines.Total(),
		Count: lines.Count(),
		Empty: len(lines) == 0,
		Open:  open,
	}
	for _, l := range lines {
		v.Lines = append(v.Lines, LineView{
			Key:          l.Key(),
			ProductID:    l.ProductID,
			Size:         l.Variant.Ptr(),
			Name:         l.Name,
			Image:        l.Image,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Subtotal:     l.Subtotal(),
			CanIncrement: maxQty <= 0 || l.Quantity < maxQty,
		})
	}
	return v
}

// Render writes the drawer HTML fragment.
func (p *Panel) Render(w io.Writer) error {
	return drawerTemplate.Execute(w, p.View())
}

// Add puts line into the cart and opens the drawer.
func (p *Panel) Add(ctx context.Context, line domain.CartLine) error {
	if err := p.engine.Add(ctx, line); err != nil {
		return err
	}
	p.Open()
	return nil
}

func (p *Panel) Increment(ctx context.Context, key string) error {
	return p.engine.Increment(ctx, key)
}

func (p *Panel) Decrement(ctx context.Context, key string) error {
	return p.engine.Decrement(ctx, key)
}

func (p *Panel) Remove(ctx context.Context, key string) error {
	return p.engine.Remove(ctx, key)
}

func (p *Panel) Open() {
	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
}

func (p *Panel) Close() {
	p.mu.Lock()
	p.open = false
	p.mu.Unlock()
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

var drawerTemplate = template.Must(template.New("drawer").Funcs(template.FuncMap{
	"money": money,
}).Parse(`<aside id="cart-drawer" class="cart-drawer{{if .Open}} active{{end}}" data-count="{{.Count}}">
<header class="cart-drawer-header"><h2>Cart</h2><span id="cart-badge" class="cart-badge"{{if .Empty}} hidden{{end}}>{{.Count}}</span></header>
{{- if .Empty}}
<div class="cart-drawer-empty"><p>Your cart is empty</p></div>
{{- else}}
<ul id="cart-drawer-items">
{{- range .Lines}}
<li class="cart-drawer-item" data-key="{{.Key}}">
<img class="cart-drawer-item-img" src="{{.Image}}" alt="{{.Name}}">
<span class="cart-drawer-item-name">{{.Name}}</span>{{with .Size}} <span class="cart-drawer-item-size">{{.}}</span>{{end}}
<span class="cart-drawer-item-price">{{money .UnitPrice}}</span>
<span class="cart-drawer-item-subtotal">{{money .Subtotal}}</span>
<button class="cart-qty-minus" data-key="{{.Key}}">-</button>
<span class="cart-qty">{{.Quantity}}</span>
<button class="cart-qty-plus" data-key="{{.Key}}"{{if not .CanIncrement}} disabled{{end}}>+</button>
<button class="cart-drawer-remove" data-key="{{.Key}}">Remove</button>
</li>
{{- end}}
</ul>
<footer id="cart-drawer-footer"><span id="cart-drawer-total">{{money .Total}}</span></footer>
{{- end}}
</aside>
`))
