package domain

import (
	"net/url"

	"github.com/shopspring/decimal"
)

// Variant discriminates lines of the same product (a size, for instance).
// The zero value is "no variant", which differs from every concrete value
// including the empty string.
type Variant struct {
	Value string
	Valid bool
}

func NoVariant() Variant {
	return Variant{}
}

func VariantOf(v string) Variant {
	return Variant{Value: v, Valid: true}
}

// VariantFromPtr maps a nullable column or JSON field to a Variant.
func VariantFromPtr(v *string) Variant {
	if v == nil {
		return NoVariant()
	}
	return VariantOf(*v)
}

// Ptr returns nil for no variant.
func (v Variant) Ptr() *string {
	if !v.Valid {
		return nil
	}
	s := v.Value
	return &s
}

func (v Variant) String() string {
	if !v.Valid {
		return "<none>"
	}
	return v.Value
}

// CompositeKey identifies a cart line by product and variant. Both parts are
// path-escaped so the separator can never appear inside them.
func CompositeKey(productID string, variant Variant) string {
	key := url.PathEscape(productID)
	if variant.Valid {
		key += "|" + url.PathEscape(variant.Value)
	}
	return key
}

// CartLine is one purchasable unit in a cart. UnitPrice, Name and Image are
// captured when the line is added and are not refreshed from the catalog.
type CartLine struct {
	ProductID string          `json:"productId"`
	Variant   Variant         `json:"-"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
}

func (l CartLine) Key() string {
	return CompositeKey(l.ProductID, l.Variant)
}

// Subtotal is UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an ordered cart; insertion order is display order and keys are unique.
// Methods never modify the receiver.
type Snapshot []CartLine

func (s Snapshot) Index(key string) int {
	for i, line := range s {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (s Snapshot) Find(key string) (CartLine, bool) {
	if i := s.Index(key); i >= 0 {
		return s[i], true
	}
	return CartLine{}, false
}

// Clone returns a non-nil copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, line := range s {
		keys = append(keys, line.Key())
	}
	return keys
}

// Add appends line or, when its key is already present, increments the
// existing quantity. maxQty <= 0 disables the ceiling.
func (s Snapshot) Add(line CartLine, maxQty int) Snapshot {
	out := s.Clone()
	if i := out.Index(line.Key()); i >= 0 {
		out[i].Quantity = clampQuantity(out[i].Quantity+line.Quantity, maxQty)
		return out
	}
	line.Quantity = clampQuantity(line.Quantity, maxQty)
	return append(out, line)
}

// SetQuantity sets the quantity of the line with the given key. A quantity
// below 1 removes the line. The bool is false when the key is absent.
func (s Snapshot) SetQuantity(key string, qty, maxQty int) (Snapshot, bool) {
	if qty < 1 {
		return s.Remove(key)
	}
	i := s.Index(key)
	if i < 0 {
		return s.Clone(), false
	}
	out := s.Clone()
	out[i].Quantity = clampQuantity(qty, maxQty)
	return out, true
}

func (s Snapshot) Remove(key string) (Snapshot, bool) {
	i := s.Index(key)
	if i < 0 {
		return s.Clone(), false
	}
	out := make(Snapshot, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), true
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (s Snapshot) Count() int {
	n := 0
	for _, line := range s {
		n += line.Quantity
	}
	return n
}

// Normalize drops lines without a product id or with a non-positive quantity
// and keeps only the first line for each key.
func (s Snapshot) Normalize() Snapshot {
	out := make(Snapshot, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, line := range s {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		key := line.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return out
}

// Merge combines a guest cart with a stored remote cart. Keys present in both
// get the sum of the two quantities; keys present in one side only are kept
// unchanged. Remote lines come first, followed by local-only lines in local order.
func Merge(local, remote Snapshot) Snapshot {
	localByKey := make(map[string]CartLine, len(local))
	for _, line := range local {
		localByKey[line.Key()] = line
	}
	out := make(Snapshot, 0, len(local)+len(remote))
	for _, line := range remote {
		if l, ok := localByKey[line.Key()]; ok {
			line.Quantity += l.Quantity
		}
		out = append(out, line)
	}
	for _, line := range local {
		if remote.Index(line.Key()) >= 0 {
			continue
		}
		out = append(out, line)
	}
	return out
}

func clampQuantity(qty, maxQty int) int {
	if maxQty > 0 && qty > maxQty {
		return maxQty
	}
	return qty
}
