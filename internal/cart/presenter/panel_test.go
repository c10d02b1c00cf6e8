package presenter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	lines  domain.Snapshot
	maxQty int
	subs   []func(domain.Snapshot)
	calls  []string
	err    error
}

func (s *stubEngine) Snapshot() domain.Snapshot { return s.lines.Clone() }

func (s *stubEngine) Subscribe(fn func(domain.Snapshot)) func() {
	s.subs = append(s.subs, fn)
	return func() { s.subs = nil }
}

func (s *stubEngine) MaxLineQuantity() int { return s.maxQty }

func (s *stubEngine) publish(lines domain.Snapshot) {
	s.lines = lines
	for _, fn := range s.subs {
		fn(lines.Clone())
	}
}

func (s *stubEngine) Add(_ context.Context, line domain.CartLine) error {
	s.calls = append(s.calls, "add "+line.Key())
	if s.err != nil {
		return s.err
	}
	s.publish(s.lines.Add(line, s.maxQty))
	return nil
}

func (s *stubEngine) Increment(_ context.Context, key string) error {
	s.calls = append(s.calls, "inc "+key)
	return s.err
}

func (s *stubEngine) Decrement(_ context.Context, key string) error {
	s.calls = append(s.calls, "dec "+key)
	return s.err
}

func (s *stubEngine) Remove(_ context.Context, key string) error {
	s.calls = append(s.calls, "remove "+key)
	return s.err
}

func cartLine(id string, variant domain.Variant, qty int, price string) domain.CartLine {
	return domain.CartLine{
		ProductID: id,
		Variant:   variant,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Name:      "Tee " + id,
		Image:     "/img/" + id + ".jpg",
	}
}

func TestPanel_ViewTotals(t *testing.T) {
	eng := &stubEngine{maxQty: 3, lines: domain.Snapshot{
		cartLine("1", domain.NoVariant(), 2, "19.99"),
		cartLine("2", domain.VariantOf("M"), 3, "5"),
	}}
	p := New(eng)

	v := p.View()
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "39.98", v.Lines[0].Subtotal.String())
	assert.True(t, v.Lines[0].CanIncrement)
	assert.False(t, v.Lines[1].CanIncrement)
	assert.Nil(t, v.Lines[0].Size)
	assert.Equal(t, "M", *v.Lines[1].Size)
	assert.Equal(t, "54.98", v.Total.String())
	assert.Equal(t, 5, v.Count)
	assert.False(t, v.Empty)
	assert.False(t, v.Open)
}

func TestPanel_FollowsEngine(t *testing.T) {
	eng := &stubEngine{}
	p := New(eng)
	assert.True(t, p.View().Empty)

	eng.publish(domain.Snapshot{cartLine("1", domain.NoVariant(), 1, "10")})
	assert.Equal(t, 1, p.View().Count)

	p.Detach()
	eng.publish(domain.Snapshot{})
	assert.Equal(t, 1, p.View().Count)
}

func TestPanel_ActionsDelegate(t *testing.T) {
	ctx := context.Background()
	eng := &stubEngine{}
	p := New(eng)

	require.NoError(t, p.Add(ctx, cartLine("1", domain.VariantOf("S"), 1, "10")))
	assert.True(t, p.View().Open, "adding opens the drawer")
	require.NoError(t, p.Increment(ctx, "1|S"))
	require.NoError(t, p.Decrement(ctx, "1|S"))
	require.NoError(t, p.Remove(ctx, "1|S"))
	p.Close()
	assert.False(t, p.View().Open)

	assert.Equal(t, []string{"add 1|S", "inc 1|S", "dec 1|S", "remove 1|S"}, eng.calls)
}

func TestPanel_AddFailureKeepsDrawerClosed(t *testing.T) {
	eng := &stubEngine{err: errors.New("boom")}
	p := New(eng)
	assert.Error(t, p.Add(context.Background(), cartLine("1", domain.NoVariant(), 1, "1")))
	assert.False(t, p.View().Open)
}

func TestPanel_Render(t *testing.T) {
	eng := &stubEngine{maxQty: 2, lines: domain.Snapshot{
		cartLine("1", domain.VariantOf("L"), 2, "45.5"),
		{ProductID: "2", Quantity: 1, UnitPrice: decimal.NewFromInt(3), Name: `<script>x</script>`},
	}}
	p := New(eng)
	p.Open()

	var sb strings.Builder
	require.NoError(t, p.Render(&sb))
	html := sb.String()

	assert.Contains(t, html, `class="cart-drawer active"`)
	assert.Contains(t, html, `data-key="1|L"`)
	assert.Contains(t, html, `<span class="cart-drawer-item-size">L</span>`)
	assert.Contains(t, html, `$91.00`)
	assert.Contains(t, html, `$94.00`)
	assert.Contains(t, html, `disabled`)
	assert.NotContains(t, html, `<script>x</script>`)
}

func TestPanel_RenderEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, New(&stubEngine{}).Render(&sb))
	assert.Contains(t, sb.String(), "Your cart is empty")
	assert.NotContains(t, sb.String(), "cart-drawer-footer")
}
