package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func line(productID string, variant Variant, qty int, price string) CartLine {
	return CartLine{
		ProductID: productID,
		Variant:   variant,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Name:      "Item " + productID,
	}
}

func TestCompositeKey_DistinguishesVariants(t *testing.T) {
	keys := map[string]struct{}{}
	for _, k := range []string{
		CompositeKey("7", NoVariant()),
		CompositeKey("7", VariantOf("")),
		CompositeKey("7", VariantOf("M")),
		CompositeKey("7", VariantOf("L")),
		CompositeKey("7|M", NoVariant()),
		CompositeKey("7", VariantOf("M|L")),
	} {
		keys[k] = struct{}{}
	}
	assert.Len(t, keys, 6)
	assert.Equal(t, CompositeKey("7", VariantOf("M")), CompositeKey("7", VariantOf("M")))
}

func TestSnapshotAdd_RepeatedAddIncrements(t *testing.T) {
	var snap Snapshot
	snap = snap.Add(line("5", NoVariant(), 1, "10"), 0)
	snap = snap.Add(line("5", NoVariant(), 1, "10"), 0)

	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Quantity)
}

func TestSnapshotAdd_VariantIsolation(t *testing.T) {
	var snap Snapshot
	snap = snap.Add(line("7", VariantOf("M"), 1, "10"), 0)
	snap = snap.Add(line("7", VariantOf("L"), 1, "10"), 0)

	require.Len(t, snap, 2)
	assert.Equal(t, 1, snap[0].Quantity)
	assert.Equal(t, 1, snap[1].Quantity)
	assert.NotEqual(t, snap[0].Key(), snap[1].Key())
}

func TestSnapshotAdd_ClampsToCeiling(t *testing.T) {
	snap := Snapshot{line("1", NoVariant(), 98, "1")}
	snap = snap.Add(line("1", NoVariant(), 5, "1"), 99)
	assert.Equal(t, 99, snap[0].Quantity)
}

func TestSnapshotAdd_DoesNotModifyReceiver(t *testing.T) {
	orig := Snapshot{line("1", NoVariant(), 1, "1")}
	_ = orig.Add(line("1", NoVariant(), 1, "1"), 0)
	assert.Equal(t, 1, orig[0].Quantity)
}

func TestSnapshotSetQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1, -50} {
		snap := Snapshot{line("1", NoVariant(), 3, "1"), line("2", NoVariant(), 1, "1")}
		key := snap[0].Key()
		out, changed := snap.SetQuantity(key, qty, 0)
		assert.True(t, changed)
		_, found := out.Find(key)
		assert.False(t, found, "qty %d should remove", qty)
		assert.Len(t, out, 1)
	}
}

func TestSnapshotSetQuantity_MissingKey(t *testing.T) {
	snap := Snapshot{line("1", NoVariant(), 3, "1")}
	out, changed := snap.SetQuantity("nope", 4, 0)
	assert.False(t, changed)
	assert.Len(t, out, 1)
}

func TestSnapshotTotalAndCount(t *testing.T) {
	snap := Snapshot{
		line("1", NoVariant(), 2, "19.99"),
		line("2", VariantOf("M"), 3, "5"),
	}
	assert.True(t, snap.Total().Equal(decimal.RequireFromString("54.98")), snap.Total().String())
	assert.Equal(t, 5, snap.Count())
}

func TestNormalize_DropsInvalidAndDuplicates(t *testing.T) {
	snap := Snapshot{
		line("1", NoVariant(), 1, "1"),
		line("", NoVariant(), 1, "1"),
		line("2", NoVariant(), 0, "1"),
		line("1", NoVariant(), 4, "1"),
		line("1", VariantOf("S"), 2, "1"),
	}
	out := snap.Normalize()
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Quantity)
	assert.Equal(t, "S", out[1].Variant.Value)
}

func TestMerge_Law(t *testing.T) {
	local := Snapshot{
		line("5", NoVariant(), 2, "10"),
		line("7", VariantOf("M"), 1, "20"),
		line("9", NoVariant(), 1, "30"),
	}
	remote := Snapshot{
		line("5", NoVariant(), 3, "10"),
		line("7", VariantOf("L"), 4, "20"),
		line("8", NoVariant(), 1, "15"),
	}

	merged := Merge(local, remote)

	want := Snapshot{
		line("5", NoVariant(), 5, "10"),
		line("7", VariantOf("L"), 4, "20"),
		line("8", NoVariant(), 1, "15"),
		line("7", VariantOf("M"), 1, "20"),
		line("9", NoVariant(), 1, "30"),
	}
	if diff := cmp.Diff(want, merged, decimalEqual); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_EmptySides(t *testing.T) {
	remote := Snapshot{line("1", NoVariant(), 1, "1")}
	if diff := cmp.Diff(remote, Merge(nil, remote), decimalEqual); diff != "" {
		t.Fatalf("unexpected merge with empty local:\n%s", diff)
	}
	local := Snapshot{line("2", NoVariant(), 2, "1")}
	if diff := cmp.Diff(local, Merge(local, nil), decimalEqual); diff != "" {
		t.Fatalf("unexpected merge with empty remote:\n%s", diff)
	}
}

func TestProductStockStatus(t *testing.T) {
	stock := func(n int) *int { return &n }
	assert.Equal(t, "", Product{}.StockStatus())
	assert.Equal(t, "out_of_stock", Product{Stock: stock(0)}.StockStatus())
	assert.Equal(t, "low_stock", Product{Stock: stock(5)}.StockStatus())
	assert.Equal(t, "", Product{Stock: stock(6)}.StockStatus())
	assert.True(t, Product{Stock: stock(0)}.SoldOut())
	assert.True(t, Product{PriceCents: 1999}.Price().Equal(decimal.RequireFromString("19.99")))
}
