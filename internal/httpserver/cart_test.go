package httpserver

import (
	"net/http"
	"net/url"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/service/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemPath(key string, suffix string) string {
	return "/cart/items/" + url.PathEscape(key) + suffix
}

func TestCart_GuestAddTwiceIncrements(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5"}`)
	body := decodeCart(t, ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5"}`))

	require.Len(t, body.Lines, 1)
	assert.Equal(t, 2, body.Lines[0].Quantity)
	assert.Equal(t, "20", body.Total.String())
	assert.Equal(t, 2, body.Count)
	assert.True(t, body.Open, "adding opens the drawer")
}

func TestCart_VariantsAreSeparateLines(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5","size":"M"}`)
	body := decodeCart(t, ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5","size":"L"}`))

	require.Len(t, body.Lines, 2)
	assert.Equal(t, "M", *body.Lines[0].Size)
	assert.Equal(t, "L", *body.Lines[1].Size)
}

func TestCart_QuantityControls(t *testing.T) {
	ts := newTestServer(t)
	key := domain.CompositeKey("9", domain.VariantOf("32"))
	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"9","size":"32","quantity":2}`)

	body := decodeCart(t, ts.do(t, http.MethodPost, itemPath(key, "/increment"), ""))
	assert.Equal(t, 3, body.Lines[0].Quantity)

	body = decodeCart(t, ts.do(t, http.MethodPut, itemPath(key, ""), `{"quantity":1}`))
	assert.Equal(t, 1, body.Lines[0].Quantity)

	body = decodeCart(t, ts.do(t, http.MethodPost, itemPath(key, "/decrement"), ""))
	assert.True(t, body.Empty)
	assert.Equal(t, "0", body.Total.String())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, itemPath(key, ""), "").Code)
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5"}`)
	body := decodeCart(t, ts.do(t, http.MethodPut, itemPath("5", ""), `{"quantity":0}`))
	assert.True(t, body.Empty)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, itemPath("5", ""), `{}`).Code)
}

func TestCart_AddErrors(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/cart/items", `{"productId":"404"}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5","quantity":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/cart/items", `{}`).Code)
}

func TestCart_ClearAndDrawer(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5"}`)

	rec := ts.do(t, http.MethodGet, "/cart/drawer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Corteiz Hoodie")
	assert.Contains(t, rec.Body.String(), "$10.00")

	body := decodeCart(t, ts.do(t, http.MethodPost, "/cart/close", ""))
	assert.False(t, body.Open)
	body = decodeCart(t, ts.do(t, http.MethodPost, "/cart/open", ""))
	assert.True(t, body.Open)

	body = decodeCart(t, ts.do(t, http.MethodDelete, "/cart", ""))
	assert.True(t, body.Empty)
	assert.Contains(t, ts.do(t, http.MethodGet, "/cart/drawer", "").Body.String(), "Your cart is empty")
}

func TestCart_ProfilesAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5"}`)

	ts.cookie = nil
	body := decodeCart(t, ts.do(t, http.MethodGet, "/cart", ""))
	assert.True(t, body.Empty)
}

func TestCheckout(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/cart/checkout", "").Code)

	ts.do(t, http.MethodPost, "/cart/items", `{"productId":"5","quantity":3}`)
	rec := ts.do(t, http.MethodPost, "/cart/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"total":"30","count":3,"unavailable":[]}`, rec.Body.String())

	ts.catalog.unavailable = []catalog.Unavailable{{Key: "5", ProductID: "5", Name: "Corteiz Hoodie", Requested: 3, Available: 1}}
	rec = ts.do(t, http.MethodPost, "/cart/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":1`)

	body := decodeCart(t, ts.do(t, http.MethodGet, "/cart", ""))
	assert.Equal(t, 3, body.Count, "checkout never empties the cart")
}
