package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/checkout"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
	"github.com/thalesgaldino/silvershop-api/internal/engine"
	"github.com/thalesgaldino/silvershop-api/internal/events"
	"github.com/thalesgaldino/silvershop-api/internal/httpapi"
	"github.com/thalesgaldino/silvershop-api/internal/lists"
	"github.com/thalesgaldino/silvershop-api/internal/session"
	"github.com/thalesgaldino/silvershop-api/internal/stale"
)

type testServer struct {
	srv      *httptest.Server
	client   *http.Client
	sessions session.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	store := session.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	cat := catalog.NewMemory()
	cat.AddProduct(domain.Product{ID: 1, Title: "Widget", Price: decimal.NewFromInt(10), Available: true})
	cat.AddVariation(domain.Variation{
		ID: 11, ProductID: 1, Title: "Widget (Red)",
		Price:      decimal.NewFromInt(12),
		Attributes: map[string]string{"Colour": "Red"},
	})
	cat.AddCoupon(domain.Coupon{Code: "SAVE10", Percent: decimal.NewFromInt(10), Active: true})
	cat.AddRate(domain.ShippingRate{ID: 5, MethodID: 3, ZoneID: 2, Title: "Courier", Amount: decimal.NewFromInt(5)})

	eng := engine.NewMemory()
	deps := cart.Deps{
		Engine:   eng,
		Catalog:  cat,
		Coupons:  cat,
		Rates:    cat,
		Sessions: store,
		Lists:    lists.NewReconciler(cat, store),
		Stale:    stale.New(),
		Hooks:    cart.NewHooks(),
		Currency: "$",
	}
	co := checkout.New(eng, checkout.StaticGateway{Gateway: checkout.Gateway{Name: "manual", Manual: true}},
		checkout.Config{PlaceBeforePayment: true}, events.Noop{}, nil)

	h := httpapi.NewHandler(deps, co, nil)
	srv := httptest.NewServer(httpapi.NewRouter(h, 5*time.Second))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		srv:      srv,
		client:   &http.Client{Jar: jar},
		sessions: store,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp, raw
}

func field[T any](t *testing.T, raw map[string]json.RawMessage, key string) T {
	t.Helper()
	var v T
	require.Contains(t, raw, key)
	require.NoError(t, json.Unmarshal(raw[key], &v))
	return v
}

func TestGetCartEmpty(t *testing.T) {
	ts := newTestServer(t)
	resp, raw := ts.do(t, http.MethodGet, "/shop/api/cart", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, 200, field[int](t, raw, "code"))
	assert.Equal(t, 0, field[int](t, raw, "total_items"))
	assert.NotEmpty(t, field[string](t, raw, "hash"))
}

func TestAddItemEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add?quantity=2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the transport always answers 200")
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, "Items added successfully.", field[string](t, raw, "message"))
	assert.True(t, field[bool](t, raw, "cart_updated"))
	assert.Equal(t, 2, field[int](t, raw, "total_items"))
	assert.Equal(t, []string{"cart", "summary", "shippingmethod"}, field[[]string](t, raw, "refresh"))
}

func TestAddUnknownProductKeepsHTTP200(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPost, "/shop/api/cart/product/999/add", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.Equal(t, 404, field[int](t, raw, "code"))
	assert.Equal(t, "Product does not exist", field[string](t, raw, "message"))
}

func TestAddVariationEndpoint(t *testing.T) {
	ts := newTestServer(t)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/product/1/addVariation", map[string]any{
		"quantity":          1,
		"ProductAttributes": map[string]string{"Colour": "Red"},
	})
	assert.Equal(t, "success", field[string](t, raw, "status"))

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart", nil)
	cartView := field[map[string]json.RawMessage](t, raw, "cart")
	var items []map[string]any
	require.NoError(t, json.Unmarshal(cartView["items"], &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Widget (Red)", items[0]["title"])
}

func TestBatchAddEndpoint(t *testing.T) {
	ts := newTestServer(t)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/add", []map[string]any{
		{"id": 1, "quantity": 2},
		{"id": 999, "quantity": 1},
	})
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.True(t, field[bool](t, raw, "cart_updated"))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(raw["results"], &results))
	require.Len(t, results, 2)
	assert.Equal(t, "success", results[0]["status"])
	assert.Equal(t, "error", results[1]["status"])
}

func TestPromoCodeFlow(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add", nil)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/promocode?code=save10", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, "Coupon applied.", field[string](t, raw, "message"))

	// Without a code the endpoint degrades to a cart read.
	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/promocode", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Contains(t, raw, "cart")
}

func TestClearEndpoint(t *testing.T) {
	ts := newTestServer(t)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/clear", nil)
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.Equal(t, 200, field[int](t, raw, "code"))
	assert.Equal(t, "Cart already empty", field[string](t, raw, "message"))

	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add", nil)

	_, raw = ts.do(t, http.MethodPost, "/shop/api/cart/clear", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, "Cart cleared", field[string](t, raw, "message"))
}

func TestShippingEndpoints(t *testing.T) {
	ts := newTestServer(t)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/shipping/update?ID=2", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, 3, field[int](t, raw, "shipping_id"))

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/shipping", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, 3, field[int](t, raw, "shipping_id"))

	_, raw = ts.do(t, http.MethodPost, "/shop/api/cart/shipping/update?ID=999", nil)
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.Equal(t, 404, field[int](t, raw, "code"))
}

func TestItemActions(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add", nil)

	_, raw := ts.do(t, http.MethodGet, "/shop/api/cart", nil)
	cartView := field[map[string]json.RawMessage](t, raw, "cart")
	var items []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(cartView["items"], &items))
	require.Len(t, items, 1)
	lineID := items[0].ID

	_, raw = ts.do(t, http.MethodPost, itemPath(lineID, "setQuantity")+"?quantity=4", nil)
	assert.Equal(t, 4, field[int](t, raw, "total_items"))

	_, raw = ts.do(t, http.MethodPost, itemPath(lineID, "addOne"), nil)
	assert.Equal(t, 5, field[int](t, raw, "total_items"))

	_, raw = ts.do(t, http.MethodPost, itemPath(lineID, "removeQuantity")+"?quantity=2", nil)
	assert.Equal(t, 3, field[int](t, raw, "total_items"))

	_, raw = ts.do(t, http.MethodPost, itemPath(lineID, "removeAll"), nil)
	assert.Equal(t, 0, field[int](t, raw, "total_items"))
}

func TestPingEchoIsStableAndNeverPersists(t *testing.T) {
	ts := newTestServer(t)

	// A non-empty cart pins the token to the order, so consecutive pings
	// cannot race the wall clock.
	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add", nil)

	_, raw := ts.do(t, http.MethodGet, "/shop/api/cart/ping", nil)
	hash := field[string](t, raw, "hash")
	require.NotEmpty(t, hash)

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/ping?hash="+hash, nil)
	assert.Equal(t, hash, field[string](t, raw, "hash"), "unchanged cart echoes the client token")

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/ping?hash=stale-token", nil)
	assert.Equal(t, hash, field[string](t, raw, "hash"), "a stale client gets the current token")
}

func TestMutationPersistsHashInSession(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add", nil)

	sessionID := ts.sessionCookie(t)
	stored, err := ts.sessions.Get(context.Background(), sessionID, session.KeyCartHash)
	require.NoError(t, err)
	assert.Len(t, stored, 64)
}

func TestSubmitOrderEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/shop/api/cart/product/1/add?quantity=2", nil)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/submitorder", map[string]any{
		"firstname": "Ada",
		"surname":   "Lovelace",
		"email":     "ada@example.test",
	})
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, "Order sent", field[string](t, raw, "message"))
	assert.Equal(t, 0, field[int](t, raw, "total_items"))

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart", nil)
	assert.Equal(t, 0, field[int](t, raw, "total_items"))
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)

	_, raw := ts.do(t, http.MethodPost, "/shop/api/cart/list/wishList/toggle/1", nil)
	assert.Equal(t, "success", field[string](t, raw, "status"))
	assert.Equal(t, "Added to list", field[string](t, raw, "message"))

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/list/wishList", nil)
	assert.Equal(t, []int64{1}, field[[]int64](t, raw, "items"))
	assert.Equal(t, 1, field[int](t, raw, "total_items"))

	_, raw = ts.do(t, http.MethodPost, "/shop/api/cart/list/wishList/toggle/1", nil)
	assert.Equal(t, "Removed from list", field[string](t, raw, "message"))

	_, raw = ts.do(t, http.MethodPost, "/shop/api/cart/list/wishList/toggle/999", nil)
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.Equal(t, 404, field[int](t, raw, "code"))

	_, raw = ts.do(t, http.MethodGet, "/shop/api/cart/list/bogus", nil)
	assert.Equal(t, "error", field[string](t, raw, "status"))
	assert.Equal(t, 400, field[int](t, raw, "code"))
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/shop/api/cart", nil)
	first := ts.sessionCookie(t)
	require.NotEmpty(t, first)

	ts.do(t, http.MethodGet, "/shop/api/cart", nil)
	assert.Equal(t, first, ts.sessionCookie(t), "the cookie pins the session across requests")
}

func (ts *testServer) sessionCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(ts.srv.URL)
	require.NoError(t, err)
	for _, c := range ts.client.Jar.Cookies(u) {
		if c.Name == "shopapi_session" {
			return c.Value
		}
	}
	return ""
}

func itemPath(id int64, action string) string {
	return "/shop/api/cart/item/" + strconv.FormatInt(id, 10) + "/" + action
}
