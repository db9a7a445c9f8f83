package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront/internal/pkg/constants"
	"github.com/jcmexdev/storefront/internal/store/adapters/sqlstore"
	"github.com/jcmexdev/storefront/internal/store/app"
	"github.com/jcmexdev/storefront/internal/store/domain"
)

type apiEnv struct {
	store  *sqlstore.Store
	router http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	st, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.MigrateUp())

	h := NewHandler(app.NewCatalog(st), app.NewOrders(st), app.NewReports(st), st)
	return &apiEnv{store: st, router: NewRouter(h)}
}

func (e *apiEnv) user(t *testing.T, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.com",
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *apiEnv) createProduct(t *testing.T, name, price string, stock int) ProductResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/products", map[string]any{"name": name, "price": price, "stock": stock})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[ProductResponse](t, rec)
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get(constants.HeaderXRequestId))
}

func TestProducts_CRUD(t *testing.T) {
	env := newAPIEnv(t)

	created := env.createProduct(t, "Widget", "10.5", 5)
	assert.Equal(t, "10.50", created.Price)
	assert.True(t, created.InStock)

	rec := env.do(t, http.MethodGet, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Widget", decodeBody[ProductResponse](t, rec).Name)

	rec = env.do(t, http.MethodPatch, "/products/"+created.ID, `{"price": 12.25, "stock": 0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ProductResponse](t, rec)
	assert.Equal(t, "12.25", updated.Price)
	assert.False(t, updated.InStock)
	assert.Equal(t, "Widget", updated.Name)

	rec = env.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ProductResponse](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_Lifecycle(t *testing.T) {
	env := newAPIEnv(t)
	u := env.user(t, "alice")
	widget := env.createProduct(t, "Widget", "10.00", 5)

	rec := env.do(t, http.MethodPost, "/orders", CreateOrderRequest{UserID: u.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody[OrderResponse](t, rec)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "0.00", order.TotalAmount)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/lines", AddLineRequest{ProductID: widget.ID, Quantity: 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := decodeBody[LineResponse](t, rec)
	assert.Equal(t, "10.00", line.PriceAtTime)
	assert.Equal(t, "30.00", line.Subtotal)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/lines", AddLineRequest{ProductID: widget.ID, Quantity: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30.00", decodeBody[TotalResponse](t, rec).TotalAmount)

	rec = env.do(t, http.MethodPatch, "/orders/"+order.ID+"/lines/"+line.ID, UpdateLineRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeBody[LineResponse](t, rec).Quantity)

	rec = env.do(t, http.MethodPut, "/orders/"+order.ID+"/status", SetStatusRequest{Status: "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[OrderResponse](t, rec)
	assert.Equal(t, "shipped", got.Status)
	require.Len(t, got.Lines, 1)

	rec = env.do(t, http.MethodGet, "/users/"+u.ID+"/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]OrderResponse](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/orders/"+order.ID+"/lines/"+line.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	env := newAPIEnv(t)
	u := env.user(t, "alice")

	first := env.do(t, http.MethodPost, "/orders", CreateOrderRequest{UserID: u.ID}, constants.HeaderXIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := env.do(t, http.MethodPost, "/orders", CreateOrderRequest{UserID: u.ID}, constants.HeaderXIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	assert.Equal(t, decodeBody[OrderResponse](t, first).ID, decodeBody[OrderResponse](t, second).ID)
	assert.Equal(t, "k-1", decodeBody[OrderResponse](t, second).Reference)
}

func TestErrors(t *testing.T) {
	env := newAPIEnv(t)
	u := env.user(t, "alice")
	widget := env.createProduct(t, "Widget", "10.00", 5)
	rec := env.do(t, http.MethodPost, "/orders", CreateOrderRequest{UserID: u.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[OrderResponse](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed json", http.MethodPost, "/products", `{"name":`, http.StatusBadRequest, "invalid_json"},
		{"zero price", http.MethodPost, "/products", `{"name":"Free","price":"0"}`, http.StatusBadRequest, "validation_failed"},
		{"three decimals", http.MethodPost, "/products", `{"name":"X","price":"1.005"}`, http.StatusBadRequest, "validation_failed"},
		{"missing user id", http.MethodPost, "/orders", CreateOrderRequest{}, http.StatusBadRequest, "invalid_request"},
		{"unknown user", http.MethodPost, "/orders", CreateOrderRequest{UserID: "nope"}, http.StatusNotFound, "not_found"},
		{"unknown status", http.MethodPost, "/orders", CreateOrderRequest{UserID: u.ID, Status: "lost"}, http.StatusBadRequest, "validation_failed"},
		{"zero quantity", http.MethodPost, "/orders/" + order.ID + "/lines", AddLineRequest{ProductID: widget.ID}, http.StatusBadRequest, "validation_failed"},
		{"unknown product", http.MethodPost, "/orders/" + order.ID + "/lines", AddLineRequest{ProductID: "nope", Quantity: 1}, http.StatusNotFound, "not_found"},
		{"unknown order", http.MethodGet, "/orders/nope", nil, http.StatusNotFound, "not_found"},
		{"unknown line", http.MethodDelete, "/orders/" + order.ID + "/lines/nope", nil, http.StatusNotFound, "not_found"},
		{"bad status", http.MethodPut, "/orders/" + order.ID + "/status", SetStatusRequest{Status: "lost"}, http.StatusBadRequest, "validation_failed"},
		{"orders of unknown user", http.MethodGet, "/users/nope/orders", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestReports(t *testing.T) {
	env := newAPIEnv(t)
	alice := env.user(t, "alice")
	widget := env.createProduct(t, "Widget", "10.00", 5)
	gadget := env.createProduct(t, "Gadget", "2.50", 1)

	rec := env.do(t, http.MethodPost, "/orders", CreateOrderRequest{UserID: alice.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[OrderResponse](t, rec)
	for _, l := range []AddLineRequest{{widget.ID, 2}, {gadget.ID, 1}} {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/orders/"+order.ID+"/lines", l).Code)
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/orders/"+order.ID+"/recalculate", nil).Code)

	rec = env.do(t, http.MethodGet, "/reports/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[StatsResponse](t, rec)
	assert.Equal(t, StatsResponse{Users: 1, Products: 2, Orders: 1, OrderLines: 2, AverageOrderValue: "22.50"}, stats)

	rec = env.do(t, http.MethodGet, "/reports/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	spend := decodeBody[[]UserSpendResponse](t, rec)
	require.Len(t, spend, 1)
	assert.Equal(t, "22.50", spend[0].TotalSpent)

	rec = env.do(t, http.MethodGet, "/reports/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decodeBody[[]ProductSalesResponse](t, rec)
	require.Len(t, sales, 2)
	assert.Equal(t, "Widget", sales[0].ProductName)

	rec = env.do(t, http.MethodGet, "/reports/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]InventoryResponse](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/reports/multi-line-orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	multi := decodeBody[[]MultiLineOrderResponse](t, rec)
	require.Len(t, multi, 1)
	assert.Equal(t, 2, multi[0].LineCount)
}

func TestReportResponse_UsesSnakeCaseAndFixedMoney(t *testing.T) {
	report := app.Report{
		Stats:           domain.Stats{Users: 1, Orders: 1, OrderLines: 2, AverageOrderValue: decimal.RequireFromString("12.5")},
		UserSpend:       []domain.UserSpend{{UserID: "u1", Username: "jane", OrderCount: 1, TotalSpent: decimal.RequireFromString("12.5")}},
		MultiLineOrders: []domain.MultiLineOrder{{OrderID: "o1", Username: "jane", LineCount: 2, TotalAmount: decimal.RequireFromString("12.5")}},
	}
	b, err := json.Marshal(NewReportResponse(report))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	for _, key := range []string{"stats", "user_spend", "product_sales", "inventory", "multi_line_orders"} {
		assert.Contains(t, got, key)
	}
	stats := got["stats"].(map[string]any)
	assert.Equal(t, "12.50", stats["average_order_value"])
	assert.Equal(t, float64(2), stats["order_lines"])
	spend := got["user_spend"].([]any)[0].(map[string]any)
	assert.Equal(t, "u1", spend["user_id"])
	assert.Equal(t, "12.50", spend["total_spent"])
	assert.Equal(t, []any{}, got["inventory"])
}
