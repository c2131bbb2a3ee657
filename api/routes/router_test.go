package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshharvest/market-backend/api/middleware"
	"github.com/freshharvest/market-backend/internal/catalog"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	"github.com/freshharvest/market-backend/pkg/config"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/metrics"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	products, err := catalog.Load()
	require.NoError(t, err)

	store := kv.NewMemory()
	registry := prometheus.NewRegistry()
	m := metrics.NewStorefrontMetrics(registry)

	sessions, err := sessionsvc.NewManager(sessionsvc.ManagerParams{
		Store:   store,
		Catalog: products,
		Metrics: m,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		App:       config.AppConfig{Env: "test"},
		Storage:   config.StorageConfig{Driver: config.StorageDriverMemory},
		Recommend: config.RecommendConfig{DefaultCount: 4},
	}

	return NewRouter(cfg, nil, store, products, sessions, registry)
}

func doJSON(t *testing.T, handler http.Handler, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		r.Header.Set(middleware.SessionHeader, sessionID)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestHealthEndpoints(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "GET", "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, "GET", "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "GET", "/api/v1/products?category=vegetables", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Products []catalog.Product `json:"products"`
		Total    int               `json:"total"`
	}
	decodeData(t, w, &listing)
	require.NotEmpty(t, listing.Products)
	for _, p := range listing.Products {
		assert.Equal(t, "vegetables", p.Category)
	}

	w = doJSON(t, handler, "GET", "/api/v1/products/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byID catalog.Product
	decodeData(t, w, &byID)
	assert.Equal(t, 1, byID.ID)

	w = doJSON(t, handler, "GET", fmt.Sprintf("/api/v1/products/%s", byID.Slug), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, "GET", "/api/v1/products/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, handler, "GET", "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []string
	decodeData(t, w, &categories)
	assert.Contains(t, categories, "vegetables")
}

func TestSessionHeaderIsMinted(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "GET", "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	minted := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, minted)
	_, err := uuid.Parse(minted)
	assert.NoError(t, err)
}

type cartBody struct {
	Items []struct {
		Quantity  int    `json:"quantity"`
		LineTotal string `json:"lineTotal"`
		Product   struct {
			ID int `json:"id"`
		} `json:"product"`
	} `json:"items"`
	ItemCount      int      `json:"itemCount"`
	Subtotal       string   `json:"subtotal"`
	ProductSavings string   `json:"productSavings"`
	VolumeDiscount string   `json:"volumeDiscount"`
	CodeDiscount   string   `json:"codeDiscount"`
	TotalDiscount  string   `json:"totalDiscount"`
	Total          string   `json:"total"`
	Codes          []string `json:"codes"`
}

func TestCartLifecycle(t *testing.T) {
	handler := testRouter(t)
	session := uuid.NewString()

	// Five marked-down tomatoes cross the first volume threshold.
	w := doJSON(t, handler, "POST", "/api/v1/cart/items", session, map[string]any{"productId": 1, "quantity": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var cart cartBody
	decodeData(t, w, &cart)
	assert.Equal(t, 5, cart.ItemCount)
	assert.Equal(t, "14.95", cart.Subtotal)
	assert.Equal(t, "5.00", cart.ProductSavings)
	assert.Equal(t, "1.50", cart.VolumeDiscount)

	w = doJSON(t, handler, "POST", "/api/v1/cart/discounts", session, map[string]string{"code": "WELCOME10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var applied struct {
		Description string   `json:"description"`
		Cart        cartBody `json:"cart"`
	}
	decodeData(t, w, &applied)
	assert.Equal(t, "1.50", applied.Cart.CodeDiscount)
	assert.Equal(t, "3.00", applied.Cart.TotalDiscount)
	assert.Equal(t, "11.95", applied.Cart.Total)
	assert.Equal(t, []string{"WELCOME10"}, applied.Cart.Codes)

	// Applying the same code twice conflicts.
	w = doJSON(t, handler, "POST", "/api/v1/cart/discounts", session, map[string]string{"code": "welcome10"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, handler, "PATCH", "/api/v1/cart/items/1", session, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &cart)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, "5.98", cart.Subtotal)
	assert.Equal(t, "0.00", cart.VolumeDiscount)

	w = doJSON(t, handler, "DELETE", "/api/v1/cart/discounts/WELCOME10", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &cart)
	assert.Empty(t, cart.Codes)
	assert.Equal(t, "0.00", cart.CodeDiscount)

	w = doJSON(t, handler, "DELETE", "/api/v1/cart/items/1", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &cart)
	assert.Equal(t, 0, cart.ItemCount)

	w = doJSON(t, handler, "DELETE", "/api/v1/cart/items/1", session, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRejectsUnknownProduct(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "POST", "/api/v1/cart/items", uuid.NewString(), map[string]any{"productId": 99999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	handler := testRouter(t)
	first := uuid.NewString()
	second := uuid.NewString()

	w := doJSON(t, handler, "POST", "/api/v1/cart/items", first, map[string]any{"productId": 1, "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, handler, "GET", "/api/v1/cart", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart cartBody
	decodeData(t, w, &cart)
	assert.Equal(t, 0, cart.ItemCount)
}

func TestTrackingFeedsRecommendations(t *testing.T) {
	handler := testRouter(t)
	session := uuid.NewString()

	w := doJSON(t, handler, "GET", "/api/v1/recommendations", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs struct {
		Tier     string            `json:"tier"`
		Level    string            `json:"level"`
		Products []catalog.Product `json:"products"`
	}
	decodeData(t, w, &recs)
	assert.Equal(t, "cold-start", recs.Tier)
	assert.Equal(t, "Top Picks", recs.Level)
	assert.Len(t, recs.Products, 4)

	for _, id := range []int{1, 2, 3} {
		w = doJSON(t, handler, "POST", "/api/v1/track/view", session, map[string]int{"productId": id})
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	w = doJSON(t, handler, "GET", "/api/v1/recommendations", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &recs)
	assert.Equal(t, "frequency", recs.Tier)
	assert.Equal(t, "Recently Popular", recs.Level)

	w = doJSON(t, handler, "GET", "/api/v1/recently-viewed?count=2", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recent []catalog.Product
	decodeData(t, w, &recent)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].ID)
	assert.Equal(t, 2, recent[1].ID)
}

func TestTrackViewRejectsUnknownProduct(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "POST", "/api/v1/track/view", uuid.NewString(), map[string]int{"productId": 99999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContactValidation(t *testing.T) {
	handler := testRouter(t)

	w := doJSON(t, handler, "POST", "/api/v1/contact", "", map[string]string{
		"name":    "Jamie Rivera",
		"email":   "jamie@example.com",
		"message": "Do you deliver on weekends?",
	})
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = doJSON(t, handler, "POST", "/api/v1/contact", "", map[string]string{
		"name":  "Jamie Rivera",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
