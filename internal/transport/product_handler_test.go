package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"shopfront/internal/database"
	"shopfront/internal/domain"
	"shopfront/internal/media"
	"shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const placeholderURL = "https://placehold.test/none.png"

type testAPI struct {
	router http.Handler
	fs     afero.Fs
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	fs := afero.NewMemMapFs()
	logger := zap.NewNop()

	store, err := database.NewFileStore(fs, "/data", logger)
	require.NoError(t, err)
	manager, err := media.NewManager(fs, media.Config{Dir: "/uploads", URLPrefix: "/uploads", MaxBytes: 64, Strict: true}, logger)
	require.NoError(t, err)

	products := repository.NewProductRepository(store)
	catalog := service.NewCatalogService(products, manager, service.CatalogOptions{MaxFiles: 3, PlaceholderURL: placeholderURL}, logger)
	cart := service.NewCartService(repository.NewCartRepository(store), products, logger)
	orders := service.NewOrderService(repository.NewOrderRepository(store), service.Pricing{ShippingFlat: 5.99, TaxRate: 0.08}, logger)
	maintenance := service.NewMaintenanceService(repository.NewMaintenanceRepository(store), manager, 0, logger)

	router := chi.NewRouter()
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	NewProductHandler(catalog, logger).RegisterRoutes(router)
	NewCartHandler(cart, logger).RegisterRoutes(router)
	NewOrderHandler(orders, logger).RegisterRoutes(router)
	NewAdminHandler(maintenance, logger).RegisterRoutes(router, middleware.AdminGuard("", logger))

	return &testAPI{router: router, fs: fs}
}

func (a *testAPI) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) doJSON(method, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	return a.do(method, path, bytes.NewReader(body), "application/json")
}

type upload struct {
	name        string
	contentType string
	body        string
}

func multipartBody(t *testing.T, fields map[string]string, uploads ...upload) (io.Reader, string) {
	t.Helper()
	return multipartBodyWithField(t, "media", fields, uploads...)
}

func multipartBodyWithField(t *testing.T, fileField string, fields map[string]string, uploads ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, u.name))
		h.Set("Content-Type", u.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(u.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) createProduct(t *testing.T, fields map[string]string, uploads ...upload) domain.Product {
	t.Helper()
	body, ct := multipartBody(t, fields, uploads...)
	w := a.do(http.MethodPost, "/api/products", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return *decode[ProductResponse](t, w).Product
}

func TestProductHandler_CreateAndGet(t *testing.T) {
	api := newTestAPI(t)

	created := api.createProduct(t, map[string]string{
		"name":        "Linen Shirt",
		"price":       "49.90",
		"category":    "Shirts",
		"sizes":       "S, M,L",
		"description": "Breathable linen",
	}, upload{"front.png", "image/png", "png"}, upload{"spin.mp4", "video/mp4", "mp4"})

	assert.Equal(t, []string{"S", "M", "L"}, created.Sizes)
	require.Len(t, created.Media, 2)
	assert.Equal(t, created.Media[0].URL, created.Image)
	assert.True(t, strings.HasPrefix(created.Image, "/uploads/"))

	w := api.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Product](t, w)
	assert.Equal(t, created, got)

	w = api.do(http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Product](t, w), 1)
}

func TestProductHandler_CreateAcceptsBracketedMediaField(t *testing.T) {
	api := newTestAPI(t)

	body, ct := multipartBodyWithField(t, "media[]", map[string]string{
		"name":     "Canvas Tote",
		"price":    "19.50",
		"category": "Bags",
		"sizes":    "One",
	}, upload{"tote.jpg", "image/jpeg", "jpeg"})
	w := api.do(http.MethodPost, "/api/products", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[ProductResponse](t, w).Product
	require.Len(t, created.Media, 1)
	assert.Equal(t, created.Media[0].URL, created.Image)
	assert.True(t, strings.HasPrefix(created.Image, "/uploads/"))
}

func TestProductHandler_ListEmptyIsArray(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestProductHandler_CreateValidation(t *testing.T) {
	api := newTestAPI(t)

	body, ct := multipartBody(t, map[string]string{"name": "No price"})
	w := api.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode[middleware.ErrorResponse](t, w)
	assert.Contains(t, response.Details, "validation_errors")

	body, ct = multipartBody(t, map[string]string{"name": "x", "price": "abc", "category": "c"})
	w = api.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"name": "x", "price": "-1", "category": "c"})
	w = api.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"name": "x", "price": "1", "category": "c"},
		upload{"doc.pdf", "application/pdf", "pdf"})
	w = api.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_UploadTooLarge(t *testing.T) {
	api := newTestAPI(t)

	body, ct := multipartBody(t, map[string]string{"name": "x", "price": "1", "category": "c"},
		upload{"big.jpg", "image/jpeg", strings.Repeat("a", 65)})
	w := api.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	entries, err := afero.ReadDir(api.fs, "/uploads")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProductHandler_UpdatePreservesAbsentFields(t *testing.T) {
	api := newTestAPI(t)
	created := api.createProduct(t, map[string]string{"name": "Tee", "price": "10", "category": "Tops", "sizes": "M"})

	body, ct := multipartBody(t, map[string]string{"price": "12.5"})
	w := api.do(http.MethodPut, fmt.Sprintf("/api/products/%d", created.ID), body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[ProductResponse](t, w).Product
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Tee", updated.Name)
	assert.Equal(t, []string{"M"}, updated.Sizes)
	assert.Equal(t, placeholderURL, updated.Image)

	w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/products/%d", created.ID), map[string]interface{}{"name": "Tee v2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Tee v2", decode[ProductResponse](t, w).Product.Name)
	assert.Equal(t, 12.5, decode[ProductResponse](t, w).Product.Price)

	w = api.doJSON(http.MethodPut, "/api/products/999", map[string]interface{}{"name": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_DeleteTwice(t *testing.T) {
	api := newTestAPI(t)
	keep := api.createProduct(t, map[string]string{"name": "keep", "price": "1", "category": "c"})
	drop := api.createProduct(t, map[string]string{"name": "drop", "price": "1", "category": "c"},
		upload{"a.jpg", "image/jpeg", "a"})

	w := api.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", drop.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, drop.ID, decode[ProductResponse](t, w).Product.ID)

	w = api.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", drop.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decode[middleware.ErrorResponse](t, w).Message)

	w = api.do(http.MethodGet, fmt.Sprintf("/api/products/%d", keep.ID), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/products/not-a-number", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_AddReview(t *testing.T) {
	api := newTestAPI(t)
	created := api.createProduct(t, map[string]string{"name": "Tee", "price": "10", "category": "Tops"})
	path := fmt.Sprintf("/api/products/%d/reviews", created.ID)

	w := api.doJSON(http.MethodPost, path, map[string]interface{}{"name": "Ann", "rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.doJSON(http.MethodPost, path, map[string]interface{}{"name": "Ann", "rating": 5, "comment": "great"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviews := decode[ProductResponse](t, w).Product.Reviews
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
}

// Feature: shopfront, Property: created products read back with the submitted fields
func TestProperty_CreatedProductRoundTrips(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("POST then GET returns the submitted fields", prop.ForAll(
		func(name string, category string, cents int) bool {
			api := newTestAPI(t)
			price := float64(cents) / 100

			body, ct := multipartBody(t, map[string]string{
				"name":     name,
				"category": category,
				"price":    fmt.Sprintf("%.2f", price),
			})
			w := api.do(http.MethodPost, "/api/products", body, ct)
			if w.Code != http.StatusCreated {
				t.Logf("FAIL: create returned %d: %s", w.Code, w.Body.String())
				return false
			}
			created := decode[ProductResponse](t, w).Product

			w = api.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), nil, "")
			if w.Code != http.StatusOK {
				return false
			}
			got := decode[domain.Product](t, w)
			return got.Name == name && got.Category == category && got.Price == price && got.Image == placeholderURL
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" && len(s) <= 200 }),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" && len(s) <= 100 }),
		gen.IntRange(0, 1000000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
