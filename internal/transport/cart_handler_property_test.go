package transport

import (
	"fmt"
	"net/http"
	"testing"

	"shopfront/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartHandler_AddTwiceGivesQuantityTwo(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, map[string]string{"name": "Tee", "price": "10", "category": "Tops"})

	for i := 0; i < 2; i++ {
		w := api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": p.ID, "size": "M"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := api.do(http.MethodGet, "/api/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]domain.CartItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Tee", items[0].Name)
}

func TestCartHandler_Errors(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, map[string]string{"name": "Tee", "price": "10", "category": "Tops"})

	w := api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": 12345, "size": "M"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"size": "M"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/M", p.ID), map[string]interface{}{"change": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/M", p.ID), map[string]interface{}{"change": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodDelete, fmt.Sprintf("/api/cart/%d/M", p.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartHandler_AdjustAndRemove(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, map[string]string{"name": "Beanie", "price": "15", "category": "Hats"})

	w := api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": p.ID, "size": "One Size"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/One%%20Size", p.ID), map[string]interface{}{"change": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := decode[[]domain.CartItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/One%%20Size", p.ID), map[string]interface{}{"change": -5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": p.ID, "size": "One Size"})
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodDelete, fmt.Sprintf("/api/cart/%d/One%%20Size", p.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCartHandler_SizeLabelsWithReservedCharacters(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, map[string]string{"name": "Socks", "price": "5", "category": "Socks"})

	for size, path := range map[string]string{
		"100%": "100%25",
		"S/M":  "S%2FM",
	} {
		w := api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": p.ID, "size": size})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/%s", p.ID, path), map[string]interface{}{"change": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		items := decode[[]domain.CartItem](t, w)
		require.Len(t, items, 1)
		assert.Equal(t, size, items[0].Size)
		assert.Equal(t, 2, items[0].Quantity)

		w = api.do(http.MethodDelete, fmt.Sprintf("/api/cart/%d/%s", p.ID, path), nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, "[]", w.Body.String())
	}
}

// Feature: shopfront, Property: cart lines never drop below quantity one over HTTP
func TestProperty_CartQuantitiesStayPositiveOverHTTP(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("random add and adjust calls never store quantity <= 0", prop.ForAll(
		func(changes []int) bool {
			api := newTestAPI(t)
			p := api.createProduct(t, map[string]string{"name": "Tee", "price": "10", "category": "Tops"})

			for _, change := range changes {
				var code int
				if change == 0 {
					code = api.doJSON(http.MethodPost, "/api/cart", map[string]interface{}{"productId": p.ID, "size": "M"}).Code
				} else {
					code = api.doJSON(http.MethodPut, fmt.Sprintf("/api/cart/%d/M", p.ID), map[string]interface{}{"change": change}).Code
				}
				if code != http.StatusOK && code != http.StatusNotFound {
					t.Logf("FAIL: unexpected status %d", code)
					return false
				}
			}

			for _, item := range decode[[]domain.CartItem](t, api.do(http.MethodGet, "/api/cart", nil, "")) {
				if item.Quantity <= 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(-2, 2)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
