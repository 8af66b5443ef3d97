package transport

import (
	"net/http"
	"net/url"
	"strings"

	"shopfront/internal/middleware"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Size      string `json:"size" validate:"required,max=20"`
}

// AdjustCartRequest represents a signed quantity change
type AdjustCartRequest struct {
	Change *int `json:"change" validate:"required,ne=0"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cart   service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cart service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:   cart,
		logger: logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Put("/{productId}/{size}", h.Adjust)
		r.Delete("/{productId}/{size}", h.Remove)
	})
}

// List returns the cart lines
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.cart.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Add puts one unit of a product size in the cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart add validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	items, err := h.cart.Add(r.Context(), req.ProductID, strings.TrimSpace(req.Size))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add to cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Adjust changes a line's quantity by a signed amount
func (h *CartHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	productID, size, err := cartLineKey(r)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart")
		return
	}

	var req AdjustCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart adjust validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	items, err := h.cart.Adjust(r.Context(), productID, size, *req.Change)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Remove drops a line from the cart
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, size, err := cartLineKey(r)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart")
		return
	}

	items, err := h.cart.Remove(r.Context(), productID, size)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

func cartLineKey(r *http.Request) (int64, string, error) {
	productID, err := parseID(r, "productId")
	if err != nil {
		return 0, "", err
	}

	// chi routes on RawPath when one exists, leaving the param escaped
	size := chi.URLParam(r, "size")
	if r.URL.RawPath != "" {
		if size, err = url.PathUnescape(size); err != nil {
			return 0, "", errInvalidID
		}
	}
	if strings.TrimSpace(size) == "" {
		return 0, "", errInvalidID
	}
	return productID, size, nil
}
