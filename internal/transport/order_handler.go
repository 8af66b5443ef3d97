package transport

import (
	"bytes"
	"encoding/json"
	"net/http"

	"shopfront/internal/domain"
	"shopfront/internal/middleware"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PaymentRequest is the card data submitted at checkout
type PaymentRequest struct {
	CardName   string `json:"cardName" validate:"required,max=100"`
	CardNumber string `json:"cardNumber" validate:"required,min=4,max=32"`
	Expiry     string `json:"expiry" validate:"required,max=10"`
}

// PlaceOrderRequest represents the checkout payload. Customer is stored as sent.
type PlaceOrderRequest struct {
	Customer json.RawMessage `json:"customer"`
	Payment  PaymentRequest  `json:"payment" validate:"required"`
}

// OrderResponse wraps a newly placed order
type OrderResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// OrderHandler handles HTTP requests for checkout
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Place)
	})
}

// List returns every placed order
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Place checks out the current cart
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	customer := bytes.TrimSpace(req.Customer)
	if len(customer) > 0 && customer[0] != '{' && !bytes.Equal(customer, []byte("null")) {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "customer", Message: "Customer must be an object"},
		})
		return
	}
	if bytes.Equal(customer, []byte("null")) {
		customer = nil
	}

	order, err := h.orders.PlaceOrder(r.Context(), json.RawMessage(customer), service.PaymentInput{
		CardName:   req.Payment.CardName,
		CardNumber: req.Payment.CardNumber,
		Expiry:     req.Payment.Expiry,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to place order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, OrderResponse{Message: "Order placed", Order: order})
}
