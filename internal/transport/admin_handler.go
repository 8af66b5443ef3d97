package transport

import (
	"net/http"

	"shopfront/internal/middleware"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WipeResponse reports what a self-destruct removed
type WipeResponse struct {
	Message string             `json:"message"`
	Removed service.WipeReport `json:"removed"`
}

// AdminHandler handles store-wide maintenance requests
type AdminHandler struct {
	maintenance service.MaintenanceService
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(maintenance service.MaintenanceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		maintenance: maintenance,
		logger:      logger,
	}
}

// RegisterRoutes registers the admin routes behind guard
func (h *AdminHandler) RegisterRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/api/self-destruct", h.SelfDestruct)
	})
}

// SelfDestruct wipes every collection and upload
func (h *AdminHandler) SelfDestruct(w http.ResponseWriter, r *http.Request) {
	report, err := h.maintenance.WipeAll(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to wipe store")
		return
	}

	// Subject is absent when the guard is disabled
	subject, _ := middleware.GetSubject(r.Context())
	h.logger.Info("Self-destruct completed", zap.String("subject", subject))

	middleware.RespondWithJSON(w, http.StatusOK, WipeResponse{
		Message: "All data has been deleted",
		Removed: report,
	})
}
