package transport

import (
	"errors"
	"net/http"
	"strconv"

	"shopfront/internal/media"
	"shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errInvalidID = errors.New("invalid id")

// respondWithServiceError maps domain errors to status codes.
// Anything unrecognised is logged and reported as a 500 with fallback.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrCartItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Cart item not found")
	case errors.Is(err, errInvalidID):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
	case errors.Is(err, service.ErrCartEmpty):
		middleware.RespondWithError(w, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, service.ErrMissingProductFields),
		errors.Is(err, service.ErrNegativePrice),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, media.ErrUnsupportedType):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxBytesErr):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "upload too large")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
		return
	}

	logger.Debug("Request rejected", zap.Error(err))
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
