package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/media"
	custommiddleware "shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"
	"shopfront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// formOverhead leaves room for the text fields of a product form
const formOverhead = 1 << 20

// Deps are the resources the server builds its services on
type Deps struct {
	Store database.Store
	Media *media.Manager
	Fs    afero.Fs
	Redis *redis.Client // nil disables rate limiting
}

type Server struct {
	*http.Server
	Catalog     service.CatalogService
	Maintenance service.MaintenanceService

	config *config.Config
	logger *zap.Logger
	store  database.Store
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(middleware.RequestSize(int64(cfg.Media.MaxFiles)*cfg.Media.MaxBytes + formOverhead))

	if deps.Redis != nil {
		router.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "shopfront:ratelimit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		store := deps.Store.Health(r.Context())
		if store["status"] != "up" {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "degraded",
				"store":  store,
			})
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"store":  store,
		})
	})

	// Uploaded media
	prefix := strings.TrimSuffix(cfg.Media.URLPrefix, "/")
	files := http.FileServer(afero.NewHttpFs(deps.Fs).Dir(cfg.Media.Dir))
	router.Handle(prefix+"/*", http.StripPrefix(prefix, noDirectoryListing(files)))

	// Initialize repositories
	productRepo := repository.NewProductRepository(deps.Store)
	cartRepo := repository.NewCartRepository(deps.Store)
	orderRepo := repository.NewOrderRepository(deps.Store)
	maintenanceRepo := repository.NewMaintenanceRepository(deps.Store)

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, deps.Media, service.CatalogOptions{
		MaxFiles:       cfg.Media.MaxFiles,
		PlaceholderURL: cfg.Media.PlaceholderURL,
	}, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, service.Pricing{
		ShippingFlat: cfg.Order.ShippingFlat,
		TaxRate:      cfg.Order.TaxRate,
	}, logger)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, deps.Media, cfg.Media.SweepMinAge, logger)

	// Register routes
	transport.NewProductHandler(catalogService, logger).RegisterRoutes(router)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router)
	transport.NewAdminHandler(maintenanceService, logger).RegisterRoutes(router, custommiddleware.AdminGuard(cfg.JWT.Secret, logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Catalog:     catalogService,
		Maintenance: maintenanceService,
		config:      cfg,
		logger:      logger,
		store:       deps.Store,
		redis:       deps.Redis,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close record store", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}

// noDirectoryListing hides the upload directory index
func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			custommiddleware.RespondWithError(w, http.StatusNotFound, "file not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}
