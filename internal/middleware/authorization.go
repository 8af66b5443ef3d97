package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

const RoleAdmin = "admin"

// RequireAdmin middleware ensures the token carries the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if role != RoleAdmin {
				logger.Warn("Non-admin token used on admin endpoint",
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminGuard chains AuthMiddleware and RequireAdmin. With an empty secret
// the guard is disabled and requests pass through.
func AdminGuard(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if jwtSecret == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	auth := AuthMiddleware(jwtSecret, logger)
	admin := RequireAdmin(logger)
	return func(next http.Handler) http.Handler {
		return auth(admin(next))
	}
}
