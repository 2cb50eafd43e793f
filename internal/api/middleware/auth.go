package middleware

import (
	"crypto/subtle"
	"dormancy-monitor/internal/config"
	"log/slog"
	"net/http"
	"strings"
)

// AuthMiddleware guards routes with a single static bearer token.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validateBearerToken(r, cfg.Token, logger) {
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validateBearerToken(r *http.Request, token string, logger *slog.Logger) bool {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
		logger.Warn("AuthMiddleware: Invalid token")
		return false
	}
	return true
}
