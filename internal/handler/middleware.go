package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// SessionAuthMiddleware validates Bearer tokens and only lets through the
// account that owns the current session. A token issued before a logout, or
// for an account that has since been replaced by another login, is refused.
func SessionAuthMiddleware(tokens *service.TokenIssuer, session *service.SessionManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if err := session.Wait(r.Context()); err != nil {
				handleServiceError(w, err, logger)
				return
			}
			state, user := session.Status()
			if state != service.SessionAuthenticated || user == nil || user.ID != claims.Sub {
				logger.Warn("auth: token does not match current session",
					zap.String("path", r.URL.Path),
					zap.String("sub", claims.Sub),
					zap.String("state", string(state)),
				)
				writeError(w, http.StatusUnauthorized, "session is not active")
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext extracts the authenticated account ID from context.
func AccountIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}
