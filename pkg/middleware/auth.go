package middleware

import (
	"context"
	"net/http"
	"strings"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"go.uber.org/zap"
)

// SessionResolver maps a bearer token to the caller.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*utils.SessionInfo, error)
}

// AuthSession requires a valid "Bearer <token>" header and puts the session
// on the request context.
func AuthSession(sessions SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			session, err := sessions.ResolveSession(r.Context(), token)
			if err != nil {
				if apperror.KindOf(err) == apperror.KindInternal {
					logger.Error("Failed to validate session", zap.Error(err))
				} else {
					logger.Debug("Rejected session", zap.Error(err))
				}
				utils.ResponseError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.SetSessionContext(r.Context(), *session)))
		})
	}
}

// Admin must run after AuthSession.
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			if role != string(entity.RoleAdmin) {
				logger.Warn("Non-admin access attempt",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
