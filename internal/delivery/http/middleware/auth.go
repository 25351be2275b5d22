package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"conferencehub/internal/delivery/http/helpers"
	"conferencehub/internal/domain"
)

// RequireUser returns a wrapper that validates the Bearer token, loads the
// authenticated user, and attaches it to the request context. If the token is
// missing or invalid it responds with 401; if the identity cannot be loaded
// it responds with 500. In both cases next is not called.
func RequireUser(verifier domain.TokenVerifier, users domain.UserLoader, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing token")
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if err == domain.ErrUserNotFound {
					helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unknown user")
					return
				}
				logger.ErrorContext(r.Context(), "load user", "user_id", userID, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "load user", err.Error())
				return
			}
			next(w, r.WithContext(SetUser(r.Context(), user)))
		}
	}
}
