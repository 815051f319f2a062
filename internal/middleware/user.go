package middleware

import (
	"context"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"healthcare-services/internal/userclient"
	"healthcare-services/pkg/logging"
)

type UserOracle interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// RequireUser rejects callers the user service does not know with 404, and
// answers 503 when the user service cannot be reached. It must run after Auth.
func RequireUser(users UserOracle, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				unauthorized(w, "Missing token")
				return
			}

			exists, err := users.Exists(r.Context(), identity)
			switch {
			case errors.Is(err, userclient.ErrUnavailable):
				logger.Warn("user existence check failed", "error", err, "username", identity,
					"request_id", chimw.GetReqID(r.Context()))
				writeMessage(w, http.StatusServiceUnavailable, "User service unavailable")
				return
			case err != nil:
				logger.Error("user existence check failed", "error", err, "username", identity)
				writeMessage(w, http.StatusInternalServerError, "internal error")
				return
			case !exists:
				writeMessage(w, http.StatusNotFound, "User does not exist")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
