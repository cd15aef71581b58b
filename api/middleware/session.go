package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// Session resolves the caller's session identifier. Each anonymous storefront
// session owns exactly one cart; a client without a session header is issued
// one, echoed back so it can be replayed on subsequent requests.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(sessionIDHeader)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
