package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/freshharvest/market-backend/pkg/logger"
)

// SessionHeader carries the storefront session id. A fresh id is minted
// when the client sends none (or sends something that is not a uuid) and
// echoed back so the client can hold on to it.
const SessionHeader = "X-FHM-Session"

type contextKey string

const sessionIDKey contextKey = "session_id"

func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionHeader, sessionID)

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session id set by Session, or "".
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
