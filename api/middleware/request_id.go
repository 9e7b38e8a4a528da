package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates a per-request identifier. Inbound X-Request-Id is
// trusted so gateway-assigned ids survive into our logs; otherwise a fresh
// UUID is minted. The id is echoed back on the response.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
