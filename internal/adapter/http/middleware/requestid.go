package middleware

import (
	"net/http"

	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/hayago/tracking-service/pkg/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context so every log line and
// outgoing message of this request carries the same correlation ID.
// A client-supplied X-Request-ID is reused, otherwise a new one is minted.
func (a *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			id, err := uuid.New()
			if err != nil {
				a.log.Error(r.Context(), "failed to generate request id", err)
				next.ServeHTTP(w, r)
				return
			}
			requestID = id.String()
		}

		ctx := wrap.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
