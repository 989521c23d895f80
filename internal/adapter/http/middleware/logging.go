package middleware

import (
	"net/http"
	"time"
)

// Logging logs the start and outcome of every request. Server errors are
// raised to WARN so they surface without debug logging enabled.
func (a *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriterWrapper{ResponseWriter: w}

		a.log.Debug(
			r.Context(),
			"started",
			"method", r.Method,
			"URL", r.URL.Path,
			"request-host", r.Host,
		)

		next.ServeHTTP(rw, r)

		attrs := []any{
			"method", r.Method,
			"URL", r.URL.Path,
			"status", rw.status,
			"bytes", rw.bytes,
			"duration", time.Since(start),
		}

		if rw.status >= http.StatusInternalServerError {
			a.log.Warn(r.Context(), "completed", attrs...)
			return
		}
		a.log.Debug(r.Context(), "completed", attrs...)
	})
}

// responseWriterWrapper tracks the status code and body size of a response.
type responseWriterWrapper struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseWriterWrapper) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
