package middleware

import (
	"fmt"
	"net/http"
)

// Recover turns a handler panic into a 500 instead of killing the
// connection goroutine silently.
func (a *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("%s", p)
				a.log.Error(r.Context(), "panic recovered", err, "method", r.Method, "URL", r.URL.Path)

				w.Header().Set("Connection", "close")
				errorResponse(w, http.StatusInternalServerError, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
