package middleware

import (
	"encoding/json"
	"net/http"
)

// errorResponse writes a minimal JSON error body. The middleware layer keeps
// its own writer so a panic response never depends on handler helpers.
func errorResponse(w http.ResponseWriter, status int, message any) {
	if msg, ok := message.(error); ok {
		message = msg.Error()
	}

	js, err := json.Marshal(map[string]any{"error": message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}
