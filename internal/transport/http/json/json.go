package json

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes the response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; the status has already been written
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
