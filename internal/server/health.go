package server

import "net/http"

// HealthHandler handles health check requests
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.WriteHeader(http.StatusOK)
	// Ignore write error for health check as status is already set
	_, _ = w.Write([]byte("OK"))
}
