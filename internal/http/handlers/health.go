package handlers

import "net/http"

// Health answers liveness probes. GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok", "service": "riley"}, "")
}
