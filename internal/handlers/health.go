package handlers

import "net/http"

// Health reports that the process is serving requests. It does not touch
// the store.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
