package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bazario/bazario-backend/pkg/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps any failure to one JSON response. Wrapped internals are
// logged server-side; the client only ever sees the message.
func writeError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	if ae.Status >= http.StatusInternalServerError && ae.Err != nil {
		log.Printf("ERROR: %s: %v", ae.Code, ae.Err)
	}
	writeJSON(w, ae.Status, map[string]interface{}{
		"success": false,
		"message": ae.Message,
	})
}
