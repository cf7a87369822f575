package handlers

import (
	"encoding/json"
	"net/http"
)

func HomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"name":    "Inkwell API",
		"version": "0.1.0",
		"routes": map[string]string{
			"health":  "/health",
			"posts":   "/post",
			"authors": "/author/{id}",
			"uploads": "/uploads",
		},
	}
	json.NewEncoder(w).Encode(response)
}
