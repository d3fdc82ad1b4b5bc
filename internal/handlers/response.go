package handlers

import (
	"encoding/json"
	"net/http"

	"taskboard/internal/logger"
)

func responseWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", err)
	}
}

func responseWithError(w http.ResponseWriter, status int, message string) {
	responseWithJSON(w, status, map[string]string{"error": message})
}
