package handlers

import (
	"errors"
	"net/http"

	"taskboard/internal/logger"
	"taskboard/internal/session"
	"taskboard/internal/store"

	"go.uber.org/zap"
)

// respondStoreError converts the boundary error taxonomy to HTTP. Gate
// decisions become redirects, validation failures carry their field map, and
// remote failures surface as bad-gateway so the client offers a retry.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrSignedOut) {
		http.Redirect(w, r, "/signin", http.StatusTemporaryRedirect)
		return
	}

	var mismatch *session.MismatchError
	if errors.As(err, &mismatch) {
		http.Redirect(w, r, "/dashboard/"+mismatch.Subject.String()+"/tasks", http.StatusTemporaryRedirect)
		return
	}

	if errors.Is(err, store.ErrClosed) {
		responseWithError(w, http.StatusConflict, "session superseded")
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case store.CodeValidation:
			// Recoverable form input, surfaced inline; not a system fault.
			responseWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  storeErr.Code,
				"fields": storeErr.Fields,
			})
		case store.CodeAuth:
			responseWithError(w, http.StatusUnauthorized, storeErr.Message)
		default: // CodeFetch, CodeWrite
			logger.Warn("remote operation failed",
				zap.String("code", string(storeErr.Code)),
				zap.Error(storeErr.Err))
			responseWithJSON(w, http.StatusBadGateway, map[string]any{
				"error":   storeErr.Code,
				"message": storeErr.Message,
			})
		}
		return
	}

	logger.Error("unhandled error", err)
	responseWithError(w, http.StatusInternalServerError, "internal error")
}
