package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/strathlearn/api/internal/apperrs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps classified service errors onto HTTP statuses; anything
// unclassified is a 500 with a generic message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrs.Error
	if errors.As(err, &appErr) && appErr.Kind == apperrs.KindClient {
		status := http.StatusBadRequest
		switch appErr.Code {
		case apperrs.CodeNotFound:
			status = http.StatusNotFound
		case apperrs.CodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrs.CodeForbidden:
			status = http.StatusForbidden
		case apperrs.CodeConflict:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": appErr.Msg})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
