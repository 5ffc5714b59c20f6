package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// GetUserSubmissions returns per-day submission counts and streak
// information for the authenticated user
func (h *Handler) GetUserSubmissions(w http.ResponseWriter, r *http.Request) {
	user := MustGetUser(r.Context())

	startDate := time.Now().AddDate(-1, 0, 0)
	endDate := time.Now()

	if s := r.URL.Query().Get("startDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start date format"})
			return
		}
		startDate = parsed
	}
	if s := r.URL.Query().Get("endDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end date format"})
			return
		}
		endDate = parsed
	}

	activity, err := h.svc.GetSubmissionActivity(r.Context(), user.UserID, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to fetch submission activity", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch submissions"})
		return
	}

	writeJSON(w, http.StatusOK, activity)
}
