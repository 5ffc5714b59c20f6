package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/strathlearn/api/internal/challenge"
	"github.com/strathlearn/api/internal/services"
)

// ListChallenges returns a mapping of challenge id to its summary
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.challenges.List())
}

// GetChallenge returns the full challenge definition, minus solutions and
// hidden expected outputs
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	c, ok := h.challenges.Get(id)
	if !ok {
		h.logger.Info("challenge not found", slog.String("challenge_id", id))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not found"})
		return
	}

	writeJSON(w, http.StatusOK, c.Public())
}

// SubmitSolution runs the submitted code against the challenge's test cases
// through the judge and reports per-case results. Authenticated submissions
// are persisted for the profile history.
func (h *Handler) SubmitSolution(w http.ResponseWriter, r *http.Request) {
	var req challenge.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	c, ok := h.challenges.Get(req.ChallengeID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not found"})
		return
	}

	start := time.Now()
	results := h.runner.RunTests(r.Context(), req.Code, c)
	h.metrics.RecordJudgeRun(time.Since(start))

	passed := allTestsPassed(results)

	if user := GetUser(r.Context()); user != nil {
		if err := h.svc.RecordSubmission(r.Context(), services.RecordSubmissionParams{
			UserID:      user.UserID,
			ChallengeID: c.ID,
			Code:        req.Code,
			Passed:      passed,
		}); err != nil {
			// History is best effort; the judge result still goes back
			h.logger.Error("failed to persist submission", slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, challenge.SubmissionResponse{
		Success:     passed,
		Message:     "Submission processed",
		TestResults: results,
	})
}

func allTestsPassed(results []challenge.TestResult) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return len(results) > 0
}

// Home serves the landing page. Any unknown path routed here is sent back
// to the root, which doubles as the gate's redirect target for
// unauthenticated requests.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.serveStatic(w, r, "static/index.html")
}

// ChallengePage serves the code editor page
func (h *Handler) ChallengePage(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "static/challenge.html")
}

// Success is the post-checkout landing page; it must stay public so the
// provider redirect works before the subscription is reconciled.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "static/success.html")
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request, name string) {
	data, err := staticFiles.ReadFile(name)
	if err != nil {
		h.logger.Error("missing static asset", slog.String("name", name), slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// Healthz reports liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
