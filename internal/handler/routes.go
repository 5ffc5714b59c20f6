package handler

import (
	"embed"
	"net/http"

	"github.com/strathlearn/api/internal/metrics"
)

//go:embed static/*
var staticFiles embed.FS

// checkoutPath is where the gate sends authenticated users without an
// active subscription.
const checkoutPath = "/api/checkout"

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {

	// Register static files route first to avoid pattern conflicts
	mux.Handle("GET /static/", http.FileServer(http.FS(staticFiles)))

	// Public routes (no auth required)
	mux.HandleFunc("GET /", h.Home)
	mux.HandleFunc("GET /success", h.Success)

	// Auth routes (public by definition)
	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.requireAuthAPI(h.GetAuthMe))
	mux.HandleFunc("GET /auth/github", h.HandleGitHubLogin)
	mux.HandleFunc("GET /auth/github/callback", h.HandleGitHubCallback)

	// Challenge API. API routes bypass the subscription gate; submissions
	// are attributed to the caller when a session is present.
	mux.HandleFunc("GET /api/challenges", h.ListChallenges)
	mux.HandleFunc("GET /api/challenge/{id}", h.GetChallenge)
	mux.HandleFunc("POST /api/submit", h.optionalAuth(h.rateLimitSubmit(h.SubmitSolution)))
	mux.HandleFunc("GET /api/profile/submissions", h.requireAuthAPI(h.GetUserSubmissions))

	// Protected pages: authentication plus an active subscription
	mux.HandleFunc("GET /challenge", h.requireAuth(h.requireSubscription(h.ChallengePage)))

	// Billing
	mux.HandleFunc("GET /api/checkout", h.requireAuth(h.CreateCheckout))
	mux.HandleFunc("GET /api/subscription", h.requireAuthAPI(h.GetSubscription))

	// Public webhooks (no auth)
	mux.HandleFunc("POST /webhook/polar", h.PolarWebhook)

	// Ops
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", metrics.Handler(h.gatherer))
}
