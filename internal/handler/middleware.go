package handler

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	userContextKey contextKey = "user"
)

// MustGetUser retrieves the user from context, panics if not found
// Should only be used after requireAuth/requireAuthAPI
func MustGetUser(ctx context.Context) *JWTClaims {
	user, ok := ctx.Value(userContextKey).(*JWTClaims)
	if !ok {
		panic("user not found in context - ensure auth middleware is applied")
	}
	return user
}

// GetUser retrieves the user from context, returns nil if not found
func GetUser(ctx context.Context) *JWTClaims {
	user, ok := ctx.Value(userContextKey).(*JWTClaims)
	if !ok {
		return nil
	}
	return user
}

// requireAuth wraps page handlers that require authentication.
// Unauthenticated requests are sent back to the root page.
func (h *Handler) requireAuth(handlerFunc http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.GetUserFromRequest(r)
		if err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		handlerFunc(w, r.WithContext(ctx))
	}
}

// requireAuthAPI is for API endpoints that require authentication.
// Returns 401 instead of redirect
func (h *Handler) requireAuthAPI(handlerFunc http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.GetUserFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		handlerFunc(w, r.WithContext(ctx))
	}
}

// optionalAuth adds the user to context when a valid session exists and
// continues without one otherwise.
func (h *Handler) optionalAuth(handlerFunc http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.GetUserFromRequest(r)
		if err == nil {
			ctx := context.WithValue(r.Context(), userContextKey, user)
			handlerFunc(w, r.WithContext(ctx))
			return
		}

		handlerFunc(w, r)
	}
}

// requireSubscription gates protected pages on an active subscription with
// the payments provider, keyed by user id. A failed lookup counts as not
// subscribed: the gate fails closed and sends the user to checkout.
// Must be applied after requireAuth.
func (h *Handler) requireSubscription(handlerFunc http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := MustGetUser(r.Context())

		active, err := h.subscriptions.HasActiveSubscription(r.Context(), user.UserID)
		if err != nil {
			h.logger.Error("subscription lookup failed", "user_id", user.UserID, "error", err)
			http.Redirect(w, r, checkoutPath, http.StatusSeeOther)
			return
		}
		if !active {
			http.Redirect(w, r, checkoutPath, http.StatusSeeOther)
			return
		}

		handlerFunc(w, r)
	}
}

// userRateLimiter keeps a token bucket per caller for the submit endpoint.
type userRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newUserRateLimiter() *userRateLimiter {
	return &userRateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// limiter allows 10 submissions per minute with a burst of 5.
func (l *userRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(10.0/60.0), 5)
		l.limiters[key] = lim
	}
	return lim
}

// rateLimitSubmit limits judge submissions per user (or per remote address
// for anonymous callers) so a single client cannot monopolize the judge.
func (h *Handler) rateLimitSubmit(handlerFunc http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if user := GetUser(r.Context()); user != nil {
			key = user.UserID
		}

		if !h.submitLimits.limiter(key).Allow() {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many submissions, slow down", http.StatusTooManyRequests)
			return
		}

		handlerFunc(w, r)
	}
}
