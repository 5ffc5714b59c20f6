package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/strathlearn/api/internal/services"
)

type fakeSubscriptionChecker struct {
	active bool
	err    error
}

func (c *fakeSubscriptionChecker) HasActiveSubscription(_ context.Context, _ string) (bool, error) {
	return c.active, c.err
}

func newAuthTestHandler(checker SubscriptionChecker) *Handler {
	return &Handler{
		jwtSecret:     []byte("test-secret"),
		subscriptions: checker,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		submitLimits:  newUserRateLimiter(),
	}
}

// sessionCookie produces a valid session cookie for the given user.
func sessionCookie(t *testing.T, h *Handler, userID, email string) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	if err := h.setSessionCookie(w, &services.User{ID: userID, Email: email}); err != nil {
		t.Fatalf("Failed to create session cookie: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	h := newAuthTestHandler(nil)

	called := false
	handler := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/challenge", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if called {
		t.Error("Handler should not be called for anonymous request")
	}
	if w.Code != http.StatusSeeOther {
		t.Errorf("Expected status code %d, got %d", http.StatusSeeOther, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got %s", loc)
	}
}

func TestRequireAuthPassesValidSession(t *testing.T) {
	h := newAuthTestHandler(nil)

	var gotUserID string
	handler := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = MustGetUser(r.Context()).UserID
	})

	req := httptest.NewRequest(http.MethodGet, "/challenge", nil)
	req.AddCookie(sessionCookie(t, h, "u1", "a@x.com"))
	w := httptest.NewRecorder()
	handler(w, req)

	if gotUserID != "u1" {
		t.Errorf("Expected user u1 in context, got %q", gotUserID)
	}
}

func TestRequireAuthAPIReturns401(t *testing.T) {
	h := newAuthTestHandler(nil)

	handler := h.requireAuthAPI(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRequireSubscription(t *testing.T) {
	tests := []struct {
		name       string
		checker    *fakeSubscriptionChecker
		wantCalled bool
		wantStatus int
	}{
		{
			name:       "active subscription passes",
			checker:    &fakeSubscriptionChecker{active: true},
			wantCalled: true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "no subscription redirects to checkout",
			checker:    &fakeSubscriptionChecker{active: false},
			wantStatus: http.StatusSeeOther,
		},
		{
			name:       "lookup failure fails closed",
			checker:    &fakeSubscriptionChecker{active: true, err: errors.New("provider unreachable")},
			wantStatus: http.StatusSeeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthTestHandler(tt.checker)

			called := false
			handler := h.requireAuth(h.requireSubscription(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/challenge", nil)
			req.AddCookie(sessionCookie(t, h, "u1", "a@x.com"))
			w := httptest.NewRecorder()
			handler(w, req)

			if called != tt.wantCalled {
				t.Errorf("Expected called=%v, got %v", tt.wantCalled, called)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status code %d, got %d", tt.wantStatus, w.Code)
			}
			if !tt.wantCalled {
				if loc := w.Header().Get("Location"); loc != checkoutPath {
					t.Errorf("Expected redirect to %s, got %s", checkoutPath, loc)
				}
			}
		})
	}
}

func TestRateLimitSubmit(t *testing.T) {
	h := newAuthTestHandler(nil)

	calls := 0
	handler := h.rateLimitSubmit(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler(w, req)
		lastCode = w.Code
	}

	// Burst of 5 is allowed, the sixth request is throttled
	if calls != 5 {
		t.Errorf("Expected 5 calls to pass, got %d", calls)
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("Expected status code %d, got %d", http.StatusTooManyRequests, lastCode)
	}
}

func TestRateLimitSubmitIsPerKey(t *testing.T) {
	h := newAuthTestHandler(nil)

	handler := h.rateLimitSubmit(func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected fresh address to pass, got %d", w.Code)
	}
}
