package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	"github.com/strathlearn/api/internal/services"
)

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

const sessionCookieName = "jwt"

// GitHubUserInfo represents the user info returned from GitHub
type GitHubUserInfo struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers an email/password user and starts a session
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and a password of at least 8 characters are required"})
		return
	}

	user, err := h.svc.Signup(r.Context(), services.SignupParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Error("signup failed", slog.Any("error", err))
		writeError(w, err)
		return
	}

	if err := h.setSessionCookie(w, user); err != nil {
		h.logger.Error("failed to create session", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"user_id": user.ID, "email": user.Email})
}

// Login verifies credentials and starts a session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	user, err := h.svc.Authenticate(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.setSessionCookie(w, user); err != nil {
		h.logger.Error("failed to create session", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"user_id": user.ID, "email": user.Email})
}

// Logout logs out the user by clearing the JWT cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleGitHubLogin redirects to GitHub OAuth
func (h *Handler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Initiating GitHub OAuth login")
	// Random state token for CSRF protection, validated in the callback
	state := lo.RandomString(32, lo.LettersCharset)

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	authURL := h.oauth2Config.AuthCodeURL(state)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// HandleGitHubCallback handles the OAuth callback from GitHub
func (h *Handler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/?error=no_code", http.StatusSeeOther)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	ctx := r.Context()

	token, err := h.oauth2Config.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("Failed to exchange code", slog.Any("error", err))
		http.Redirect(w, r, "/?error=auth_failed", http.StatusSeeOther)
		return
	}

	client := h.oauth2Config.Client(ctx, token)

	githubUser, err := fetchGitHubUser(client)
	if err != nil {
		h.logger.Error("Failed to get user info", slog.Any("error", err))
		http.Redirect(w, r, "/?error=auth_failed", http.StatusSeeOther)
		return
	}

	name := githubUser.Name
	if name == "" {
		name = githubUser.Login
	}

	user, err := h.svc.GetOrCreateUser(ctx, services.CreateUserParams{
		Email: githubUser.Email,
		Name:  name,
	})
	if err != nil {
		h.logger.Error("Failed to get or create user", slog.Any("error", err))
		http.Redirect(w, r, "/?error=auth_failed", http.StatusSeeOther)
		return
	}

	if err := h.setSessionCookie(w, user); err != nil {
		h.logger.Error("Failed to create JWT token", slog.Any("error", err))
		http.Redirect(w, r, "/?error=auth_failed", http.StatusSeeOther)
		return
	}

	h.logger.Info("GitHub login succeeded", slog.String("user_id", user.ID))
	http.Redirect(w, r, "/challenge", http.StatusSeeOther)
}

// fetchGitHubUser resolves the user profile and, when the profile hides the
// email, the primary verified address from the emails endpoint.
func fetchGitHubUser(client *http.Client) (*GitHubUserInfo, error) {
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &oauthAPIError{status: resp.StatusCode, body: string(body)}
	}

	var user GitHubUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}

	if user.Email != "" {
		return &user, nil
	}

	emailResp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return nil, err
	}
	defer emailResp.Body.Close()

	var emails []githubEmail
	if err := json.NewDecoder(emailResp.Body).Decode(&emails); err != nil {
		return nil, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			user.Email = e.Email
			break
		}
	}
	if user.Email == "" {
		return nil, &oauthAPIError{status: emailResp.StatusCode, body: "no verified primary email"}
	}

	return &user, nil
}

type oauthAPIError struct {
	status int
	body   string
}

func (e *oauthAPIError) Error() string {
	return "github api error: " + e.body
}

// setSessionCookie creates a signed JWT and sets it in an HTTP-only cookie
func (h *Handler) setSessionCookie(w http.ResponseWriter, user *services.User) error {
	expiresAt := time.Now().Add(7 * 24 * time.Hour) // 7 days
	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "strathlearn",
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := jwtToken.SignedString(h.jwtSecret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// GetAuthMe returns the current user information
func (h *Handler) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	user := MustGetUser(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": user.UserID,
		"email":   user.Email,
	})
}

// GetUserFromRequest extracts and validates the JWT from the request
func (h *Handler) GetUserFromRequest(r *http.Request) (*JWTClaims, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
