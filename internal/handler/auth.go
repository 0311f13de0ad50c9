package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/model"
	"github.com/sakif/poetry-share/internal/service"
)

// AuthHandler serves registration, login (password and GitHub OAuth),
// token checking, and account management.
type AuthHandler struct {
	svc      *service.AuthService
	github   *auth.GitHubProvider // nil when OAuth is not configured
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github *auth.GitHubProvider, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		github:   github,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register
// Body: {"firstName","lastName","nickName","email","password","photo"?}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "user registered successfully",
		"userId":  user.ID,
	})
}

// HandleLogin verifies credentials and returns a session token. The token
// also goes out as an HttpOnly cookie for browser clients; API clients use
// the Authorization header.
//
// HTTP: POST /api/auth/login
// Body: {"email","password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	result, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "user signed in",
		"token":   result.Token,
	})
}

// HandleLogout clears the session cookie. The token itself stays valid
// until expiry (stateless JWT); without the cookie or the header the
// browser simply stops presenting it.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleCheckToken validates the presented token and echoes the identity
// it carries. Frontends call it on load to restore session state.
//
// HTTP: GET /api/auth/checkToken
func (h *AuthHandler) HandleCheckToken(w http.ResponseWriter, r *http.Request) {
	// This route sits behind RequireAuth, so the identity is present.
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "access denied: no token provided",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "token is valid",
		"user":    id,
	})
}

// HandleListUsers returns all accounts. Route is admin-gated.
//
// HTTP: GET /api/auth/user
func (h *AuthHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGetUser returns one account's public profile.
//
// HTTP: GET /api/auth/user/{id}
func (h *AuthHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates profile fields: the account holder or an admin.
//
// HTTP: PUT /api/auth/user/{id}
func (h *AuthHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var in service.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), caller, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteUser removes an account: the account holder or an admin.
//
// HTTP: DELETE /api/auth/user/{id}
func (h *AuthHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.DeleteUser(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "the user has been removed"})
}

// HandleChangeRole sets an account's role tier. Route is
// super-admin-gated.
//
// HTTP: PUT /api/auth/admin/{id}
// Body: {"role": "user" | "admin" | "super-admin"}
func (h *AuthHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	user, err := h.svc.ChangeRole(r.Context(), r.PathValue("id"), in.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin starts the OAuth flow: generate a single-use state,
// stash it in a short-lived cookie, redirect to GitHub.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verify the CSRF state,
// exchange the code, log in or register the account, set the session
// cookie, redirect home.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch or missing")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid OAuth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "missing OAuth code",
		})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: "authentication failed",
		})
		return
	}

	result, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setTokenCookie stores the session token in an HttpOnly cookie so browser
// JavaScript can't read it. Secure is left off for local development; set
// it behind HTTPS.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
