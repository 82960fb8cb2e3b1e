package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/auth"
)

const stateCookie = "oauth_state"

// GitHubProvider is implemented by *auth.GitHubProvider.
type GitHubProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// GitHubHandler runs the optional "Sign in with GitHub" flow. It only signs
// in existing accounts, matched by email; registration stays on POST /users.
type GitHubHandler struct {
	github       GitHubProvider
	users        UserService
	cookieSecure bool
	logger       *slog.Logger
}

func NewGitHubHandler(github GitHubProvider, users UserService, cookieSecure bool, logger *slog.Logger) *GitHubHandler {
	return &GitHubHandler{
		github:       github,
		users:        users,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleLogin redirects the browser to GitHub.
//
// HTTP: GET /users/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes both into a short-lived cookie and into the GitHub
// URL. The callback only proceeds when the two match, proving this server
// started the flow.
func (h *GitHubHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the flow.
//
// HTTP: GET /users/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the cookie (single use, cleared either way)
//  2. Exchange the code for the GitHub profile
//  3. Sign in the account with the same email
//  4. Set the session cookie and redirect home
func (h *GitHubHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("github callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	result, err := h.users.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, result.Session.ExpiresAt, h.cookieSecure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
