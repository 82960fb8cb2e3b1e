package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/service"
)

// UserService is the part of service.UserService the handlers call.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string, current *auth.Session) (*service.LoginResult, error)
	LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.LoginResult, error)
	Logout(ctx context.Context, session *auth.Session) error
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// UserHandler serves /users: registration, listing, and the session
// lifecycle (login, logout, me).
type UserHandler struct {
	users        UserService
	cookieSecure bool
	logger       *slog.Logger
}

// NewUserHandler creates a UserHandler. cookieSecure sets the Secure flag on
// the session cookie and should be true behind HTTPS.
func NewUserHandler(users UserService, cookieSecure bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:        users,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type usersResponse struct {
	Users []model.User `json:"users"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

type loginResponse struct {
	UserID string `json:"userId"`
}

type registerRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// HandleList returns every registered user. Password digests are never
// serialised (model.User tags the field json:"-").
//
// HTTP: GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

// HandleRegister creates an account.
//
// HTTP: POST /users
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireFields(
		field{"name", req.Name != nil},
		field{"email", req.Email != nil},
		field{"password", req.Password != nil},
	); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.users.Register(r.Context(), *req.Name, *req.Email, *req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleLogin checks the credentials and sets the session cookie.
//
// HTTP: POST /users/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// The route runs behind auth.OptionalAuth. If the request already carries a
// valid session for this same user, the existing cookie is kept.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireFields(
		field{"email", req.Email != nil},
		field{"password", req.Password != nil},
	); err != nil {
		writeError(w, err)
		return
	}

	current, _ := auth.SessionFromContext(r.Context())

	result, err := h.users.Login(r.Context(), *req.Email, *req.Password, current)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Issued() {
		auth.SetSessionCookie(w, result.Token, result.Session.ExpiresAt, h.cookieSecure)
	}
	writeJSON(w, http.StatusOK, loginResponse{UserID: result.User.ID})
}

// HandleLogout revokes the presented session and clears the cookie.
//
// HTTP: POST /users/logout
//
// Revocation matters because the token stays cryptographically valid until
// it expires; the revocation store is what makes a copied cookie useless.
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid session required"))
		return
	}

	if err := h.users.Logout(r.Context(), session); err != nil {
		writeError(w, err)
		return
	}

	auth.ClearSessionCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("session refers to an unknown user", slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}
