package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/repository"
)

// errBadCredentials is deliberately the same for an unknown email and a
// wrong password.
const errBadCredentials = "invalid email or password"

// UserService handles registration, login and logout.
//
// DEPENDENCIES:
//   - users        repository.UserRepository  → read/write user records
//   - passwords    *auth.PasswordService      → bcrypt hashing
//   - tokens       *auth.TokenService         → issue session tokens
//   - revocations  repository.RevocationStore → remember logged-out tokens
type UserService struct {
	users       repository.UserRepository
	passwords   *auth.PasswordService
	tokens      *auth.TokenService
	revocations repository.RevocationStore
	logger      *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	revocations repository.RevocationStore,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		passwords:   passwords,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
	}
}

// LoginResult is what the handler needs to answer a login. Token is empty
// when the caller already held a valid session for the same user; the
// handler then leaves the cookie alone.
type LoginResult struct {
	User    *model.User
	Token   string
	Session *auth.Session
}

// Issued reports whether a new token was signed.
func (r *LoginResult) Issued() bool {
	return r.Token != ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// List returns every registered user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Register creates an account. The email is the login key and must be
// unused; a second registration for it fails with a conflict.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		return nil, apperror.ValidationFailed("email", "invalid email format")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Authenticate returns the user whose email and password match.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(errBadCredentials)
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(errBadCredentials)
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	return user, nil
}

// Login authenticates and issues a session. current is the session the
// request already carries, if any; when it belongs to the same user no new
// token is signed.
func (s *UserService) Login(ctx context.Context, email, password string, current *auth.Session) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if current != nil && current.UserID == user.ID {
		return &LoginResult{User: user, Session: current}, nil
	}

	return s.issue(user, "password")
}

// LoginGitHub signs in the existing account whose email matches the GitHub
// profile. GitHub never creates accounts: a user must register first.
func (s *UserService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*LoginResult, error) {
	if gh == nil {
		return nil, errors.New("service/user: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(gh.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("no account is registered for this GitHub email")
		}
		return nil, fmt.Errorf("github login: %w", err)
	}

	return s.issue(user, "github")
}

func (s *UserService) issue(user *model.User, method string) (*LoginResult, error) {
	token, session, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", method),
		slog.String("tokenID", session.TokenID),
	)
	return &LoginResult{User: user, Token: token, Session: session}, nil
}

// Logout revokes the session's token id until the token would have expired.
func (s *UserService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return apperror.Unauthorized("no active session")
	}

	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	s.logger.Info("user logged out",
		slog.String("userID", session.UserID),
		slog.String("tokenID", session.TokenID),
	)
	return nil
}

// GetByID returns the user for an id taken from a session.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if err := validateID("userId", id); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}
