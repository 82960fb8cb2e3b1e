// Package auth issues and checks session tokens, hashes passwords and talks
// to GitHub for the optional OAuth sign-in.
//
// SESSION FLOW:
//  1. POST /users/login checks the password and issues a signed JWT
//  2. The JWT is stored in the HttpOnly "userId" cookie
//  3. RequireAuth reads the cookie on every protected request, verifies the
//     signature and expiry, and rejects token ids that were logged out
//  4. The user id from the "sub" claim is placed in the request context
//
// The cookie keeps its historical name, but its value is a signed token,
// never the bare user id. A client cannot pick whose meals it sees.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","jti":"<xid>","iss":"daily-diet","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// SessionTTL is how long a login lasts. It matches the cookie max-age.
	SessionTTL = 24 * time.Hour

	issuer = "daily-diet"

	// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
	MinSecretLength = 16
)

// Session is what a valid token proves: who the caller is, and which token
// they presented (so logout can revoke exactly that one).
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate signs a new session token for userID, valid for SessionTTL.
func (s *TokenService) Generate(userID string) (string, *Session, error) {
	return s.GenerateWithDuration(userID, SessionTTL)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
//
// Every token gets a fresh xid as its "jti". The id is what the revocation
// store records on logout; the token itself is never stored.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, *Session, error) {
	if userID == "" {
		return "", nil, errors.New("auth: cannot issue a token without a user id")
	}

	now := time.Now()
	session := &Session{
		UserID:    userID,
		TokenID:   xid.New().String(),
		ExpiresAt: now.Add(d).Truncate(time.Second),
	}

	c := jwt.RegisteredClaims{
		ID:        session.TokenID,
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, session, nil
}

// Validate parses and verifies a token string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none", no RS/HS confusion)
//   - Token is not expired, and carries an expiry at all
//   - Issuer is "daily-diet"
//
// Revocation is NOT checked here: that needs storage, see RequireAuth.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, errors.New("auth: token has no id")
	}

	return &Session{
		UserID:    c.Subject,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
