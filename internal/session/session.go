// Package session answers whether remote calls can be made for the user.
package session

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the token source when no token is configured.
var ErrNoToken = errors.New("no auth token configured")

// TokenSession holds the bearer token used against the sync server.
type TokenSession struct {
	now   func() time.Time
	token string
}

// NewTokenSession creates a session for token. An empty token means logged out.
func NewTokenSession(token string) *TokenSession {
	return &TokenSession{
		token: strings.TrimSpace(token),
		now:   time.Now,
	}
}

// IsLoggedIn reports whether a usable token is present. Tokens that parse as
// JWTs must not be expired; opaque tokens are trusted as-is.
func (s *TokenSession) IsLoggedIn() bool {
	if s.token == "" {
		return false
	}

	exp, ok := s.expiry()
	if !ok {
		return true
	}
	return s.now().Before(exp)
}

// expiry returns the token's exp claim when it is a JWT that carries one.
// The signature is not checked: only the server can do that.
func (s *TokenSession) expiry() (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		slog.Debug("Ignoring malformed exp claim", "error", err)
		return time.Time{}, false
	}
	if exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Token implements oauth2.TokenSource.
func (s *TokenSession) Token() (*oauth2.Token, error) {
	if s.token == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{
		AccessToken: s.token,
		TokenType:   "Bearer",
	}
	if exp, ok := s.expiry(); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

var _ oauth2.TokenSource = (*TokenSession)(nil)
