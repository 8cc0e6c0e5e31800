package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rosterlab/rosterlab/pkg/contracts"
)

// SessionCookie is the cookie the session token may travel in.
const SessionCookie = "session"

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionProvider validates HS256 session tokens issued by the login
// gateway. The token is read from "Authorization: Bearer" or the session
// cookie.
type SessionProvider struct {
	secret []byte
	parser *jwt.Parser
}

// NewSessionProvider creates a provider. An empty secret disables it.
func NewSessionProvider(secret string) *SessionProvider {
	return &SessionProvider{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (p *SessionProvider) Name() string { return "session" }
func (p *SessionProvider) Enabled() bool { return len(p.secret) > 0 }

// Authenticate returns (nil, nil) when the request carries no token.
func (p *SessionProvider) Authenticate(_ context.Context, r *http.Request) (*contracts.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, nil
	}

	claims := &SessionClaims{}
	if _, err := p.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid session token: missing subject")
	}

	id := &contracts.Identity{
		Subject:     claims.Subject,
		DisplayName: claims.Name,
		Provider:    "session",
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IssueSessionToken signs an HS256 session token with the claims SessionProvider
// expects. Whatever front end shares SESSION_SECRET mints the same shape.
func IssueSessionToken(secret []byte, subject, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
