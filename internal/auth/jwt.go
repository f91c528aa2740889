package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the lifetime of the session cookie issued after login,
// registration, or a completed Google handshake.
const SessionTTL = 24 * time.Hour

// Audiences keep tokens minted for one purpose from being accepted for
// another: a signed OAuth state cookie can never pass as a session.
const (
	AudienceSession    = "session"
	AudienceOAuthState = "oauth_state"
)

const issuer = "accessible-chennai"

// ErrTokenExpired is returned by Parse and Validate for a well-signed but
// expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies HS256 tokens with the server secret.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<subject>","aud":["session"],"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// Verification needs only the secret, never a database lookup.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: SECRET_KEY=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: secret key must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate issues a session token for userID, valid for SessionTTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.Sign(userID, AudienceSession, SessionTTL)
}

// GenerateWithDuration issues a session token with a custom lifetime.
// A negative duration yields an already-expired token (useful in tests).
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.Sign(userID, AudienceSession, d)
}

// Validate parses a session token and returns the user ID in its subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	return s.Parse(tokenStr, AudienceSession)
}

// Sign issues a token carrying subject for the given audience.
func (s *TokenService) Sign(subject, audience string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns its subject.
//
// The jwt library checks the signature, expiry, issuer and audience.
// WithValidMethods pins HS256, which rules out "alg":"none" and
// RS/HS algorithm-confusion tokens.
func (s *TokenService) Parse(tokenStr, audience string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
