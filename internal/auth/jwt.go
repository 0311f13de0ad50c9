// Package auth provides credential handling for the poetry API: JWT session
// tokens, bcrypt password hashing, the HTTP access-control middleware, and
// the optional GitHub OAuth login flow.
//
// Session tokens are stateless. Everything a request needs to establish the
// caller — account ID, email, role, expiry — travels inside the signed token,
// so token verification never touches the database. The signature (HMAC-SHA256
// over the header and payload) guarantees nobody can change the role claim
// without the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/model"
)

const issuer = "poetry-share"

// DefaultTokenTTL is how long an issued session token stays valid.
// 24 hours, overridable per TokenService via NewTokenServiceWithTTL
// (the TOKEN_TTL environment variable feeds it in main).
const DefaultTokenTTL = 24 * time.Hour

// Identity is the verified caller extracted from a session token.
type Identity struct {
	UserID string     `json:"id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret used for both operations. The secret should be
// at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the default 24h token TTL.
func NewTokenService(secret string) (*TokenService, error) {
	return NewTokenServiceWithTTL(secret, DefaultTokenTTL)
}

// NewTokenServiceWithTTL creates a TokenService with a custom token TTL.
func NewTokenServiceWithTTL(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. The account ID rides in the standard "sub"
// claim; email and role are custom claims so the middleware can gate by
// role without a database lookup.
type claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given identity.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the identity it
// carries. Every failure — bad signature, expiry, wrong issuer, missing
// subject — comes back as apperror.ErrInvalidCredential so handlers don't
// have to distinguish the jwt library's error zoo.
//
// WithValidMethods pins the algorithm to HS256; without it an attacker
// could attempt an algorithm-confusion token.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperror.InvalidCredential("token expired")
		}
		return Identity{}, apperror.InvalidCredential("invalid token")
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, apperror.InvalidCredential("invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, apperror.InvalidCredential("token has no subject")
	}
	if !c.Role.Valid() {
		return Identity{}, apperror.InvalidCredential("token has an unknown role")
	}

	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
