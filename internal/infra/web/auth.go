package web

import (
	"crypto/rsa"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"picturas-subscriptions/internal/domain"
)

// ===== Access-token validation =====

// TokenValidator verifies bearer credentials issued by the users service.
// It holds only the verification key; this service never mints tokens.
type TokenValidator struct {
	key *rsa.PublicKey
}

func NewTokenValidator(publicKeyPEM []byte) (*TokenValidator, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &TokenValidator{key: key}, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
}

// Identity is the validated result: a stable user id and the token's
// remaining validity window.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// Validate checks signature and expiry and extracts the subject. Every
// failure collapses to ErrUnauthenticated; callers must not learn which
// sub-condition failed.
func (v *TokenValidator) Validate(credential string) (*Identity, error) {
	if credential == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthenticated
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrUnauthenticated
	}
	return &Identity{UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// FromRequest pulls the bearer credential out of the Authorization header.
func (v *TokenValidator) FromRequest(r *http.Request) (*Identity, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" || !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return nil, domain.ErrUnauthenticated
	}
	return v.Validate(strings.TrimSpace(hdr[7:]))
}
