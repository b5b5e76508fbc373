//go:build !integration

// File: internal/infra/web/auth_test.go
package web_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/infra/web"
)

type tokenForge struct {
	key *rsa.PrivateKey
	pub []byte
}

func newTokenForge(t *testing.T) *tokenForge {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &tokenForge{key: key, pub: pub}
}

func (f *tokenForge) mint(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func (f *tokenForge) validToken(t *testing.T, userID string) string {
	return f.mint(t, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
}

func jwtExpiredClaims(userID string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
}

func TestTokenValidator(t *testing.T) {
	forge := newTokenForge(t)
	validator, err := web.NewTokenValidator(forge.pub)
	if err != nil {
		t.Fatalf("NewTokenValidator: %v", err)
	}

	t.Run("valid token yields the subject", func(t *testing.T) {
		id, err := validator.Validate(forge.validToken(t, "user-1"))
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if id.UserID != "user-1" {
			t.Fatalf("user id = %q", id.UserID)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		tok := forge.mint(t, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		if _, err := validator.Validate(tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("token signed by another key is rejected", func(t *testing.T) {
		other := newTokenForge(t)
		if _, err := validator.Validate(other.validToken(t, "user-1")); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("token without a subject is rejected", func(t *testing.T) {
		tok := forge.mint(t, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		if _, err := validator.Validate(tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("token without an expiry is rejected", func(t *testing.T) {
		tok := forge.mint(t, jwt.RegisteredClaims{Subject: "user-1"})
		if _, err := validator.Validate(tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("hs256 token is rejected even when it would verify", func(t *testing.T) {
		// Symmetric alg with the public PEM as secret; the validator must
		// refuse the alg before looking at the signature.
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(forge.pub)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := validator.Validate(tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("garbage and empty credentials are rejected", func(t *testing.T) {
		for _, cred := range []string{"", "not-a-token", "a.b.c"} {
			if _, err := validator.Validate(cred); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("Validate(%q) = %v, want ErrUnauthenticated", cred, err)
			}
		}
	})
}

func TestFromRequest(t *testing.T) {
	forge := newTokenForge(t)
	validator, err := web.NewTokenValidator(forge.pub)
	if err != nil {
		t.Fatalf("NewTokenValidator: %v", err)
	}

	t.Run("bearer header is accepted", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+forge.validToken(t, "user-1"))
		id, err := validator.FromRequest(r)
		if err != nil {
			t.Fatalf("FromRequest: %v", err)
		}
		if id.UserID != "user-1" {
			t.Fatalf("user id = %q", id.UserID)
		}
	})

	t.Run("missing and malformed headers are rejected", func(t *testing.T) {
		for _, hdr := range []string{"", "Basic abc", forge.validToken(t, "user-1")} {
			r := httptest.NewRequest("GET", "/", nil)
			if hdr != "" {
				r.Header.Set("Authorization", hdr)
			}
			if _, err := validator.FromRequest(r); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("header %q: err = %v, want ErrUnauthenticated", hdr, err)
			}
		}
	})
}

func TestNewTokenValidatorBadKey(t *testing.T) {
	if _, err := web.NewTokenValidator([]byte("not a pem")); err == nil {
		t.Fatal("expected error for invalid PEM")
	}
}
