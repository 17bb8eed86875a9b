package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := createTestToken(t, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	got, ok := TokenExpiry(tok)
	if !ok {
		t.Fatal("expected exp to be found")
	}
	if !got.Equal(exp) {
		t.Errorf("expected %v, got %v", exp, got)
	}
}

func TestTokenExpiry_NoExp(t *testing.T) {
	tok := createTestToken(t, jwt.RegisteredClaims{Subject: "42"})
	if _, ok := TokenExpiry(tok); ok {
		t.Error("expected ok=false for token without exp")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	past := createTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})
	future := createTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"expired jwt", past, true},
		{"valid jwt", future, false},
		{"opaque token", "3f1c9a7e-opaque", false},
		{"empty token", "", false},
		{"garbage with dots", "a.b.c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenExpired(tt.token, now); got != tt.want {
				t.Errorf("TokenExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
