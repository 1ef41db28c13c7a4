package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestVerifier(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("testsecret"), Issuer: "accounts", Audience: "gridverse"}
	v := NewVerifier(cfg)
	exp := time.Now().Add(time.Minute).Unix()

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "string user id",
			token: sign(t, "testsecret", jwt.MapClaims{"userId": "42", "iss": "accounts", "aud": "gridverse", "exp": exp}),
			want:  "42",
		},
		{
			name:  "numeric user id",
			token: sign(t, "testsecret", jwt.MapClaims{"userId": 42, "iss": "accounts", "aud": "gridverse", "exp": exp}),
			want:  "42",
		},
		{
			name:  "subject fallback",
			token: sign(t, "testsecret", jwt.MapClaims{"sub": "7", "iss": "accounts", "aud": "gridverse", "exp": exp}),
			want:  "7",
		},
		{
			name:    "no user",
			token:   sign(t, "testsecret", jwt.MapClaims{"iss": "accounts", "aud": "gridverse", "exp": exp}),
			wantErr: ErrMissingUserID,
		},
		{
			name:    "wrong secret",
			token:   sign(t, "other", jwt.MapClaims{"userId": "42", "iss": "accounts", "aud": "gridverse", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			token:   sign(t, "testsecret", jwt.MapClaims{"userId": "42", "iss": "accounts", "aud": "gridverse", "exp": time.Now().Add(-time.Minute).Unix()}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong issuer",
			token:   sign(t, "testsecret", jwt.MapClaims{"userId": "42", "iss": "evil", "aud": "gridverse", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong audience",
			token:   sign(t, "testsecret", jwt.MapClaims{"userId": "42", "iss": "accounts", "aud": "other", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected user %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVerifierRejectsWithoutSecret(t *testing.T) {
	v := NewVerifier(&JWTConfig{})
	token := sign(t, "x", jwt.MapClaims{"userId": "1"})
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "accounts", TTL: time.Minute}
	token, err := GenerateToken(cfg, "5", "eve")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := NewVerifier(cfg).Verify(token)
	if err != nil || got != "5" {
		t.Fatalf("expected user 5, got %q, %v", got, err)
	}
}
