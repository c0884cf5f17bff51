package auth

import (
	"testing"
	"time"

	"reviewhub/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewTokenService(testSecret, time.Hour)

	user := &models.User{ID: "usr_1", Username: "alice", Role: models.RoleUser}
	token, err := s.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := s.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "usr_1" {
		t.Fatalf("claims.UserID = %q, want %q", claims.UserID, "usr_1")
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenService(testSecret, time.Hour)
	verifier := NewTokenService("another-secret-that-is-long-enough!", time.Hour)

	token, err := issuer.Generate(&models.User{ID: "usr_1"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Fatalf("Validate() accepted a token signed with a different secret")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	s := NewTokenService(testSecret, time.Hour)

	if _, err := s.Validate("not-a-token"); err == nil {
		t.Fatalf("Validate() accepted garbage input")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	s := NewTokenService(testSecret, -time.Minute)

	token, err := s.Generate(&models.User{ID: "usr_1"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := s.Validate(token); err == nil {
		t.Fatalf("Validate() accepted an expired token")
	}
}
