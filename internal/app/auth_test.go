package app_test

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func TestAuthenticatorWithHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin@123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth, err := app.NewAuthenticator("", string(hash))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	if err := auth.PromoteToAdmin("admin@123"); err != nil {
		t.Fatalf("expected valid credential, got %v", err)
	}
	if err := auth.PromoteToAdmin("guess"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthenticatorWithPassword(t *testing.T) {
	auth, err := app.NewAuthenticator("secret", "")
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if err := auth.PromoteToAdmin("secret"); err != nil {
		t.Fatalf("expected valid credential, got %v", err)
	}
	if err := auth.PromoteToAdmin(""); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected empty credential to fail, got %v", err)
	}
}

func TestAuthenticatorWithoutSecretRejectsEverything(t *testing.T) {
	auth, err := app.NewAuthenticator("", "")
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if auth.Enabled() {
		t.Fatalf("expected disabled authenticator")
	}
	if err := auth.PromoteToAdmin("anything"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthenticatorRejectsMalformedHash(t *testing.T) {
	if _, err := app.NewAuthenticator("", "not-a-hash"); err == nil {
		t.Fatalf("expected malformed hash to fail")
	}
}
