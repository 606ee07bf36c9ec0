package app

import (
	"golang.org/x/crypto/bcrypt"
	"live-quiz-service/internal/domain"
)

// Authenticator checks the shared admin secret.
type Authenticator struct {
	hash []byte
}

// NewAuthenticator accepts either a bcrypt hash or a plaintext password; the hash wins
// when both are set. With neither, every credential is rejected.
func NewAuthenticator(password, passwordHash string) (*Authenticator, error) {
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, err
		}
		return &Authenticator{hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		return &Authenticator{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Authenticator{hash: hash}, nil
}

// Enabled reports whether an admin secret is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.hash) > 0
}

// PromoteToAdmin returns nil when credential matches the admin secret.
func (a *Authenticator) PromoteToAdmin(credential string) error {
	if !a.Enabled() || credential == "" {
		return domain.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential)); err != nil {
		return domain.ErrInvalidCredential
	}
	return nil
}
