package ports

import "github.com/messagely/messagely/internal/core/domain"

// PasswordHasher one-way hashes credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails loudly: a mismatch or malformed digest is false.
	Verify(plaintext, digest string) bool
}

// TokenIssuer mints and validates self-certifying identity tokens.
type TokenIssuer interface {
	Issue(username string) (*domain.AuthToken, error)
	// Validate returns the token subject or domain.ErrInvalidToken.
	Validate(token string) (string, error)
}
