package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/messagely/messagely/internal/core/domain"
)

const tokenIssuer = "messagely"

// Claims is the payload of an identity token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// JWTIssuer signs HS256 tokens with a process-wide secret.
// A zero ttl produces tokens that never expire.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret []byte, ttl time.Duration) *JWTIssuer {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &JWTIssuer{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token whose subject is username.
func (i *JWTIssuer) Issue(username string) (*domain.AuthToken, error) {
	if username == "" {
		return nil, fmt.Errorf("issue token: empty subject: %w", domain.ErrInvalidInput)
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(issuedAt),
			ID:       uuid.NewString(),
		},
		Username: username,
	}

	var expiresAt *time.Time
	if i.ttl > 0 {
		exp := issuedAt.Add(i.ttl)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &domain.AuthToken{
		Token:     signed,
		Subject:   username,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks the signature, algorithm and expiry and returns the subject.
// Every failure is reported as domain.ErrInvalidToken.
func (i *JWTIssuer) Validate(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Subject == "" || claims.Subject != claims.Username {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
