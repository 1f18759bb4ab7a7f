package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/usuarios/registry/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// TokenIssuer signs the HS256 bearer tokens the API accepts. The API itself
// only verifies tokens; operators mint them with cmd/token.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue returns a token for subject with the given role.
func (s *TokenIssuer) Issue(subject, role string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: empty signing secret", domain.ErrInvalidClaims)
	}
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", domain.ErrInvalidClaims)
	}
	if !domain.ValidRole(role) {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidClaims, role)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}
