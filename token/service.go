// Package token issues and verifies the HS256 access tokens that carry a
// principal between requests.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/tenant-notes/services"
)

// DefaultTTL is the lifetime of an issued token
const DefaultTTL = 24 * time.Hour

// ErrNotConfigured is returned when the signing secret is empty
var ErrNotConfigured = services.ErrConfiguration.WithDetail("component", "token")

// Config holds configuration for Service
type Config struct {
	Secret string
	TTL    time.Duration
	// Now is the clock used for iat/exp and for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Service signs and verifies tokens with a single shared secret
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewService creates a token service. An empty secret is refused.
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrNotConfigured
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    cfg.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(cfg.Now),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// TTL returns the configured token lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs claims with exp = now + TTL and iat = now
func (s *Service) Issue(claims Claims) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	if err := claims.validate(); err != nil {
		return "", services.ErrInternal.Wrap(fmt.Errorf("issue token: %w", err))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(s.secret)
	if err != nil {
		return "", services.ErrInternal.Wrap(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Expired tokens yield services.ErrTokenExpired; everything else that fails
// yields services.ErrTokenInvalid.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		// The expiry check only runs after the signature was verified.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired.Wrap(err)
		}
		return nil, services.ErrTokenInvalid.Wrap(err)
	}
	if !tok.Valid {
		return nil, services.ErrTokenInvalid
	}
	if err := claims.validate(); err != nil {
		return nil, services.ErrTokenInvalid.Wrap(err)
	}
	return claims, nil
}
