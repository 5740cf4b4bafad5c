package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lendinghub/lending-service/internal/config"
	"github.com/lendinghub/lending-service/internal/models"
)

// ErrInvalidToken covers bad signatures, malformed payloads and expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified content of an access token.
type Identity struct {
	HolderID  string
	Role      models.Role
	ExpiresAt time.Time
}

// Claims is the JWT payload of an access token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 access tokens. Tokens are not persisted and
// cannot be revoked; they stay valid for their whole TTL.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for iat/exp and for verification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg config.JWTConfig, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("tokens: signing secret is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, errors.New("tokens: access token ttl must be positive")
	}
	s := &Service{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.AccessTokenTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the lifetime given to issued tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a signed access token for the holder and role.
func (s *Service) Issue(holderID string, role models.Role) (string, time.Time, error) {
	if holderID == "" || !role.Valid() {
		return "", time.Time{}, fmt.Errorf("tokens: cannot issue for holder=%q role=%q", holderID, role)
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   holderID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: sign: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded identity.
func (s *Service) Verify(raw string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing subject or unknown role", ErrInvalidToken)
	}
	return &Identity{HolderID: claims.Subject, Role: claims.Role, ExpiresAt: claims.ExpiresAt.Time}, nil
}
