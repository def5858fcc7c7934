package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
)

var (
	// ErrInvalidToken is returned when the token is malformed or its signature is wrong.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the JWT claims carried by every token.
type Claims struct {
	// Role is the principal's role; the subject claim holds its id.
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a token manager from the auth settings.
func NewManager(settings config.Auth, opts ...ManagerOption) *Manager {
	m := &Manager{
		secret: []byte(settings.Secret),
		issuer: settings.Issuer,
		ttl:    settings.TokenTTL,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Issue signs a token for the principal.
func (m *Manager) Issue(p alert.Principal) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: subject is required", alert.ErrInvalidPayload)
	}

	if _, err := alert.ParseRole(string(p.Role)); err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify validates the token and returns the principal it names.
func (m *Manager) Verify(token string) (alert.Principal, error) {
	claims := new(Claims)

	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return alert.Principal{}, ErrExpiredToken
		}

		return alert.Principal{}, ErrInvalidToken
	}

	if !parsed.Valid || claims.Subject == "" {
		return alert.Principal{}, ErrInvalidToken
	}

	role, err := alert.ParseRole(claims.Role)
	if err != nil {
		return alert.Principal{}, ErrInvalidToken
	}

	return alert.Principal{ID: claims.Subject, Role: role}, nil
}
