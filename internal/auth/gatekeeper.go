package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
)

// ErrMissingCredential is returned when no bearer token was presented.
var ErrMissingCredential = errors.New("missing credential")

// Verifier validates an opaque token and names its principal.
type Verifier interface {
	Verify(token string) (alert.Principal, error)
}

// Gatekeeper authenticates credentials once, at request or handshake time.
type Gatekeeper struct {
	verifier Verifier
}

// NewGatekeeper wraps a token verifier.
func NewGatekeeper(verifier Verifier) *Gatekeeper {
	return &Gatekeeper{
		verifier: verifier,
	}
}

// Authenticate validates a credential, either a raw token or an
// "Authorization: Bearer" header value.
func (g *Gatekeeper) Authenticate(ctx context.Context, credential string) (alert.Principal, error) {
	token := BearerToken(credential)
	if token == "" {
		return alert.Principal{}, ErrMissingCredential
	}

	principal, err := g.verifier.Verify(token)
	if err != nil {
		logger.DebugKV(ctx, "Credential rejected", "error", err)

		return alert.Principal{}, err
	}

	return principal, nil
}

// BearerToken strips an optional "Bearer " scheme prefix.
func BearerToken(value string) string {
	const scheme = "bearer"

	value = strings.TrimSpace(value)
	if strings.EqualFold(value, scheme) {
		return ""
	}

	if len(value) > len(scheme) && strings.EqualFold(value[:len(scheme)], scheme) && value[len(scheme)] == ' ' {
		value = strings.TrimSpace(value[len(scheme):])
	}

	return value
}
