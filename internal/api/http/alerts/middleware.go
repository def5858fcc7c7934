package alerts

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/oshokin/safety-relay/internal/domain/alert"
)

// principalKey is the fiber locals key of the authenticated principal.
const principalKey = "principal"

// Authenticator validates request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (alert.Principal, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the principal for handlers.
func AuthMiddleware(authenticator Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := authenticator.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or missing bearer token")
		}

		c.Locals(principalKey, principal)

		return c.Next()
	}
}

// principalFrom returns the principal stored by AuthMiddleware.
func principalFrom(c *fiber.Ctx) alert.Principal {
	principal, _ := c.Locals(principalKey).(alert.Principal)

	return principal
}
