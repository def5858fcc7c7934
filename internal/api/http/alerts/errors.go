package alerts

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/repository/recordings"
)

// ErrorHandler converts handler errors into JSON error responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code, message := classify(err)

	if status >= fiber.StatusInternalServerError {
		logger.ErrorKV(c.UserContext(), "Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func classify(err error) (int, string, string) {
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message
	case errors.Is(err, recordings.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge, "too_large", err.Error()
	case errors.Is(err, alert.ErrForbidden):
		return fiber.StatusForbidden, "forbidden", "Access denied"
	case errors.Is(err, alert.ErrNotFound):
		return fiber.StatusNotFound, "not_found", "Alert not found"
	case errors.Is(err, alert.ErrInvalidAction):
		return fiber.StatusBadRequest, "invalid_action", err.Error()
	case errors.Is(err, alert.ErrInvalidPayload):
		return fiber.StatusBadRequest, "invalid_payload", err.Error()
	case errors.Is(err, alert.ErrConflict):
		return fiber.StatusConflict, "conflict", "Alert was modified concurrently, reload and retry"
	default:
		return fiber.StatusInternalServerError, "internal", "Internal server error"
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusRequestEntityTooLarge:
		return "too_large"
	case fiber.StatusUpgradeRequired:
		return "upgrade_required"
	default:
		if status >= fiber.StatusInternalServerError {
			return "internal"
		}

		return "error"
	}
}
