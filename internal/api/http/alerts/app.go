package alerts

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oshokin/safety-relay/internal/logger"
)

// multipartOverhead leaves room for form fields around an upload.
const multipartOverhead = 1 << 20

// NewApp creates a fiber application with the shared error handler.
// maxUpload bounds request bodies; zero keeps the fiber default.
func NewApp(maxUpload int64, timeout time.Duration) *fiber.App {
	cfg := fiber.Config{
		AppName:               "safety-relay",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	}

	if maxUpload > 0 {
		cfg.BodyLimit = int(maxUpload + multipartOverhead)
	}

	if timeout > 0 {
		cfg.ReadTimeout = timeout
	}

	app := fiber.New(cfg)
	app.Use(RequestLogger())

	return app
}

// RequestLogger logs every request at debug level.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status, _, _ = classify(err)
		}

		logger.DebugKV(c.UserContext(), "HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(started))

		return err
	}
}
