package middlewares

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/metrics"
)

// MetricsMiddleware observes every handled request under its route
// pattern. Errors are counted with the status the error handler will
// send, not the default 200 still present on the raw response.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}

		metrics.ObserveRequest(c.Method(), path, status, time.Since(start))

		return err
	}
}
