package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/ratelimit"
)

// RateLimit rejects requests with 429 once the caller's network address has
// used up its window. The wrapped handler is not invoked on rejection.
func RateLimit(l *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := l.Admit(c.IP()); err != nil {
			if errors.Is(err, ratelimit.ErrLimitExceeded) {
				log.Warn().Str("client", c.IP()).Str("path", c.Path()).Msg("rate limit exceeded")
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
			}
			return err
		}
		return c.Next()
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
