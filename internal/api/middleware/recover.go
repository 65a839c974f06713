package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
					slog.String("request_id", requestID(c)),
					slog.String("stack", string(debug.Stack())),
				)
				err = c.Status(fiber.StatusInternalServerError).JSON(
					errorBody(domain.ErrInternal.Code, domain.ErrInternal.Message))
			}
		}()
		return c.Next()
	}
}
