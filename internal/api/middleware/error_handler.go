package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

func errorBody(code, message string) fiber.Map {
	return fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	}
}

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := "HTTP_ERROR"
			if fiberErr.Code == fiber.StatusRequestEntityTooLarge {
				code = domain.ErrInvalidImage.Code
			}
			return c.Status(fiberErr.Code).JSON(errorBody(code, fiberErr.Message))
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("request failed",
					slog.String("code", appErr.Code),
					slog.String("path", c.Path()),
					slog.String("request_id", requestID(c)),
					slog.Any("error", appErr.Err),
				)
			}
			return c.Status(appErr.StatusCode).JSON(errorBody(appErr.Code, appErr.Message))
		}

		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", requestID(c)),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(
			errorBody(domain.ErrInternal.Code, domain.ErrInternal.Message))
	}
}
