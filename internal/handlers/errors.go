package handlers

import (
	"errors"

	"marketplace/internal/apperrors"
	"marketplace/internal/middleware"
	"marketplace/internal/policy"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError renders err with the status of its kind. Unexpected failures are
// logged and hidden behind a generic message.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperrors.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	body := fiber.Map{"message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	return c.Status(appErr.Kind.HTTPStatus()).JSON(body)
}

// ErrorHandler is the Fiber fallback for errors returned by handlers and
// middleware, such as unknown routes or oversized bodies.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	logger = orNop(logger)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		return writeError(c, logger, err)
	}
}

// caller returns the authenticated principal of the request.
func caller(c *fiber.Ctx) (policy.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return policy.Principal{}, apperrors.Unauthenticated("authentication required")
	}
	return p, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
