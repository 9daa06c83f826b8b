package middleware

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/apperrors"
	"marketplace/internal/policy"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the calling account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (policy.Principal, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// resolved principal is stored in the request locals.
func AuthRequired(auth Authenticator, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		principal, err := auth.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			kind := apperrors.KindOf(err)
			if kind == apperrors.KindInternal {
				logger.Error("authentication failed", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
				})
			}
			var appErr *apperrors.Error
			message := "Invalid or expired token"
			if errors.As(err, &appErr) {
				message = appErr.Message
			}
			return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
				"message": message,
			})
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// Authorize rejects principals whose role is not allowed to perform action.
// It must run after AuthRequired.
func Authorize(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		if !policy.Allowed(action, principal.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access denied",
			})
		}
		return c.Next()
	}
}

// PrincipalFrom returns the caller stored by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (policy.Principal, bool) {
	p, ok := c.Locals(principalKey).(policy.Principal)
	return p, ok
}
