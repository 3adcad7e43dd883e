package middleware

import (
	"strings"

	"bevera/internal/models"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
)

const actorKey = "actor"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		actor, err := authService.ValidateToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// OptionalAuth attaches the actor when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
			if actor, err := authService.ValidateToken(tokenString); err == nil {
				c.Locals(actorKey, actor)
			}
		}
		return c.Next()
	}
}

// RequireRole rejects actors whose role is not listed. It must run after
// AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this resource",
		})
	}
}

// ActorFrom returns the authenticated actor of the request, if any.
func ActorFrom(c *fiber.Ctx) (services.Actor, bool) {
	actor, ok := c.Locals(actorKey).(services.Actor)
	return actor, ok
}

func bearerToken(header string) (string, bool) {
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
