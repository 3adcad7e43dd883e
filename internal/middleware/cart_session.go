package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	CartCookie     = "cart_session"
	cartSessionKey = "cart_session"
)

// CartSession makes sure every request carries a cart session id, issuing a
// new cookie when the client has none or sends a malformed one.
func CartSession(ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(CartCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     CartCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(ttl),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(cartSessionKey, id)
		return c.Next()
	}
}

// CartSessionID returns the id set by CartSession.
func CartSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(cartSessionKey).(string)
	return id
}
