package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"bevera/internal/middleware"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Guards are the middleware chains handlers attach to their routes.
type Guards struct {
	Auth     fiber.Handler
	Optional fiber.Handler
	Session  fiber.Handler
}

// NewGuards builds the guards backed by authService.
func NewGuards(authService *services.AuthService, sessionTTL time.Duration) Guards {
	return Guards{
		Auth:     middleware.AuthRequired(authService),
		Optional: middleware.OptionalAuth(authService),
		Session:  middleware.CartSession(sessionTTL),
	}
}

// Roles authenticates the request and admits only the listed roles.
func (g Guards) Roles(roles ...models.Role) []fiber.Handler {
	return []fiber.Handler{g.Auth, middleware.RequireRole(roles...)}
}

// Staff admits administrators and workers.
func (g Guards) Staff() []fiber.Handler {
	return g.Roles(models.RoleAdmin, models.RoleWorker)
}

// Admin admits administrators only.
func (g Guards) Admin() []fiber.Handler {
	return g.Roles(models.RoleAdmin)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// parseBody decodes the request body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: "Invalid request body."}
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		errs := make(services.ValidationErrors, 0, len(validationErrors))
		for _, e := range validationErrors {
			errs = append(errs, &services.ValidationError{
				Field:   e.Field(),
				Message: fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()),
			})
		}
		return errs
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: name, Message: "Invalid id."}
	}
	return uint(id), nil
}

func pageRequest(c *fiber.Ctx) repositories.PageRequest {
	return repositories.PageRequest{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", repositories.DefaultPageSize),
	}.Normalize()
}

func actor(c *fiber.Ctx) services.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// respondError maps service errors onto HTTP responses. Messages of
// unexpected errors stay in the log.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		fieldErrs services.ValidationErrors
		fieldErr  *services.ValidationError
		stockErr  *services.StockError
	)
	switch {
	case errors.As(err, &fieldErrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fieldErrs.Fields(),
		})
	case errors.As(err, &fieldErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  map[string]string{fieldErr.Field: fieldErr.Message},
		})
	case errors.As(err, &stockErr):
		lines := make([]fiber.Map, len(stockErr.Lines))
		for i, l := range stockErr.Lines {
			lines[i] = fiber.Map{
				"product_id": l.ProductID,
				"requested":  l.Requested,
				"available":  l.Available,
				"message":    l.Message(),
			}
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Insufficient stock",
			"lines":   lines,
		})
	case errors.Is(err, services.ErrInvalidQuantity):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": "Quantity must be positive"})
	case errors.Is(err, services.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Your cart is empty"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrConstraintViolation), errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication failed"})
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
