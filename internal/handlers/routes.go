package handlers

import (
	"errors"
	"time"

	"bevera/internal/logger"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP layer talks to.
type Services struct {
	Auth       *services.AuthService
	Products   *services.ProductService
	Categories *services.CategoryService
	Cart       *services.CartService
	Orders     *services.OrderService
	Invoices   *services.InvoiceService
	Inventory  *services.InventoryService
	Users      *services.UserService
	Favorites  *services.FavoriteService
	Dashboards *services.DashboardService
}

// RegisterRoutes mounts every handler under router.
func RegisterRoutes(router fiber.Router, svc Services, sessionTTL time.Duration, log *zap.Logger) {
	g := NewGuards(svc.Auth, sessionTTL)

	NewAuthHandler(svc.Auth, log).RegisterRoutes(router, g)
	NewProductHandler(svc.Products, svc.Favorites, log).RegisterRoutes(router, g)
	NewCategoryHandler(svc.Categories, svc.Favorites, log).RegisterRoutes(router, g)
	NewCartHandler(svc.Cart, log).RegisterRoutes(router, g)
	NewOrderHandler(svc.Orders, svc.Invoices, log).RegisterRoutes(router, g)
	NewInventoryHandler(svc.Inventory, log).RegisterRoutes(router, g)
	NewUserHandler(svc.Users, log).RegisterRoutes(router, g)
	NewFavoriteHandler(svc.Favorites, log).RegisterRoutes(router, g)
	NewDashboardHandler(svc.Dashboards, log).RegisterRoutes(router, g)
}

// ErrorHandler renders errors that escape the handlers, such as unknown
// routes, in the same JSON shape.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}
