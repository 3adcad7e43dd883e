package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/middleware"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler serves the session cart. Anonymous shoppers get one too.
type CartHandler struct {
	service *services.CartService
	log     *zap.Logger
}

func NewCartHandler(service *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{service: service, log: logger.OrNop(log)}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router, g Guards) {
	routes := router.Group("/cart", g.Session)
	routes.Get("/", h.HandleView)
	routes.Get("/count", h.HandleCount)
	routes.Post("/items", h.HandleAdd)
	routes.Put("/items/:productId", h.HandleUpdate)
	routes.Delete("/items/:productId", h.HandleRemove)
}

type addItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"lte=9999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=9999"`
}

func (h *CartHandler) HandleView(c *fiber.Ctx) error {
	summary, err := h.service.View(c.UserContext(), middleware.CartSessionID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}

func (h *CartHandler) HandleCount(c *fiber.Ctx) error {
	n, err := h.service.Count(c.UserContext(), middleware.CartSessionID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// HandleAdd merges a product into the cart. The response says whether the
// quantity was cut down to the available stock.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var req addItemRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	change, err := h.service.Add(c.UserContext(), middleware.CartSessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(change)
}

func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req updateItemRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	change, err := h.service.Update(c.UserContext(), middleware.CartSessionID(c), id, req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(change)
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.service.Remove(c.UserContext(), middleware.CartSessionID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"count": n})
}
