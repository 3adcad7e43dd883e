package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/middleware"
	"bevera/internal/models"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InventoryHandler exposes the stock ledger to the back office.
type InventoryHandler struct {
	service *services.InventoryService
	log     *zap.Logger
}

func NewInventoryHandler(service *services.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{service: service, log: logger.OrNop(log)}
}

// RegisterRoutes registers the inventory routes with the Fiber app.
func (h *InventoryHandler) RegisterRoutes(router fiber.Router, g Guards) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	routes := router.Group("/inventory", g.Staff()...)
	routes.Get("/low-stock", h.HandleLowStock)
	routes.Get("/reconcile", h.HandleReconcile)
	routes.Post("/reconcile", adminOnly, h.HandleReconcileFix)
	routes.Get("/:productId/movements", h.HandleMovements)
	routes.Post("/:productId/restock", h.HandleRestock)
	routes.Post("/:productId/adjust", adminOnly, h.HandleAdjust)
}

type restockRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note" validate:"max=500"`
}

type adjustRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note" validate:"max=500"`
}

func (h *InventoryHandler) HandleLowStock(c *fiber.Ctx) error {
	items, err := h.service.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

// HandleRestock records received goods.
func (h *InventoryHandler) HandleRestock(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req restockRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Restock(c.UserContext(), id, req.Quantity, actor(c), req.Note)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(h.service.Classify(*product))
}

// HandleAdjust applies a signed stock correction.
func (h *InventoryHandler) HandleAdjust(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req adjustRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Adjust(c.UserContext(), id, req.Delta, actor(c), req.Note)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(h.service.Classify(*product))
}

func (h *InventoryHandler) HandleMovements(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.service.Movements(c.UserContext(), id, pageRequest(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *InventoryHandler) HandleReconcile(c *fiber.Ctx) error {
	diffs, err := h.service.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"discrepancies": diffs})
}

// HandleReconcileFix resets every drifted stock counter to its ledger sum
// and returns what was fixed.
func (h *InventoryHandler) HandleReconcileFix(c *fiber.Ctx) error {
	fixed, err := h.service.ReconcileFix(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"fixed": fixed})
}
