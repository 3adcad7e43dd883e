package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	service *services.DashboardService
	log     *zap.Logger
}

func NewDashboardHandler(service *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, log: logger.OrNop(log)}
}

func (h *DashboardHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Get("/admin/dashboard", append(g.Admin(), h.HandleAdmin)...)
	router.Get("/worker/dashboard", append(g.Staff(), h.HandleWorker)...)
}

func (h *DashboardHandler) HandleAdmin(c *fiber.Ctx) error {
	d, err := h.service.Admin(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}

func (h *DashboardHandler) HandleWorker(c *fiber.Ctx) error {
	d, err := h.service.Worker(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}
