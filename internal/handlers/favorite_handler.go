package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type FavoriteHandler struct {
	service *services.FavoriteService
	log     *zap.Logger
}

func NewFavoriteHandler(service *services.FavoriteService, log *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{service: service, log: logger.OrNop(log)}
}

func (h *FavoriteHandler) RegisterRoutes(router fiber.Router, g Guards) {
	routes := router.Group("/me/favorites", g.Auth)
	routes.Get("/", h.HandleList)
	routes.Post("/:productId", h.HandleToggle)
}

func (h *FavoriteHandler) HandleList(c *fiber.Ctx) error {
	favs, err := h.service.List(c.UserContext(), actor(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(favs)
}

// HandleToggle flips the favorite flag of a product for the caller.
func (h *FavoriteHandler) HandleToggle(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	on, err := h.service.Toggle(c.UserContext(), actor(c).UserID, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"product_id": id, "favorite": on})
}
