package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler serves user administration and the profile of the caller.
type UserHandler struct {
	service *services.UserService
	log     *zap.Logger
}

func NewUserHandler(service *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: service, log: logger.OrNop(log)}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router, g Guards) {
	admin := router.Group("/admin/users", g.Admin()...)
	admin.Get("/", h.HandleList)
	admin.Post("/", h.HandleCreate)
	admin.Get("/:id", h.HandleGet)
	admin.Delete("/:id", h.HandleDelete)
	admin.Put("/:id/role", h.HandleChangeRole)

	profile := router.Group("/me/profile", g.Auth)
	profile.Get("/", h.HandleProfile)
	profile.Put("/", h.HandleUpdateProfile)
}

type createUserRequest struct {
	RegisterRequest
	Role string `json:"role" validate:"required,oneof=Admin Worker Client"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=Admin Worker Client"`
}

type profileRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
}

// HandleList pages users. Query params: q, role, page, pageSize.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), repositories.UserFilter{
		Query:       c.Query("q"),
		Role:        models.Role(c.Query("role")),
		PageRequest: pageRequest(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *UserHandler) HandleGet(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UserHandler) HandleCreate(c *fiber.Ctx) error {
	var req createUserRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.service.Create(c.UserContext(), services.NewUserInput{
		RegisterInput: services.RegisterInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
		Role: models.Role(req.Role),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandler) HandleChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.service.ChangeRole(c.UserContext(), actor(c), c.Params("id"), models.Role(req.Role))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.service.Profile(c.UserContext(), actor(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.service.UpdateProfile(c.UserContext(), actor(c).UserID, services.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}
