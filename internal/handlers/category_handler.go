package handlers

import (
	"strconv"
	"time"

	"bevera/internal/logger"
	"bevera/internal/middleware"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CategoryHandler serves category browsing and category administration.
type CategoryHandler struct {
	service   *services.CategoryService
	favorites *services.FavoriteService
	log       *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service *services.CategoryService, favorites *services.FavoriteService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{service: service, favorites: favorites, log: logger.OrNop(log)}
}

// RegisterRoutes registers the category routes with the Fiber app.
func (h *CategoryHandler) RegisterRoutes(router fiber.Router, g Guards) {
	public := router.Group("/categories", g.Optional)
	public.Get("/", h.HandleTree)
	public.Get("/:id", h.HandleBrowse)

	admin := router.Group("/admin/categories", g.Admin()...)
	admin.Get("/", h.HandleList)
	admin.Get("/tree", h.HandleAdminTree)
	admin.Post("/", h.HandleCreate)
	admin.Get("/:id", h.HandleGet)
	admin.Get("/:id/parents", h.HandleParentCandidates)
	admin.Put("/:id", h.HandleUpdate)
	admin.Delete("/:id", h.HandleDelete)
	admin.Post("/:id/promote", h.HandlePromote)
}

// HandleTree returns the active categories as a two level tree.
func (h *CategoryHandler) HandleTree(c *fiber.Ctx) error {
	tree, err := h.service.Tree(c.UserContext(), true)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(tree)
}

// HandleBrowse opens a category: subcategories for a parent, otherwise a
// filtered product page. Logged in users also get their favorite ids.
func (h *CategoryHandler) HandleBrowse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter := repositories.ProductFilter{
		Query:         c.Query("q"),
		OnlyAvailable: c.QueryBool("onlyAvailable"),
		PageRequest:   pageRequest(c),
	}
	if filter.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return respondError(c, h.log, err)
	}
	if filter.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return respondError(c, h.log, err)
	}

	view, err := h.service.Browse(c.UserContext(), id, filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := fiber.Map{"view": view}
	if a, ok := middleware.ActorFrom(c); ok && view.Products != nil {
		favs, err := h.favorites.ProductIDs(c.UserContext(), a.UserID)
		if err != nil {
			return respondError(c, h.log, err)
		}
		resp["favorites"] = favs
	}
	return c.JSON(resp)
}

// HandleList pages categories filtered by name and creation date.
func (h *CategoryHandler) HandleList(c *fiber.Ctx) error {
	filter := repositories.CategoryFilter{Query: c.Query("q"), PageRequest: pageRequest(c)}
	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		return respondError(c, h.log, err)
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *CategoryHandler) HandleAdminTree(c *fiber.Ctx) error {
	tree, err := h.service.Tree(c.UserContext(), false)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(tree)
}

func (h *CategoryHandler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	category, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(category)
}

func (h *CategoryHandler) HandleParentCandidates(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	roots, err := h.service.ParentCandidates(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(roots)
}

func (h *CategoryHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	category, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CategoryHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in services.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	category, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(category)
}

func (h *CategoryHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandlePromote turns a subcategory into a top level category.
func (h *CategoryHandler) HandlePromote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	category, err := h.service.Promote(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(category)
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "Must be a number."}
	}
	return &d, nil
}

func queryInt(c *fiber.Ctx, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "Must be a whole number."}
	}
	return &n, nil
}

// queryDate parses YYYY-MM-DD in UTC.
func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "Use the YYYY-MM-DD format."}
	}
	return &t, nil
}
