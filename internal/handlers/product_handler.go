package handlers

import (
	"bevera/internal/logger"
	"bevera/internal/middleware"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler serves the public catalog and the product back office.
type ProductHandler struct {
	service   *services.ProductService
	favorites *services.FavoriteService
	log       *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, favorites *services.FavoriteService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, favorites: favorites, log: logger.OrNop(log)}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, g Guards) {
	public := router.Group("/products", g.Optional)
	public.Get("/", h.HandleSearch)
	public.Get("/:id", h.HandleGetProduct)

	admin := router.Group("/admin/products", g.Admin()...)
	admin.Get("/", h.HandleListProducts)
	admin.Post("/", h.HandleCreateProduct)
	admin.Get("/:id", h.HandleGetProductAdmin)
	admin.Put("/:id", h.HandleUpdateProduct)
	admin.Delete("/:id", h.HandleDeleteProduct)
	admin.Post("/:id/images", h.HandleUploadImage)
}

// HandleSearch lists active products, optionally matching q.
func (h *ProductHandler) HandleSearch(c *fiber.Ctx) error {
	page := pageRequest(c)
	var (
		result *repositories.Page[models.Product]
		err    error
	)
	if q := c.Query("q"); q != "" {
		result, err = h.service.Search(c.UserContext(), q, page)
	} else {
		result, err = h.service.List(c.UserContext(), repositories.ProductFilter{
			ActiveOnly:    true,
			OnlyAvailable: c.QueryBool("onlyAvailable"),
			PageRequest:   page,
		})
	}
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := fiber.Map{"products": result}
	if a, ok := middleware.ActorFrom(c); ok {
		favs, err := h.favorites.ProductIDs(c.UserContext(), a.UserID)
		if err != nil {
			return respondError(c, h.log, err)
		}
		resp["favorites"] = favs
	}
	return c.JSON(resp)
}

// HandleGetProduct returns one active product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.GetPublic(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(product)
}

// HandleListProducts lists every product including inactive ones. Query
// params: q, categoryId, stock (low|out), minQty, maxQty, sort.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	minQty, err := queryInt(c, "minQty")
	if err != nil {
		return respondError(c, h.log, err)
	}
	maxQty, err := queryInt(c, "maxQty")
	if err != nil {
		return respondError(c, h.log, err)
	}
	result, err := h.service.List(c.UserContext(), repositories.ProductFilter{
		Query:       c.Query("q"),
		CategoryID:  uint(c.QueryInt("categoryId")),
		Stock:       c.Query("stock"),
		MinQty:      minQty,
		MaxQty:      maxQty,
		Sort:        c.Query("sort"),
		PageRequest: pageRequest(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *ProductHandler) HandleGetProductAdmin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Create(c.UserContext(), in, actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUploadImage attaches the multipart file "image". Form field "main"
// makes it the main image.
func (h *ProductHandler) HandleUploadImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return respondError(c, h.log, &services.ValidationError{Field: "image", Message: "Choose an image to upload."})
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer f.Close()

	img, err := h.service.AddImage(c.UserContext(), id, fh.Filename, f, c.FormValue("main") == "true")
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(img)
}
