package handlers

import (
	"fmt"
	"strconv"

	"bevera/internal/logger"
	"bevera/internal/middleware"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	invoices *services.InvoiceService
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, invoices *services.InvoiceService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, invoices: invoices, log: logger.OrNop(log)}
}

// staffActions maps URL segments onto workflow actions.
var staffActions = map[string]models.OrderAction{
	"start-preparing":  models.ActionStartPreparing,
	"ready-for-pickup": models.ActionMarkReadyForPickup,
	"ship":             models.ActionShip,
	"mark-received":    models.ActionMarkReceived,
	"cancel":           models.ActionCancel,
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, g Guards) {
	checkout := append(g.Roles(models.RoleClient), g.Session, h.HandleCheckout)
	router.Post("/checkout", checkout...)

	staff := router.Group("/orders", g.Staff()...)
	staff.Get("/", h.HandleGetOrders)
	staff.Get("/:id", h.HandleGetOrderByID)
	staff.Get("/:id/invoice", h.HandleInvoice)
	staff.Post("/:id/mark-paid", h.HandleMarkPaid)
	staff.Post("/:id/:action", h.HandleTransition)

	mine := router.Group("/me/orders", g.Auth)
	mine.Get("/", h.HandleGetMyOrders)
	mine.Get("/:id", h.HandleGetMyOrder)
	mine.Get("/:id/invoice", h.HandleMyInvoice)
	mine.Post("/:id/confirm-received", h.HandleConfirmReceived)
}

// CheckoutRequest is the checkout form.
type CheckoutRequest struct {
	FullName      string                `json:"full_name" validate:"required,max=120"`
	Email         string                `json:"email" validate:"required,email"`
	Phone         string                `json:"phone" validate:"max=30"`
	Address       string                `json:"address" validate:"max=300"`
	PaymentMethod string                `json:"payment_method" validate:"required,oneof=card cash"`
	Card          *services.CardDetails `json:"card"`
}

// HandleCheckout turns the session cart into an order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	order, err := h.service.Checkout(c.UserContext(), actor(c).UserID, middleware.CartSessionID(c), services.CheckoutRequest{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Card:          req.Card,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Location(fmt.Sprintf("/api/v1/me/orders/%d", order.ID))
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrders lists orders for the back office, newest change first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), repositories.OrderFilter{
		Status:      models.OrderStatus(c.Query("status")),
		Query:       c.Query("q"),
		PageRequest: pageRequest(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

// HandleGetOrderByID retrieves a single order with items and history.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	order, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(order)
}

type transitionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// HandleTransition applies a workflow action. An action that does not fit
// the current state answers 200 with changed=false.
func (h *OrderHandler) HandleTransition(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	action, ok := staffActions[c.Params("action")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Unknown order action %q", c.Params("action")),
		})
	}
	var req transitionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, h.log, err)
		}
	}

	res, err := h.service.Transition(c.UserContext(), id, action, actor(c), req.Note)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *OrderHandler) HandleMarkPaid(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.service.MarkPaid(c.UserContext(), id, actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *OrderHandler) HandleInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	order, err := h.invoices.Ensure(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.sendInvoice(c, order)
}

func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	page, err := h.service.ListForClient(c.UserContext(), actor(c).UserID, pageRequest(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *OrderHandler) HandleGetMyOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	order, err := h.service.GetForClient(c.UserContext(), id, actor(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandleMyInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	order, err := h.invoices.EnsureForClient(c.UserContext(), id, actor(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.sendInvoice(c, order)
}

// HandleConfirmReceived lets the client close a delivered order.
func (h *OrderHandler) HandleConfirmReceived(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.service.ConfirmReceived(c.UserContext(), id, actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *OrderHandler) sendInvoice(c *fiber.Ctx, order *models.Order) error {
	rc, err := h.invoices.Open(order)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, order.InvoiceContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(order.InvoiceFileName))
	return c.SendStream(rc, int(order.InvoiceFileSize))
}
