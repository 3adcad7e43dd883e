package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bevera/internal/cart"
	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/pkg/rabbitmq"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles checkout and the order workflow.
type OrderService struct {
	store  *repositories.Store
	carts  cart.Store
	events EventPublisher
	log    *zap.Logger
	now    Clock
}

// NewOrderService creates a new OrderService. events may be nil, in which
// case nothing is published.
func NewOrderService(store *repositories.Store, carts cart.Store, events EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		store:  store,
		carts:  carts,
		events: events,
		log:    logger.OrNop(log),
		now:    systemClock,
	}
}

// CardDetails are checked for format only; no payment gateway is involved.
type CardDetails struct {
	Holder   string `json:"holder"`
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// CheckoutRequest carries the contact and payment data of a checkout.
type CheckoutRequest struct {
	FullName      string               `json:"full_name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Address       string               `json:"address"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Card          *CardDetails         `json:"card,omitempty"`
}

// OrderEvent is the payload of every published order event.
type OrderEvent struct {
	OrderID       uint                 `json:"order_id"`
	ClientID      string               `json:"client_id"`
	Status        models.OrderStatus   `json:"status"`
	PreviousState models.OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal      `json:"total"`
	At            time.Time            `json:"at"`
}

// TransitionResult reports the order after an action and whether the action
// actually changed it.
type TransitionResult struct {
	Order   *models.Order `json:"order"`
	Changed bool          `json:"changed"`
}

var errStale = errors.New("order changed concurrently")

func (r CheckoutRequest) validate(now time.Time) (string, string, error) {
	var errs ValidationErrors
	if strings.TrimSpace(r.FullName) == "" {
		errs.add("full_name", "Full name is required.")
	}
	if !strings.Contains(r.Email, "@") {
		errs.add("email", "A valid email is required.")
	}
	if !r.PaymentMethod.Valid() {
		errs.add("payment_method", "Payment method must be card or cash.")
	}

	var holder, last4 string
	if r.PaymentMethod == models.PaymentMethodCard {
		if r.Card == nil {
			errs.add("card", "Card details are required for card payments.")
		} else {
			holder, last4 = validateCard(*r.Card, now, &errs)
		}
	}
	return holder, last4, errs.errOrNil()
}

// validateCard performs the simulated gateway checks and returns what may be
// stored: the holder and the last four digits.
func validateCard(c CardDetails, now time.Time, errs *ValidationErrors) (string, string) {
	holder := strings.TrimSpace(c.Holder)
	if holder == "" {
		errs.add("card.holder", "Card holder is required.")
	}
	number := strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	if len(number) != 16 || !allDigits(number) {
		errs.add("card.number", "Card number must have 16 digits.")
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		errs.add("card.exp_month", "Expiry month must be between 1 and 12.")
	}
	year := c.ExpYear
	if year < 100 {
		year += 2000
	}
	if year < now.Year() {
		errs.add("card.exp_year", "Card has expired.")
	}
	if n := len(c.CVC); n < 3 || n > 4 || !allDigits(c.CVC) {
		errs.add("card.cvc", "CVC must have 3 or 4 digits.")
	}
	if len(number) < 4 {
		return holder, ""
	}
	return holder, number[len(number)-4:]
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Checkout turns the session cart into a Submitted order. Every line is
// checked before anything is written, and the order, its items, the stock
// decrements, the sale movements and the first history row are committed
// together. The cart is cleared only after the commit.
func (s *OrderService) Checkout(ctx context.Context, clientID, sessionID string, req CheckoutRequest) (*models.Order, error) {
	now := s.now()
	holder, last4, err := req.validate(now)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(c) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		ClientID:      clientID,
		Status:        models.OrderStatusSubmitted,
		PaymentStatus: models.PaymentStatusUnpaid,
		PaymentMethod: req.PaymentMethod,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		ChangedAt:     now,
	}
	if req.PaymentMethod == models.PaymentMethodCard {
		order.PaymentStatus = models.PaymentStatusPaid
		order.PaidOn = &now
		order.CardHolder = holder
		order.CardLast4 = last4
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		ids := cart.ProductIDs(c)
		products, err := tx.Products.GetActiveByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		var shortages []StockShortage
		items := make([]models.OrderItem, 0, len(ids))
		total := decimal.Zero
		for _, id := range ids {
			qty := c[id]
			p, ok := byID[id]
			if !ok {
				shortages = append(shortages, StockShortage{ProductID: id, Requested: qty, Available: 0})
				continue
			}
			if p.StockQty < qty {
				shortages = append(shortages, StockShortage{ProductID: id, Name: p.Name, Requested: qty, Available: p.StockQty})
				continue
			}
			unit := p.EffectivePrice(now)
			line := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
			items = append(items, models.OrderItem{
				ProductID:   id,
				ProductName: p.Name,
				UnitPrice:   unit,
				Quantity:    qty,
				LineTotal:   line,
			})
			total = total.Add(line)
		}
		if len(shortages) > 0 {
			return &StockError{Lines: shortages}
		}

		order.Total = total.Round(2)
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Orders.CreateItems(ctx, items); err != nil {
			return err
		}

		for _, item := range items {
			ok, err := tx.Products.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				available := 0
				if p, err := tx.Products.GetByID(ctx, item.ProductID); err == nil {
					available = p.StockQty
				}
				return &StockError{Lines: []StockShortage{{
					ProductID: item.ProductID, Name: item.ProductName,
					Requested: item.Quantity, Available: available,
				}}}
			}
			if err := tx.Inventory.RecordSale(ctx, item.ProductID, item.Quantity, order.ID, clientID); err != nil {
				return err
			}
		}

		return tx.Orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:         order.ID,
			Status:          models.OrderStatusSubmitted,
			Note:            "Order submitted.",
			ChangedAt:       now,
			ChangedByUserID: clientID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order submitted",
		zap.Uint("order_id", order.ID),
		zap.String("client_id", clientID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("payment_status", string(order.PaymentStatus)))

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.log.Warn("failed to clear cart after checkout", zap.Uint("order_id", order.ID), zap.Error(err))
	}
	s.publish(ctx, rabbitmq.RoutingOrderCreated, order, "")

	return s.store.Orders.GetByID(ctx, order.ID)
}

// Transition applies a workflow action. An action that is not allowed from
// the current state leaves the order untouched and reports Changed=false.
func (s *OrderService) Transition(ctx context.Context, orderID uint, action models.OrderAction, actor Actor, note string) (*TransitionResult, error) {
	if !action.Valid() {
		return nil, invalid("action", fmt.Sprintf("Unknown action %q.", action))
	}
	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, action, actor, note)
}

// ConfirmReceived lets a client confirm delivery of one of their own orders.
func (s *OrderService) ConfirmReceived(ctx context.Context, orderID uint, actor Actor) (*TransitionResult, error) {
	order, err := s.store.Orders.GetForClient(ctx, orderID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, models.ActionMarkReceived, actor, "Received by customer.")
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, action models.OrderAction, actor Actor, note string) (*TransitionResult, error) {
	to, ok := order.Next(action)
	if !ok {
		s.log.Debug("transition ignored",
			zap.Uint("order_id", order.ID),
			zap.String("action", string(action)),
			zap.String("status", string(order.Status)))
		return &TransitionResult{Order: order, Changed: false}, nil
	}
	if strings.TrimSpace(note) == "" {
		note = action.DefaultNote()
	}

	from := order.Status
	now := s.now()
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		moved, err := tx.Orders.UpdateStatus(ctx, order.ID, from, to, now)
		if err != nil {
			return err
		}
		if !moved {
			return errStale
		}
		if err := tx.Orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:         order.ID,
			Status:          to,
			Note:            note,
			ChangedAt:       now,
			ChangedByUserID: actor.UserID,
		}); err != nil {
			return err
		}
		if action == models.ActionCancel {
			return restock(ctx, tx, order, actor)
		}
		return nil
	})
	if errors.Is(err, errStale) {
		current, err := s.store.Orders.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Order: current, Changed: false}, nil
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor.UserID))
	s.publish(ctx, rabbitmq.RoutingOrderStatusChanged, updated, from)
	return &TransitionResult{Order: updated, Changed: true}, nil
}

// restock returns the items of a cancelled order to stock through the ledger.
func restock(ctx context.Context, tx *repositories.Store, order *models.Order, actor Actor) error {
	for _, item := range order.Items {
		if err := tx.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		orderID := order.ID
		if err := tx.Inventory.Append(ctx, &models.InventoryMovement{
			ProductID:       item.ProductID,
			QuantityDelta:   item.Quantity,
			Type:            models.MovementAdjust,
			Note:            fmt.Sprintf("Order #%d cancelled", order.ID),
			CreatedByUserID: actor.UserID,
			OrderID:         &orderID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// MarkPaid records payment of an unpaid order and notes it in the history
// without moving the status. Paid or cancelled orders are returned unchanged.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uint, actor Actor) (*TransitionResult, error) {
	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusPaid || order.Status == models.OrderStatusCancelled {
		return &TransitionResult{Order: order, Changed: false}, nil
	}

	now := s.now()
	changed := false
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		ok, err := tx.Orders.MarkPaid(ctx, orderID, now)
		if err != nil || !ok {
			return err
		}
		changed = true
		return tx.Orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:         orderID,
			Status:          order.Status,
			Note:            "Payment received.",
			ChangedAt:       now,
			ChangedByUserID: actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("order paid", zap.Uint("order_id", orderID), zap.String("actor", actor.UserID))
		s.publish(ctx, rabbitmq.RoutingOrderPaid, updated, "")
	}
	return &TransitionResult{Order: updated, Changed: changed}, nil
}

// List returns orders for the back office.
func (s *OrderService) List(ctx context.Context, filter repositories.OrderFilter) (*repositories.Page[models.Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("Unknown status %q.", filter.Status))
	}
	return s.store.Orders.List(ctx, filter)
}

func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.store.Orders.GetByID(ctx, orderID)
}

// ListForClient returns the orders of one client.
func (s *OrderService) ListForClient(ctx context.Context, clientID string, page repositories.PageRequest) (*repositories.Page[models.Order], error) {
	return s.store.Orders.List(ctx, repositories.OrderFilter{ClientID: clientID, PageRequest: page})
}

// GetForClient hides orders of other clients behind ErrNotFound.
func (s *OrderService) GetForClient(ctx context.Context, orderID uint, clientID string) (*models.Order, error) {
	return s.store.Orders.GetForClient(ctx, orderID, clientID)
}

func (s *OrderService) publish(ctx context.Context, routingKey string, order *models.Order, previous models.OrderStatus) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		OrderID:       order.ID,
		ClientID:      order.ClientID,
		Status:        order.Status,
		PreviousState: previous,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		At:            s.now(),
	}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("routing_key", routingKey),
			zap.Uint("order_id", order.ID),
			zap.Error(err))
	}
}
