package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bevera/internal/cart"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"
	"bevera/pkg/rabbitmq"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db     *gorm.DB
	store  *repositories.Store
	carts  *cart.MemoryStore
	events *MockPublisher
	orders *services.OrderService
	client *models.User
	staff  services.Actor
	cat    *models.Category
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := newTestDB(t)
	store := repositories.NewStore(db)
	carts := cart.NewMemoryStore(time.Hour)
	events := new(MockPublisher)
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	orders := services.NewOrderService(store, carts, events, nil)
	orders.SetClock(tickingClock())

	admin := createUser(t, store, models.RoleAdmin)
	return &checkoutFixture{
		db:     db,
		store:  store,
		carts:  carts,
		events: events,
		orders: orders,
		client: createUser(t, store, models.RoleClient),
		staff:  services.Actor{UserID: admin.ID, Role: models.RoleAdmin},
		cat:    createCategory(t, store),
	}
}

func (f *checkoutFixture) fillCart(t *testing.T, session string, c cart.Cart) {
	t.Helper()
	require.NoError(t, f.carts.Save(context.Background(), session, c))
}

func cardRequest() services.CheckoutRequest {
	return services.CheckoutRequest{
		FullName:      "Ana Client",
		Email:         "ana@example.com",
		Address:       "Main street 1",
		PaymentMethod: models.PaymentMethodCard,
		Card: &services.CardDetails{
			Holder:   "Ana Client",
			Number:   "4242 4242 4242 4242",
			ExpMonth: 12,
			ExpYear:  2030,
			CVC:      "123",
		},
	}
}

func cashRequest() services.CheckoutRequest {
	return services.CheckoutRequest{FullName: "Ana Client", Email: "ana@example.com", PaymentMethod: models.PaymentMethodCash}
}

func TestCheckout_CardOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	pct := decimal.NewFromInt(10)
	cola := createProduct(t, f.store, f.cat.ID, "Cola", "3.00", 10)
	cola.DiscountPercent = &pct
	require.NoError(t, f.store.Products.Update(ctx, cola))
	water := createProduct(t, f.store, f.cat.ID, "Water", "0.99", 5)

	f.fillCart(t, "s1", cart.Cart{cola.ID: 3, water.ID: 2})

	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cardRequest())
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusSubmitted, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.NotNil(t, order.PaidOn)
	assert.Equal(t, "4242", order.CardLast4)
	assert.Equal(t, "Ana Client", order.CardHolder)
	// 3 x 2.70 + 2 x 0.99
	assert.True(t, decimal.RequireFromString("10.08").Equal(order.Total), order.Total.String())
	require.Len(t, order.Items, 2)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.OrderStatusSubmitted, order.StatusHistory[0].Status)

	assert.Equal(t, 7, stockOf(t, f.store, cola.ID))
	assert.Equal(t, 3, stockOf(t, f.store, water.ID))

	movements, err := f.store.Inventory.ListByProduct(ctx, cola.ID, repositories.PageRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, movements.Items)
	sale := movements.Items[0]
	assert.Equal(t, models.MovementOut, sale.Type)
	assert.Equal(t, -3, sale.QuantityDelta)
	require.NotNil(t, sale.OrderID)
	assert.Equal(t, order.ID, *sale.OrderID)

	c, err := f.carts.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, c)

	f.events.AssertCalled(t, "Publish", mock.Anything, rabbitmq.RoutingOrderCreated, mock.Anything)

	drift, err := services.NewInventoryService(f.store, 10, nil).Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestCheckout_CashOrderDropsCardFields(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Tonic", "1.20", 4)
	f.fillCart(t, "s1", cart.Cart{p.ID: 1})

	req := cashRequest()
	req.Card = &services.CardDetails{Holder: "Ignored", Number: "1111222233334444"}
	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", req)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Nil(t, order.PaidOn)
	assert.Empty(t, order.CardHolder)
	assert.Empty(t, order.CardLast4)
}

func TestCheckout_AggregatesEveryShortage(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	a := createProduct(t, f.store, f.cat.ID, "A", "1.00", 1)
	b := createProduct(t, f.store, f.cat.ID, "B", "1.00", 2)
	ok := createProduct(t, f.store, f.cat.ID, "C", "1.00", 9)
	gone := createProduct(t, f.store, f.cat.ID, "D", "1.00", 9)
	gone.IsActive = false
	require.NoError(t, f.store.Products.Update(ctx, gone))

	f.fillCart(t, "s1", cart.Cart{a.ID: 2, b.ID: 5, ok.ID: 1, gone.ID: 1})

	_, err := f.orders.Checkout(ctx, f.client.ID, "s1", cashRequest())
	require.ErrorIs(t, err, services.ErrInsufficientStock)

	var stockErr *services.StockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Lines, 3)
	assert.Equal(t, services.StockShortage{ProductID: a.ID, Name: "A", Requested: 2, Available: 1}, stockErr.Lines[0])
	assert.Equal(t, 2, stockErr.Lines[1].Available)
	assert.Equal(t, gone.ID, stockErr.Lines[2].ProductID)
	assert.Equal(t, 0, stockErr.Lines[2].Available)

	// Nothing was written and the cart is kept for the shopper to fix.
	n, err := f.store.Orders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, countRows(t, f.db, &models.OrderItem{}))
	assert.Zero(t, countRows(t, f.db, &models.OrderStatusHistory{}))
	// Only the four opening movements exist.
	assert.Equal(t, int64(4), countRows(t, f.db, &models.InventoryMovement{}))
	for _, p := range []*models.Product{a, b, ok, gone} {
		sum, err := f.store.Inventory.SumByProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, stockOf(t, f.store, p.ID), sum, p.Name)
	}
	assert.Equal(t, 9, stockOf(t, f.store, ok.ID))
	c, err := f.carts.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, c, 4)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.orders.Checkout(context.Background(), f.client.ID, "nobody", cashRequest())
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestCheckout_CardValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Tonic", "1.20", 4)
	f.fillCart(t, "s1", cart.Cart{p.ID: 1})

	req := cardRequest()
	req.Card.Number = "4242"
	req.Card.ExpMonth = 13
	req.Card.ExpYear = 2020
	req.Card.CVC = "12"

	_, err := f.orders.Checkout(context.Background(), f.client.ID, "s1", req)
	require.ErrorIs(t, err, services.ErrValidation)

	var verrs services.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.Fields()
	assert.Contains(t, fields, "card.number")
	assert.Contains(t, fields, "card.exp_month")
	assert.Contains(t, fields, "card.exp_year")
	assert.Contains(t, fields, "card.cvc")
	assert.Equal(t, 4, stockOf(t, f.store, p.ID))
}

func TestCheckout_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	carts := cart.NewMemoryStore(time.Hour)
	events := new(MockPublisher)
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	orders := services.NewOrderService(store, carts, events, nil)

	client := createUser(t, store, models.RoleClient)
	p := createProduct(t, store, createCategory(t, store).ID, "Tonic", "1.20", 4)
	require.NoError(t, carts.Save(ctx, "s1", cart.Cart{p.ID: 2}))

	order, err := orders.Checkout(ctx, client.ID, "s1", cashRequest())
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	events.AssertExpectations(t)
}

func TestTransition_FullSequence(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	f.fillCart(t, "s1", cart.Cart{p.ID: 2})

	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cashRequest())
	require.NoError(t, err)

	// Unpaid orders cannot start preparing.
	res, err := f.orders.Transition(ctx, order.ID, models.ActionStartPreparing, f.staff, "")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, models.OrderStatusSubmitted, res.Order.Status)

	paid, err := f.orders.MarkPaid(ctx, order.ID, f.staff)
	require.NoError(t, err)
	assert.True(t, paid.Changed)
	assert.NotNil(t, paid.Order.PaidOn)

	steps := []struct {
		action models.OrderAction
		want   models.OrderStatus
	}{
		{models.ActionStartPreparing, models.OrderStatusPreparing},
		{models.ActionMarkReadyForPickup, models.OrderStatusReadyForPickup},
		{models.ActionShip, models.OrderStatusDelivered},
	}
	for _, step := range steps {
		res, err := f.orders.Transition(ctx, order.ID, step.action, f.staff, "")
		require.NoError(t, err)
		require.True(t, res.Changed, step.action)
		assert.Equal(t, step.want, res.Order.Status)
	}

	res, err = f.orders.ConfirmReceived(ctx, order.ID, services.Actor{UserID: f.client.ID, Role: models.RoleClient})
	require.NoError(t, err)
	require.True(t, res.Changed)

	final := res.Order
	assert.Equal(t, models.OrderStatusReceived, final.Status)
	// Submitted, payment, then one row per hop.
	require.Len(t, final.StatusHistory, 6)
	last := final.StatusHistory[len(final.StatusHistory)-1]
	assert.Equal(t, models.OrderStatusReceived, last.Status)
	assert.Equal(t, f.client.ID, last.ChangedByUserID)
	assert.True(t, final.ChangedAt.Equal(last.ChangedAt))
}

func TestTransition_StaleActionIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	f.fillCart(t, "s1", cart.Cart{p.ID: 1})

	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cardRequest())
	require.NoError(t, err)

	for _, action := range []models.OrderAction{models.ActionShip, models.ActionMarkReceived, models.ActionMarkReadyForPickup} {
		res, err := f.orders.Transition(ctx, order.ID, action, f.staff, "")
		require.NoError(t, err)
		assert.False(t, res.Changed, action)
	}

	after, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSubmitted, after.Status)
	assert.True(t, order.ChangedAt.Equal(after.ChangedAt))
	assert.Len(t, after.StatusHistory, 1)
}

func TestTransition_UnknownActionAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	_, err := f.orders.Transition(ctx, 1, models.OrderAction("Teleport"), f.staff, "")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.orders.Transition(ctx, 404, models.ActionShip, f.staff, "")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCancel_RestoresStockThroughLedger(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	f.fillCart(t, "s1", cart.Cart{p.ID: 4})

	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cardRequest())
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, f.store, p.ID))

	res, err := f.orders.Transition(ctx, order.ID, models.ActionCancel, f.staff, "Customer called")
	require.NoError(t, err)
	require.True(t, res.Changed)
	assert.Equal(t, models.OrderStatusCancelled, res.Order.Status)
	assert.Equal(t, "Customer called", res.Order.StatusHistory[1].Note)
	assert.Equal(t, 10, stockOf(t, f.store, p.ID))

	drift, err := services.NewInventoryService(f.store, 10, nil).Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	// A cancelled order cannot be cancelled again.
	again, err := f.orders.Transition(ctx, order.ID, models.ActionCancel, f.staff, "")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 10, stockOf(t, f.store, p.ID))

	revenue, err := f.store.Orders.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())
}

func TestConfirmReceived_OtherClientsOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	f.fillCart(t, "s1", cart.Cart{p.ID: 1})
	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cardRequest())
	require.NoError(t, err)

	stranger := createUser(t, f.store, models.RoleClient)
	_, err = f.orders.ConfirmReceived(ctx, order.ID, services.Actor{UserID: stranger.ID, Role: models.RoleClient})
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.orders.GetForClient(ctx, order.ID, stranger.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	f.fillCart(t, "s1", cart.Cart{p.ID: 1})
	order, err := f.orders.Checkout(ctx, f.client.ID, "s1", cashRequest())
	require.NoError(t, err)

	first, err := f.orders.MarkPaid(ctx, order.ID, f.staff)
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := f.orders.MarkPaid(ctx, order.ID, f.staff)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.True(t, first.Order.PaidOn.Equal(*second.Order.PaidOn))
	require.Len(t, second.Order.StatusHistory, 2)
	assert.Equal(t, models.OrderStatusSubmitted, second.Order.StatusHistory[1].Status)
	assert.Equal(t, "Payment received.", second.Order.StatusHistory[1].Note)
}

func TestOrderService_ListForClient(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := createProduct(t, f.store, f.cat.ID, "Lager", "1.50", 10)
	for i := 0; i < 2; i++ {
		f.fillCart(t, "s1", cart.Cart{p.ID: 1})
		_, err := f.orders.Checkout(ctx, f.client.ID, "s1", cashRequest())
		require.NoError(t, err)
	}

	page, err := f.orders.ListForClient(ctx, f.client.ID, repositories.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)

	_, err = f.orders.List(ctx, repositories.OrderFilter{Status: "Lost"})
	assert.ErrorIs(t, err, services.ErrValidation)
}
