package services

import (
	"context"

	"bevera/internal/models"
	"bevera/internal/repositories"

	"github.com/shopspring/decimal"
)

// DashboardService aggregates the back-office counters.
type DashboardService struct {
	store    *repositories.Store
	fallback int
}

func NewDashboardService(store *repositories.Store, fallback int) *DashboardService {
	if fallback <= 0 {
		fallback = models.DefaultLowStockThreshold
	}
	return &DashboardService{store: store, fallback: fallback}
}

type AdminDashboard struct {
	Categories      int64           `json:"categories"`
	Products        int64           `json:"products"`
	Orders          int64           `json:"orders"`
	SubmittedOrders int64           `json:"submitted_orders"`
	DeliveredOrders int64           `json:"delivered_orders"`
	Users           int64           `json:"users"`
	LowStock        int64           `json:"low_stock"`
	Revenue         decimal.Decimal `json:"revenue"`
}

type WorkerDashboard struct {
	New             int64 `json:"new"`
	Preparing       int64 `json:"preparing"`
	ReadyForPickup  int64 `json:"ready_for_pickup"`
	LowStock        int64 `json:"low_stock"`
	AwaitingPayment int64 `json:"awaiting_payment"`
	Paid            int64 `json:"paid"`
}

// Admin returns catalog, order and revenue totals. Revenue counts paid
// orders that were not cancelled.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	var d AdminDashboard
	var err error
	if d.Categories, err = s.store.Categories.Count(ctx); err != nil {
		return nil, err
	}
	if d.Products, err = s.store.Products.Count(ctx); err != nil {
		return nil, err
	}
	if d.Orders, err = s.store.Orders.Count(ctx); err != nil {
		return nil, err
	}
	if d.SubmittedOrders, err = s.store.Orders.CountByStatus(ctx, models.OrderStatusSubmitted); err != nil {
		return nil, err
	}
	if d.DeliveredOrders, err = s.store.Orders.CountByStatus(ctx, models.OrderStatusDelivered); err != nil {
		return nil, err
	}
	if d.Users, err = s.store.Users.Count(ctx); err != nil {
		return nil, err
	}
	if d.LowStock, err = s.store.Products.CountLowStock(ctx, s.fallback); err != nil {
		return nil, err
	}
	if d.Revenue, err = s.store.Orders.Revenue(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DashboardService) Worker(ctx context.Context) (*WorkerDashboard, error) {
	var d WorkerDashboard
	var err error
	if d.New, err = s.store.Orders.CountByStatus(ctx, models.OrderStatusSubmitted); err != nil {
		return nil, err
	}
	if d.Preparing, err = s.store.Orders.CountByStatus(ctx, models.OrderStatusPreparing); err != nil {
		return nil, err
	}
	if d.ReadyForPickup, err = s.store.Orders.CountByStatus(ctx, models.OrderStatusReadyForPickup); err != nil {
		return nil, err
	}
	if d.LowStock, err = s.store.Products.CountLowStock(ctx, s.fallback); err != nil {
		return nil, err
	}
	if d.AwaitingPayment, err = s.store.Orders.CountByPayment(ctx, models.PaymentStatusUnpaid); err != nil {
		return nil, err
	}
	if d.Paid, err = s.store.Orders.CountByPayment(ctx, models.PaymentStatusPaid); err != nil {
		return nil, err
	}
	return &d, nil
}
