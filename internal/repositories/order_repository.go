package repositories

import (
	"context"
	"strings"
	"time"

	"bevera/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderFilter narrows the back-office order listing.
type OrderFilter struct {
	Status   models.OrderStatus
	ClientID string
	Query    string
	PageRequest
}

// InvoiceMeta describes a generated invoice file.
type InvoiceMeta struct {
	FileName       string
	StoredFileName string
	ContentType    string
	Size           int64
	CreatedAt      time.Time
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetForClient(ctx context.Context, id uint, clientID string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) (*Page[models.Order], error)
	UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus, at time.Time) (bool, error)
	MarkPaid(ctx context.Context, id uint, at time.Time) (bool, error)
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	SetInvoice(ctx context.Context, id uint, meta InvoiceMeta) (bool, error)
	CountByStatus(ctx context.Context, status models.OrderStatus) (int64, error)
	CountByPayment(ctx context.Context, status models.PaymentStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	ExistsForProduct(ctx context.Context, productID uint) (bool, error)
}

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order row only; items are written by CreateItems.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Omit("Items", "StatusHistory", "Client").Create(order).Error
	return translate(err, "failed to create order")
}

func (r *GORMOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&items).Error, "failed to create order items")
}

func (r *GORMOrderRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at").Order("id") })
}

// GetByID returns the order with items, history and client.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(ctx).First(&order, id).Error; err != nil {
		return nil, translate(err, "order %d", id)
	}
	return &order, nil
}

// GetForClient returns the order only when it belongs to clientID.
func (r *GORMOrderRepository) GetForClient(ctx context.Context, id uint, clientID string) (*models.Order, error) {
	var order models.Order
	err := r.withDetails(ctx).Where("client_id = ?", clientID).First(&order, id).Error
	if err != nil {
		return nil, translate(err, "order %d", id)
	}
	return &order, nil
}

// List returns orders newest change first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) (*Page[models.Order], error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Client")
	if filter.Status != "" {
		q = q.Where("orders.status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		q = q.Where("orders.client_id = ?", filter.ClientID)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where(
			"CAST(orders.id AS TEXT) LIKE ? OR orders.email LIKE ? OR orders.full_name LIKE ? OR orders.client_id IN (?)",
			like, like, like,
			r.db.Model(&models.User{}).Select("id").Where("email LIKE ? OR first_name || ' ' || last_name LIKE ?", like, like),
		)
	}
	page, err := paginate[models.Order](q.Order("orders.changed_at DESC").Order("orders.id DESC"), filter.PageRequest)
	if err != nil {
		return nil, translate(err, "failed to list orders")
	}
	return page, nil
}

// UpdateStatus moves the order from one status to another. It reports false
// when the order was no longer in the expected source status.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]any{"status": to, "changed_at": at})
	if res.Error != nil {
		return false, translate(res.Error, "failed to update status of order %d", id)
	}
	return res.RowsAffected == 1, nil
}

// MarkPaid flips an unpaid order to paid; false means it was already paid.
func (r *GORMOrderRepository) MarkPaid(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusUnpaid).
		UpdateColumns(map[string]any{
			"payment_status": models.PaymentStatusPaid,
			"paid_on":        at,
			"changed_at":     at,
		})
	if res.Error != nil {
		return false, translate(res.Error, "failed to mark order %d paid", id)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMOrderRepository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "failed to append history to order %d", entry.OrderID)
}

// SetInvoice records invoice metadata once; false means metadata already existed.
func (r *GORMOrderRepository) SetInvoice(ctx context.Context, id uint, meta InvoiceMeta) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND (invoice_stored_file_name IS NULL OR invoice_stored_file_name = '')", id).
		UpdateColumns(map[string]any{
			"invoice_file_name":        meta.FileName,
			"invoice_stored_file_name": meta.StoredFileName,
			"invoice_content_type":     meta.ContentType,
			"invoice_file_size":        meta.Size,
			"invoice_created_at":       meta.CreatedAt,
		})
	if res.Error != nil {
		return false, translate(res.Error, "failed to store invoice of order %d", id)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMOrderRepository) CountByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status).Count(&n).Error
	return n, translate(err, "failed to count %s orders", status)
}

func (r *GORMOrderRepository) CountByPayment(ctx context.Context, status models.PaymentStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("payment_status = ?", status).Count(&n).Error
	return n, translate(err, "failed to count %s orders", status)
}

func (r *GORMOrderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, translate(err, "failed to count orders")
}

// Revenue sums the totals of paid orders that were not cancelled.
func (r *GORMOrderRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("SUM(total)").
		Where("payment_status = ? AND status <> ?", models.PaymentStatusPaid, models.OrderStatusCancelled).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, translate(err, "failed to sum revenue")
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

func (r *GORMOrderRepository) ExistsForProduct(ctx context.Context, productID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("product_id = ?", productID).Limit(1).Count(&n).Error
	return n > 0, translate(err, "failed to check orders of product %d", productID)
}
