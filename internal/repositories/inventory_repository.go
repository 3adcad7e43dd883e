package repositories

import (
	"context"
	"fmt"

	"bevera/internal/models"

	"gorm.io/gorm"
)

// InventoryRepository is the append-only stock ledger. It never updates or
// deletes a movement.
type InventoryRepository interface {
	Append(ctx context.Context, movement *models.InventoryMovement) error
	RecordSale(ctx context.Context, productID uint, qty int, orderID uint, actorID string) error
	ListByProduct(ctx context.Context, productID uint, page PageRequest) (*Page[models.InventoryMovement], error)
	SumByProduct(ctx context.Context, productID uint) (int, error)
	Sums(ctx context.Context) (map[uint]int, error)
	ExistsForProduct(ctx context.Context, productID uint) (bool, error)
}

// GORMInventoryRepository is a GORM implementation of InventoryRepository.
type GORMInventoryRepository struct {
	db *gorm.DB
}

// NewGORMInventoryRepository creates a new instance of GORMInventoryRepository.
func NewGORMInventoryRepository(db *gorm.DB) *GORMInventoryRepository {
	return &GORMInventoryRepository{db: db}
}

func (r *GORMInventoryRepository) Append(ctx context.Context, movement *models.InventoryMovement) error {
	return translate(r.db.WithContext(ctx).Create(movement).Error, "failed to append movement for product %d", movement.ProductID)
}

// RecordSale appends an OUT movement tied to the order that caused it.
func (r *GORMInventoryRepository) RecordSale(ctx context.Context, productID uint, qty int, orderID uint, actorID string) error {
	if orderID == 0 {
		return fmt.Errorf("sale of product %d must reference an order", productID)
	}
	if qty <= 0 {
		return fmt.Errorf("sale of product %d must have a positive quantity", productID)
	}
	return r.Append(ctx, &models.InventoryMovement{
		ProductID:       productID,
		QuantityDelta:   -qty,
		Type:            models.MovementOut,
		Note:            fmt.Sprintf("Order #%d checkout", orderID),
		CreatedByUserID: actorID,
		OrderID:         &orderID,
	})
}

func (r *GORMInventoryRepository) ListByProduct(ctx context.Context, productID uint, page PageRequest) (*Page[models.InventoryMovement], error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC")
	result, err := paginate[models.InventoryMovement](q, page)
	if err != nil {
		return nil, translate(err, "failed to list movements of product %d", productID)
	}
	return result, nil
}

// SumByProduct returns the stock the ledger says the product should have.
func (r *GORMInventoryRepository) SumByProduct(ctx context.Context, productID uint) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Where("product_id = ?", productID).
		Row().Scan(&sum)
	if err != nil {
		return 0, translate(err, "failed to sum ledger of product %d", productID)
	}
	return sum, nil
}

// Sums returns the ledger sum of every product that has movements.
func (r *GORMInventoryRepository) Sums(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Total     int
	}
	err := r.db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Select("product_id, SUM(quantity_delta) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "failed to sum ledger")
	}
	sums := make(map[uint]int, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Total
	}
	return sums, nil
}

// ExistsForProduct reports whether the ledger holds any movement of the product.
func (r *GORMInventoryRepository) ExistsForProduct(ctx context.Context, productID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Where("product_id = ?", productID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "failed to check ledger of product %d", productID)
	}
	return n > 0, nil
}
