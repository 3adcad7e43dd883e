package services

import (
	"context"
	"fmt"
	"strings"

	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"

	"go.uber.org/zap"
)

// MaxStockChange bounds a single restock or adjustment.
const MaxStockChange = 1_000_000

// InventoryService owns every stock change outside of checkout. Each change
// moves StockQty and appends the matching ledger entry in one transaction.
type InventoryService struct {
	store    *repositories.Store
	fallback int
	log      *zap.Logger
}

// NewInventoryService creates a new InventoryService. fallback is the
// low-stock threshold of products without one.
func NewInventoryService(store *repositories.Store, fallback int, log *zap.Logger) *InventoryService {
	if fallback <= 0 {
		fallback = models.DefaultLowStockThreshold
	}
	return &InventoryService{store: store, fallback: fallback, log: logger.OrNop(log)}
}

// ProductStock is a product with its classified stock level.
type ProductStock struct {
	models.Product
	Level     models.StockLevel `json:"stock_level"`
	Threshold int               `json:"threshold"`
}

// Discrepancy is a product whose stock counter disagrees with its ledger.
type Discrepancy struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	StockQty  int    `json:"stock_qty"`
	LedgerSum int    `json:"ledger_sum"`
}

// Difference is how far the counter is off from the ledger.
func (d Discrepancy) Difference() int { return d.StockQty - d.LedgerSum }

// Restock adds qty units and records a RESTOCK movement.
func (s *InventoryService) Restock(ctx context.Context, productID uint, qty int, actor Actor, note string) (*models.Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty > MaxStockChange {
		return nil, invalid("quantity", fmt.Sprintf("At most %d units per restock.", MaxStockChange))
	}
	if strings.TrimSpace(note) == "" {
		note = "Restock"
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Products.IncrementStock(ctx, productID, qty); err != nil {
			return err
		}
		return tx.Inventory.Append(ctx, &models.InventoryMovement{
			ProductID:       productID,
			QuantityDelta:   qty,
			Type:            models.MovementRestock,
			Note:            note,
			CreatedByUserID: actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("product restocked", zap.Uint("product_id", productID), zap.Int("qty", qty), zap.String("actor", actor.UserID))
	return s.store.Products.GetByID(ctx, productID)
}

// Adjust corrects stock by a signed delta. Stock never goes below zero.
func (s *InventoryService) Adjust(ctx context.Context, productID uint, delta int, actor Actor, note string) (*models.Product, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	// Checked before the decrement below negates delta.
	if delta > MaxStockChange || delta < -MaxStockChange {
		return nil, invalid("delta", fmt.Sprintf("At most %d units per adjustment.", MaxStockChange))
	}
	if strings.TrimSpace(note) == "" {
		return nil, invalid("note", "A reason is required for stock adjustments.")
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if delta > 0 {
			if err := tx.Products.IncrementStock(ctx, productID, delta); err != nil {
				return err
			}
		} else {
			ok, err := tx.Products.DecrementStock(ctx, productID, -delta)
			if err != nil {
				return err
			}
			if !ok {
				p, err := tx.Products.GetByID(ctx, productID)
				if err != nil {
					return err
				}
				return invalid("delta", fmt.Sprintf("Only %d units in stock.", p.StockQty))
			}
		}
		return tx.Inventory.Append(ctx, &models.InventoryMovement{
			ProductID:       productID,
			QuantityDelta:   delta,
			Type:            models.MovementAdjust,
			Note:            note,
			CreatedByUserID: actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted", zap.Uint("product_id", productID), zap.Int("delta", delta), zap.String("actor", actor.UserID))
	return s.store.Products.GetByID(ctx, productID)
}

// LowStock lists products with 0 < stock <= threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]ProductStock, error) {
	products, err := s.store.Products.LowStock(ctx, s.fallback)
	if err != nil {
		return nil, err
	}
	out := make([]ProductStock, len(products))
	for i, p := range products {
		out[i] = s.Classify(p)
	}
	return out, nil
}

// Classify attaches the stock level to p.
func (s *InventoryService) Classify(p models.Product) ProductStock {
	return ProductStock{Product: p, Level: p.StockLevel(s.fallback), Threshold: p.Threshold(s.fallback)}
}

// Movements pages through the ledger of one product, newest first.
func (s *InventoryService) Movements(ctx context.Context, productID uint, page repositories.PageRequest) (*repositories.Page[models.InventoryMovement], error) {
	if _, err := s.store.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Inventory.ListByProduct(ctx, productID, page)
}

// Reconcile returns every product whose StockQty differs from its ledger sum.
func (s *InventoryService) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	return reconcile(ctx, s.store)
}

func reconcile(ctx context.Context, store *repositories.Store) ([]Discrepancy, error) {
	products, err := store.Products.All(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := store.Inventory.Sums(ctx)
	if err != nil {
		return nil, err
	}
	out := []Discrepancy{}
	for _, p := range products {
		if sum := sums[p.ID]; sum != p.StockQty {
			out = append(out, Discrepancy{ProductID: p.ID, Name: p.Name, StockQty: p.StockQty, LedgerSum: sum})
		}
	}
	return out, nil
}

// ReconcileFix resets every drifted StockQty to its ledger sum. The ledger is
// the source of truth. It returns the discrepancies it corrected.
func (s *InventoryService) ReconcileFix(ctx context.Context, actor Actor) ([]Discrepancy, error) {
	var fixed []Discrepancy
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		found, err := reconcile(ctx, tx)
		if err != nil {
			return err
		}
		for _, d := range found {
			if err := tx.Products.SetStock(ctx, d.ProductID, d.LedgerSum); err != nil {
				return err
			}
			s.log.Warn("stock reset to ledger",
				zap.Uint("product_id", d.ProductID),
				zap.Int("stock_qty", d.StockQty),
				zap.Int("ledger_sum", d.LedgerSum),
				zap.String("actor", actor.UserID))
		}
		fixed = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fixed, nil
}
