package services

import (
	"context"
	"errors"
	"fmt"

	"bevera/internal/cart"
	"bevera/internal/logger"
	"bevera/internal/repositories"

	"go.uber.org/zap"
)

// CartService edits the session cart against live product availability.
type CartService struct {
	products repositories.ProductRepository
	carts    cart.Store
	log      *zap.Logger
	now      Clock
}

// NewCartService creates a new CartService.
func NewCartService(products repositories.ProductRepository, carts cart.Store, log *zap.Logger) *CartService {
	return &CartService{products: products, carts: carts, log: logger.OrNop(log), now: systemClock}
}

// LineChange is the outcome of adding or updating a cart line.
type LineChange struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
	Truncated bool `json:"truncated"`
	Count     int  `json:"count"`
}

// View prices the cart from current product data. Lines whose product was
// removed or deactivated are dropped from the stored cart.
func (s *CartService) View(ctx context.Context, sessionID string) (*cart.Summary, error) {
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	products, err := s.products.GetActiveByIDs(ctx, cart.ProductIDs(c))
	if err != nil {
		return nil, err
	}

	summary := cart.Price(c, products, s.now())
	if len(summary.Missing) > 0 {
		for _, id := range summary.Missing {
			cart.Remove(c, id)
		}
		if err := s.carts.Save(ctx, sessionID, c); err != nil {
			s.log.Warn("failed to drop unavailable cart lines", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return &summary, nil
}

func (s *CartService) Count(ctx context.Context, sessionID string) (int, error) {
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cart.Count(c), nil
}

// Add merges qty units of a product into the cart, never beyond its stock.
func (s *CartService) Add(ctx context.Context, sessionID string, productID uint, qty int) (*LineChange, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stored, truncated, err := cart.Add(c, productID, qty, p.StockQty)
	if errors.Is(err, cart.ErrUnavailable) {
		return nil, &StockError{Lines: []StockShortage{{ProductID: p.ID, Name: p.Name, Requested: qty, Available: 0}}}
	}
	if err := s.carts.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return &LineChange{ProductID: productID, Quantity: stored, Truncated: truncated, Count: cart.Count(c)}, nil
}

// Update sets the quantity of a line. Zero removes it, and so does a product
// that is gone or out of stock.
func (s *CartService) Update(ctx context.Context, sessionID string, productID uint, qty int) (*LineChange, error) {
	available := 0
	p, err := s.products.GetByID(ctx, productID)
	switch {
	case err == nil:
		if p.IsActive {
			available = p.StockQty
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stored, truncated := cart.Update(c, productID, qty, available)
	if err := s.carts.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return &LineChange{ProductID: productID, Quantity: stored, Truncated: truncated, Count: cart.Count(c)}, nil
}

func (s *CartService) Remove(ctx context.Context, sessionID string, productID uint) (int, error) {
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	cart.Remove(c, productID)
	if err := s.carts.Save(ctx, sessionID, c); err != nil {
		return 0, err
	}
	return cart.Count(c), nil
}
