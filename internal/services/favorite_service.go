package services

import (
	"context"

	"bevera/internal/models"
	"bevera/internal/repositories"
)

// FavoriteService keeps per-user favorite products.
type FavoriteService struct {
	favorites repositories.FavoriteRepository
	products  repositories.ProductRepository
}

func NewFavoriteService(favorites repositories.FavoriteRepository, products repositories.ProductRepository) *FavoriteService {
	return &FavoriteService{favorites: favorites, products: products}
}

// Toggle flips the favorite flag and reports the new state.
func (s *FavoriteService) Toggle(ctx context.Context, userID string, productID uint) (bool, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return false, err
	}
	return s.favorites.Toggle(ctx, userID, productID)
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	return s.favorites.ListByUser(ctx, userID)
}

// ProductIDs returns the favorite product ids as a set.
func (s *FavoriteService) ProductIDs(ctx context.Context, userID string) (map[uint]bool, error) {
	ids, err := s.favorites.ProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
