package repositories

import (
	"context"
	"errors"

	"bevera/internal/models"

	"gorm.io/gorm"
)

// FavoriteRepository defines the interface for favorite data access.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID string, productID uint) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Favorite, error)
	ProductIDs(ctx context.Context, userID string) ([]uint, error)
}

// GORMFavoriteRepository is a GORM implementation of FavoriteRepository.
type GORMFavoriteRepository struct {
	db *gorm.DB
}

// NewGORMFavoriteRepository creates a new instance of GORMFavoriteRepository.
func NewGORMFavoriteRepository(db *gorm.DB) *GORMFavoriteRepository {
	return &GORMFavoriteRepository{db: db}
}

// Toggle adds the favorite when absent and removes it otherwise. It reports
// whether the product is a favorite afterwards.
func (r *GORMFavoriteRepository) Toggle(ctx context.Context, userID string, productID uint) (bool, error) {
	db := r.db.WithContext(ctx)
	var existing models.Favorite
	err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&existing).Error
	switch {
	case err == nil:
		if err := db.Delete(&existing).Error; err != nil {
			return true, translate(err, "failed to remove favorite")
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		fav := models.Favorite{UserID: userID, ProductID: productID}
		if err := db.Create(&fav).Error; err != nil {
			return false, translate(err, "failed to add favorite")
		}
		return true, nil
	default:
		return false, translate(err, "failed to look up favorite")
	}
}

func (r *GORMFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]models.Favorite, error) {
	var favs []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Product.Images").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favs).Error
	if err != nil {
		return nil, translate(err, "failed to list favorites")
	}
	return favs, nil
}

func (r *GORMFavoriteRepository) ProductIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Pluck("product_id", &ids).Error
	return ids, translate(err, "failed to list favorite ids")
}
