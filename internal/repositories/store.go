package repositories

import (
	"context"

	"bevera/internal/database"

	"gorm.io/gorm"
)

// Store bundles every repository over one connection or transaction.
type Store struct {
	db         *gorm.DB
	Categories CategoryRepository
	Products   ProductRepository
	Orders     OrderRepository
	Inventory  InventoryRepository
	Users      UserRepository
	Favorites  FavoriteRepository
}

// NewStore creates repositories bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Categories: NewGORMCategoryRepository(db),
		Products:   NewGORMProductRepository(db),
		Orders:     NewGORMOrderRepository(db),
		Inventory:  NewGORMInventoryRepository(db),
		Users:      NewGORMUserRepository(db),
		Favorites:  NewGORMFavoriteRepository(db),
	}
}

// Transaction runs fn with a Store whose repositories share one database
// transaction. Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return database.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
