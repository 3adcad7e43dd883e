package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bevera/internal/config"
	"bevera/internal/database"
	"bevera/internal/models"
	"bevera/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	return repositories.NewStore(newTestDB(t))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// countRows counts every row of model's table.
func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// tickingClock starts at testNow and moves one minute per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := testNow
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func createUser(t *testing.T, store *repositories.Store, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     role,
	}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

func createCategory(t *testing.T, store *repositories.Store) *models.Category {
	t.Helper()
	c := &models.Category{Name: "Drinks " + uuid.NewString()[:6], IsActive: true}
	require.NoError(t, store.Categories.Create(context.Background(), c))
	return c
}

// createProduct inserts an active product whose stock is backed by an
// opening ADJUST movement.
func createProduct(t *testing.T, store *repositories.Store, categoryID uint, name, price string, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	p := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		StockQty:   stock,
		IsActive:   true,
		CategoryID: categoryID,
	}
	require.NoError(t, store.Products.Create(ctx, p))
	if stock > 0 {
		require.NoError(t, store.Inventory.Append(ctx, &models.InventoryMovement{
			ProductID:       p.ID,
			QuantityDelta:   stock,
			Type:            models.MovementAdjust,
			Note:            "Opening stock",
			CreatedByUserID: "test",
		}))
	}
	return p
}

func stockOf(t *testing.T, store *repositories.Store, id uint) int {
	t.Helper()
	p, err := store.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQty
}
