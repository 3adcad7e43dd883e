package database

import (
	"context"
	"errors"
	"fmt"

	"bevera/internal/config"
	"bevera/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SystemActor is recorded as the author of movements created by seeding.
const SystemActor = "system"

// Seed makes sure an admin account exists and, when requested, loads a small
// demo catalog. Opening stock goes through the ledger so it reconciles.
func Seed(ctx context.Context, db *gorm.DB, cfg config.SeedConfig, log *zap.Logger) error {
	if err := seedAdmin(ctx, db, cfg); err != nil {
		return err
	}
	if !cfg.Demo {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	return Transaction(ctx, db, func(tx *gorm.DB) error {
		drinks := models.Category{Name: "Drinks", IsActive: true}
		if err := tx.Create(&drinks).Error; err != nil {
			return fmt.Errorf("failed to seed category: %w", err)
		}
		soft := models.Category{Name: "Soft drinks", IsActive: true, ParentCategoryID: &drinks.ID}
		beer := models.Category{Name: "Beer", IsActive: true, ParentCategoryID: &drinks.ID}
		for _, c := range []*models.Category{&soft, &beer} {
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
			}
		}

		products := []models.Product{
			{Name: "Cola 0.5L", Price: decimal.RequireFromString("1.80"), StockQty: 48, LowStockThreshold: 12, VolumeLiters: decimal.RequireFromString("0.5"), PackageType: "Bottle", IsActive: true, CategoryID: soft.ID},
			{Name: "Lemonade 1.5L", Price: decimal.RequireFromString("2.60"), StockQty: 20, VolumeLiters: decimal.RequireFromString("1.5"), PackageType: "Bottle", IsActive: true, CategoryID: soft.ID},
			{Name: "Lager 0.33L", Price: decimal.RequireFromString("1.50"), StockQty: 6, LowStockThreshold: 8, VolumeLiters: decimal.RequireFromString("0.33"), AlcoholPercent: decimal.RequireFromString("4.8"), PackageType: "Can", IsActive: true, CategoryID: beer.ID},
		}
		for i := range products {
			p := &products[i]
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
			}
			if p.StockQty > 0 {
				m := models.InventoryMovement{
					ProductID:       p.ID,
					QuantityDelta:   p.StockQty,
					Type:            models.MovementAdjust,
					Note:            "Opening stock",
					CreatedByUserID: SystemActor,
				}
				if err := tx.Create(&m).Error; err != nil {
					return fmt.Errorf("failed to seed opening stock for %s: %w", p.Name, err)
				}
			}
			log.Info("seeded product", zap.String("name", p.Name), zap.Uint("id", p.ID))
		}
		return nil
	})
}

func seedAdmin(ctx context.Context, db *gorm.DB, cfg config.SeedConfig) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	var existing models.User
	err := db.WithContext(ctx).First(&existing, "email = ?", cfg.AdminEmail).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{
		ID:        uuid.New().String(),
		Email:     cfg.AdminEmail,
		FirstName: "Admin",
		Password:  string(hash),
		Role:      models.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
