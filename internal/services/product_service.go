package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImagePrefix is the public URL prefix of stored files. Only ImageDir is
// served under it.
const (
	ImagePrefix = "/uploads/"
	ImageDir    = "images"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// ProductService handles business logic related to products.
type ProductService struct {
	store            *repositories.Store
	files            storage.Storage
	lowStockFallback int
	log              *zap.Logger
}

// NewProductService creates a new ProductService. lowStockFallback is the
// threshold of products without one of their own.
func NewProductService(store *repositories.Store, files storage.Storage, lowStockFallback int, log *zap.Logger) *ProductService {
	return &ProductService{store: store, files: files, lowStockFallback: lowStockFallback, log: logger.OrNop(log)}
}

// ProductInput is the editable part of a product. InitialStock is only read
// on create; afterwards stock changes go through the inventory service.
type ProductInput struct {
	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	Description       string           `json:"description"`
	Price             decimal.Decimal  `json:"price"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent"`
	DiscountEndsAt    *time.Time       `json:"discount_ends_at"`
	InitialStock      int              `json:"initial_stock"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	VolumeLiters      decimal.Decimal  `json:"volume_liters"`
	AlcoholPercent    decimal.Decimal  `json:"alcohol_percent"`
	PackageType       string           `json:"package_type"`
	IsActive          bool             `json:"is_active"`
	CategoryID        uint             `json:"category_id"`
	BrandID           *uint            `json:"brand_id"`
}

func (s *ProductService) validate(ctx context.Context, in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	var errs ValidationErrors
	if in.Name == "" {
		errs.add("name", "Name is required.")
	}
	if in.Price.IsNegative() {
		errs.add("price", "Price must not be negative.")
	}
	if d := in.DiscountPercent; d != nil && (d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100))) {
		errs.add("discount_percent", "Discount must be between 0 and 100.")
	}
	if in.InitialStock < 0 {
		errs.add("initial_stock", "Stock must not be negative.")
	}
	if in.LowStockThreshold < 0 {
		errs.add("low_stock_threshold", "Threshold must not be negative.")
	}
	if in.CategoryID == 0 {
		errs.add("category_id", "Category is required.")
	} else if _, err := s.store.Categories.GetByID(ctx, in.CategoryID); errors.Is(err, ErrNotFound) {
		errs.add("category_id", "Category does not exist.")
	} else if err != nil {
		return err
	}
	return errs.errOrNil()
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = in.Name
	p.SKU = strings.TrimSpace(in.SKU)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.DiscountPercent = in.DiscountPercent
	p.DiscountEndsAt = in.DiscountEndsAt
	p.LowStockThreshold = in.LowStockThreshold
	p.VolumeLiters = in.VolumeLiters
	p.AlcoholPercent = in.AlcoholPercent
	p.PackageType = in.PackageType
	p.IsActive = in.IsActive
	p.CategoryID = in.CategoryID
	p.BrandID = in.BrandID
}

// Create adds a product; opening stock is written to the ledger alongside.
func (s *ProductService) Create(ctx context.Context, in ProductInput, actor Actor) (*models.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	p := &models.Product{StockQty: in.InitialStock}
	in.apply(p)

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Products.Create(ctx, p); err != nil {
			return err
		}
		if p.StockQty == 0 {
			return nil
		}
		return tx.Inventory.Append(ctx, &models.InventoryMovement{
			ProductID:       p.ID,
			QuantityDelta:   p.StockQty,
			Type:            models.MovementAdjust,
			Note:            "Initial stock",
			CreatedByUserID: actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.Uint("product_id", p.ID), zap.String("name", p.Name))
	return s.store.Products.GetByID(ctx, p.ID)
}

// Update edits catalog fields; stock is left alone.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.store.Products.GetByID(ctx, id)
}

// Delete removes a product that no order or stock movement refers to.
// Anything with history has to be deactivated instead so the ledger keeps
// its product.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Products.GetByID(ctx, id); err != nil {
			return err
		}
		ordered, err := tx.Orders.ExistsForProduct(ctx, id)
		if err != nil {
			return err
		}
		if ordered {
			return fmt.Errorf("%w: product %d appears on orders, deactivate it instead", ErrConstraintViolation, id)
		}
		moved, err := tx.Inventory.ExistsForProduct(ctx, id)
		if err != nil {
			return err
		}
		if moved {
			return fmt.Errorf("%w: product %d has stock movements, deactivate it instead", ErrConstraintViolation, id)
		}
		return tx.Products.Delete(ctx, id)
	})
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	return s.store.Products.GetByID(ctx, id)
}

// GetPublic hides inactive products from shoppers.
func (s *ProductService) GetPublic(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// List pages products. Unknown stock filters or sort keys and an inverted
// quantity range are validation errors.
func (s *ProductService) List(ctx context.Context, filter repositories.ProductFilter) (*repositories.Page[models.Product], error) {
	var errs ValidationErrors
	switch filter.Stock {
	case "", repositories.StockFilterLow, repositories.StockFilterOut:
	default:
		errs.add("stock", "Use low or out.")
	}
	if !repositories.ValidProductSort(filter.Sort) {
		errs.add("sort", fmt.Sprintf("Unknown sort %q.", filter.Sort))
	}
	if filter.MinQty != nil && filter.MaxQty != nil && *filter.MinQty > *filter.MaxQty {
		errs.add("maxQty", "Must not be below minQty.")
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if filter.LowStockFallback <= 0 {
		filter.LowStockFallback = s.lowStockFallback
	}
	return s.store.Products.List(ctx, filter)
}

// MinSearchLength is the shortest query Search will run.
const MinSearchLength = 2

// Search looks up active products by name or description. Queries shorter
// than MinSearchLength return an empty page.
func (s *ProductService) Search(ctx context.Context, query string, page repositories.PageRequest) (*repositories.Page[models.Product], error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		page = page.Normalize()
		return &repositories.Page[models.Product]{Items: []models.Product{}, Page: page.Page, PageSize: page.PageSize}, nil
	}
	return s.store.Products.List(ctx, repositories.ProductFilter{
		Query:             query,
		SearchDescription: true,
		ActiveOnly:        true,
		PageRequest:       page,
	})
}

// AddImage stores an uploaded picture and attaches it to the product.
func (s *ProductService) AddImage(ctx context.Context, productID uint, filename string, r io.Reader, main bool) (*models.ProductImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return nil, invalid("image", "Only jpg, png, webp or gif images are accepted.")
	}
	p, err := s.store.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	name, _, err := s.files.Save(ImageDir, ext, r)
	if err != nil {
		return nil, err
	}
	img := &models.ProductImage{
		ProductID: productID,
		ImagePath: ImagePrefix + name,
		IsMain:    main || len(p.Images) == 0,
	}
	if err := s.store.Products.AddImage(ctx, img); err != nil {
		if rmErr := s.files.Remove(name); rmErr != nil {
			s.log.Warn("failed to remove orphaned image", zap.String("file", name), zap.Error(rmErr))
		}
		return nil, err
	}
	return img, nil
}
