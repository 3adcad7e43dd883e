package repositories

import (
	"context"
	"strings"

	"bevera/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock filters of the back-office listing.
const (
	StockFilterLow = "low"
	StockFilterOut = "out"
)

// productSorts maps a sort key onto its ORDER BY clauses. The empty key
// orders by name.
var productSorts = map[string][]string{
	"":           {"name", "id"},
	"name_asc":   {"name", "id"},
	"name_desc":  {"name DESC", "id"},
	"price_asc":  {"price", "name"},
	"price_desc": {"price DESC", "name"},
	"stock_asc":  {"stock_qty", "name"},
	"stock_desc": {"stock_qty DESC", "name"},
}

// ValidProductSort reports whether key is a known sort order.
func ValidProductSort(key string) bool {
	_, ok := productSorts[key]
	return ok
}

// ProductFilter narrows catalog listings. Stock is "", StockFilterLow or
// StockFilterOut; the low filter uses LowStockFallback for products
// without a threshold.
type ProductFilter struct {
	CategoryID        uint
	Query             string
	SearchDescription bool
	MinPrice          *decimal.Decimal
	MaxPrice          *decimal.Decimal
	OnlyAvailable     bool
	ActiveOnly        bool
	Stock             string
	LowStockFallback  int
	MinQty            *int
	MaxQty            *int
	Sort              string
	PageRequest
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) (*Page[models.Product], error)
	All(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetActiveByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	DecrementStock(ctx context.Context, id uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, id uint, qty int) error
	SetStock(ctx context.Context, id uint, qty int) error
	LowStock(ctx context.Context, fallback int) ([]models.Product, error)
	CountLowStock(ctx context.Context, fallback int) (int64, error)
	AddImage(ctx context.Context, image *models.ProductImage) error
	Count(ctx context.Context) (int64, error)
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) (*Page[models.Product], error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Images")
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + s + "%"
		if filter.SearchDescription {
			q = q.Where("name LIKE ? OR description LIKE ?", like, like)
		} else {
			q = q.Where("name LIKE ?", like)
		}
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.OnlyAvailable {
		q = q.Where("stock_qty > 0")
	}
	switch filter.Stock {
	case StockFilterLow:
		fallback := filter.LowStockFallback
		if fallback <= 0 {
			fallback = models.DefaultLowStockThreshold
		}
		q = q.Scopes(lowStockScope(fallback))
	case StockFilterOut:
		q = q.Where("stock_qty <= 0")
	}
	if filter.MinQty != nil {
		q = q.Where("stock_qty >= ?", *filter.MinQty)
	}
	if filter.MaxQty != nil {
		q = q.Where("stock_qty <= ?", *filter.MaxQty)
	}
	order, ok := productSorts[filter.Sort]
	if !ok {
		order = productSorts[""]
	}
	for _, clause := range order {
		q = q.Order(clause)
	}
	page, err := paginate[models.Product](q, filter.PageRequest)
	if err != nil {
		return nil, translate(err, "failed to list products")
	}
	return page, nil
}

func (r *GORMProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, translate(err, "failed to get all products")
	}
	return products, nil
}

// GetByID retrieves a single product with its images and category.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Category").
		First(&product, id).Error
	if err != nil {
		return nil, translate(err, "product %d", id)
	}
	return &product, nil
}

// GetActiveByIDs loads the active products among ids; missing or inactive
// ids are simply absent from the result.
func (r *GORMProductRepository) GetActiveByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("id IN ? AND is_active = ?", ids, true).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, translate(err, "failed to load products")
	}
	return products, nil
}

func (r *GORMProductRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, translate(err, "failed to count products of category %d", categoryID)
}

func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Omit("Images", "Category", "Brand").Create(product).Error, "failed to create product")
}

// Update writes catalog fields. Stock is owned by the ledger and is left
// untouched here.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).
		Select("name", "sku", "description", "price", "discount_percent", "discount_ends_at",
			"low_stock_threshold", "volume_liters", "alcohol_percent", "package_type",
			"is_active", "category_id", "brand_id").
		Updates(product)
	if res.Error != nil {
		return translate(res.Error, "failed to update product %d", product.ID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product %d", product.ID)
	}
	return nil
}

func (r *GORMProductRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Select("Images").Delete(&models.Product{ID: id})
	if res.Error != nil {
		return translate(res.Error, "failed to delete product %d", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product %d", id)
	}
	return nil
}

// DecrementStock removes qty units only if that many are available. It
// reports false, without error, when the row did not have enough stock.
func (r *GORMProductRepository) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_qty >= ?", id, qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if res.Error != nil {
		return false, translate(res.Error, "failed to decrement stock of product %d", id)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMProductRepository) IncrementStock(ctx context.Context, id uint, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", qty))
	if res.Error != nil {
		return translate(res.Error, "failed to increment stock of product %d", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product %d", id)
	}
	return nil
}

func (r *GORMProductRepository) SetStock(ctx context.Context, id uint, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock_qty", qty)
	if res.Error != nil {
		return translate(res.Error, "failed to set stock of product %d", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product %d", id)
	}
	return nil
}

func lowStockScope(fallback int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("stock_qty > 0 AND stock_qty <= CASE WHEN low_stock_threshold > 0 THEN low_stock_threshold ELSE ? END", fallback)
	}
}

// LowStock lists products with 0 < stock <= threshold.
func (r *GORMProductRepository) LowStock(ctx context.Context, fallback int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Scopes(lowStockScope(fallback)).Order("name").Find(&products).Error
	if err != nil {
		return nil, translate(err, "failed to list low stock products")
	}
	return products, nil
}

func (r *GORMProductRepository) CountLowStock(ctx context.Context, fallback int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Scopes(lowStockScope(fallback)).Count(&n).Error
	return n, translate(err, "failed to count low stock products")
}

// AddImage stores an image row; a main image demotes the previous one.
func (r *GORMProductRepository) AddImage(ctx context.Context, image *models.ProductImage) error {
	db := r.db.WithContext(ctx)
	if image.IsMain {
		err := db.Model(&models.ProductImage{}).
			Where("product_id = ? AND is_main = ?", image.ProductID, true).
			UpdateColumn("is_main", false).Error
		if err != nil {
			return translate(err, "failed to demote main image of product %d", image.ProductID)
		}
	}
	return translate(db.Create(image).Error, "failed to add image to product %d", image.ProductID)
}

func (r *GORMProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, translate(err, "failed to count products")
}
