package repositories

import (
	"context"
	"strings"
	"time"

	"bevera/internal/models"

	"gorm.io/gorm"
)

// CategoryFilter narrows the admin category listing.
type CategoryFilter struct {
	Query string
	From  *time.Time
	To    *time.Time
	PageRequest
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	List(ctx context.Context, filter CategoryFilter) (*Page[models.Category], error)
	Tree(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Roots(ctx context.Context, excludeID uint) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	Children(ctx context.Context, parentID uint, activeOnly bool) ([]models.Category, error)
	CountChildren(ctx context.Context, id uint) (int64, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	db *gorm.DB
}

// NewGORMCategoryRepository creates a new instance of GORMCategoryRepository.
func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{db: db}
}

func (r *GORMCategoryRepository) List(ctx context.Context, filter CategoryFilter) (*Page[models.Category], error) {
	q := r.db.WithContext(ctx).Model(&models.Category{}).Preload("ParentCategory")
	if s := strings.TrimSpace(filter.Query); s != "" {
		q = q.Where("name LIKE ?", "%"+s+"%")
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	page, err := paginate[models.Category](q.Order("created_at DESC").Order("id DESC"), filter.PageRequest)
	if err != nil {
		return nil, translate(err, "failed to list categories")
	}
	return page, nil
}

// Tree returns root categories with their subcategories preloaded.
func (r *GORMCategoryRepository) Tree(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	var roots []models.Category
	q := r.db.WithContext(ctx).Where("parent_category_id IS NULL")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	q = q.Preload("SubCategories", func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			db = db.Where("is_active = ?", true)
		}
		return db.Order("name")
	})
	if err := q.Order("name").Find(&roots).Error; err != nil {
		return nil, translate(err, "failed to load category tree")
	}
	return roots, nil
}

// Roots lists categories that may be chosen as a parent.
func (r *GORMCategoryRepository) Roots(ctx context.Context, excludeID uint) ([]models.Category, error) {
	var roots []models.Category
	q := r.db.WithContext(ctx).Where("parent_category_id IS NULL")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("name").Find(&roots).Error; err != nil {
		return nil, translate(err, "failed to list root categories")
	}
	return roots, nil
}

func (r *GORMCategoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "category %d", id)
	}
	return &c, nil
}

func (r *GORMCategoryRepository) Children(ctx context.Context, parentID uint, activeOnly bool) ([]models.Category, error) {
	var children []models.Category
	q := r.db.WithContext(ctx).Where("parent_category_id = ?", parentID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name").Find(&children).Error; err != nil {
		return nil, translate(err, "failed to list subcategories of %d", parentID)
	}
	return children, nil
}

func (r *GORMCategoryRepository) CountChildren(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("parent_category_id = ?", id).Count(&n).Error
	return n, translate(err, "failed to count subcategories of %d", id)
}

func (r *GORMCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(category).Error, "failed to create category")
}

// Update writes every column, including a nil parent.
func (r *GORMCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res := r.db.WithContext(ctx).Model(category).Select("name", "image_path", "is_active", "parent_category_id").Updates(category)
	if res.Error != nil {
		return translate(res.Error, "failed to update category %d", category.ID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "category %d", category.ID)
	}
	return nil
}

func (r *GORMCategoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return translate(res.Error, "failed to delete category %d", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "category %d", id)
	}
	return nil
}

func (r *GORMCategoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, translate(err, "failed to count categories")
}
