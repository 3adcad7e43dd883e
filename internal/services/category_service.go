package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"

	"go.uber.org/zap"
)

// CategoryService keeps the catalog tree at most two levels deep.
type CategoryService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	log        *zap.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categories repositories.CategoryRepository, products repositories.ProductRepository, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, products: products, log: logger.OrNop(log)}
}

// ParentMode says what an update does with the parent of a category.
type ParentMode string

const (
	// ParentKeep leaves the current parent as it is.
	ParentKeep ParentMode = "keep"
	// ParentSet moves the category under ParentID.
	ParentSet ParentMode = "set"
)

// ParentChange is explicit so that an absent parent is never mistaken for
// "make this a root category". Promote is the only way to the top level.
type ParentChange struct {
	Mode     ParentMode `json:"mode"`
	ParentID uint       `json:"parent_id"`
}

type CategoryInput struct {
	Name      string       `json:"name"`
	ImagePath string       `json:"image_path"`
	IsActive  bool         `json:"is_active"`
	Parent    ParentChange `json:"parent"`
}

// CategoryView is what a shopper sees when opening a category: its
// subcategories when it has any, otherwise its products.
type CategoryView struct {
	Category      *models.Category                   `json:"category"`
	SubCategories []models.Category                  `json:"sub_categories,omitempty"`
	Products      *repositories.Page[models.Product] `json:"products,omitempty"`
}

func (in *CategoryInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	var errs ValidationErrors
	switch {
	case in.Name == "":
		errs.add("name", "Name is required.")
	case len(in.Name) > 100:
		errs.add("name", "Name must be at most 100 characters.")
	}
	switch in.Parent.Mode {
	case "", ParentKeep:
		in.Parent.Mode = ParentKeep
	case ParentSet:
		if in.Parent.ParentID == 0 {
			errs.add("parent_category_id", "Choose a parent category.")
		}
	default:
		errs.add("parent_category_id", fmt.Sprintf("Unknown parent mode %q.", in.Parent.Mode))
	}
	return errs.errOrNil()
}

// checkParent enforces the hierarchy rules for placing self under parentID.
// self is nil for a category that does not exist yet.
func (s *CategoryService) checkParent(ctx context.Context, self *models.Category, parentID uint) error {
	if self != nil && self.ID == parentID {
		return invalid("parent_category_id", "A category cannot be its own parent.")
	}
	parent, err := s.categories.GetByID(ctx, parentID)
	if errors.Is(err, ErrNotFound) {
		return invalid("parent_category_id", "Parent category does not exist.")
	}
	if err != nil {
		return err
	}
	if !parent.IsRoot() {
		return invalid("parent_category_id", "Only top-level categories can have subcategories.")
	}
	if self != nil {
		n, err := s.categories.CountChildren(ctx, self.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("parent_category_id", "A category with subcategories cannot become a subcategory.")
		}
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	c := &models.Category{Name: in.Name, ImagePath: in.ImagePath, IsActive: in.IsActive}
	if in.Parent.Mode == ParentSet {
		if err := s.checkParent(ctx, nil, in.Parent.ParentID); err != nil {
			return nil, err
		}
		parentID := in.Parent.ParentID
		c.ParentCategoryID = &parentID
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.Uint("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// Update edits a category. The parent moves only with ParentSet.
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Parent.Mode == ParentSet {
		if err := s.checkParent(ctx, c, in.Parent.ParentID); err != nil {
			return nil, err
		}
		parentID := in.Parent.ParentID
		c.ParentCategoryID = &parentID
	}
	c.Name = in.Name
	c.ImagePath = in.ImagePath
	c.IsActive = in.IsActive
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Promote turns a subcategory into a top-level category.
func (s *CategoryService) Promote(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsRoot() {
		return c, nil
	}
	c.ParentCategoryID = nil
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("category promoted", zap.Uint("category_id", id))
	return c, nil
}

// Delete refuses categories that still have subcategories or products.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return err
	}
	children, err := s.categories.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("%w: this category has subcategories, delete or move them first", ErrConstraintViolation)
	}
	products, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 {
		return fmt.Errorf("%w: this category still has products, delete or move them first", ErrConstraintViolation)
	}
	return s.categories.Delete(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, filter repositories.CategoryFilter) (*repositories.Page[models.Category], error) {
	return s.categories.List(ctx, filter)
}

func (s *CategoryService) Tree(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.categories.Tree(ctx, activeOnly)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ParentCandidates lists the categories id may be moved under.
func (s *CategoryService) ParentCandidates(ctx context.Context, id uint) ([]models.Category, error) {
	return s.categories.Roots(ctx, id)
}

// Browse opens an active category for shoppers.
func (s *CategoryService) Browse(ctx context.Context, id uint, filter repositories.ProductFilter) (*CategoryView, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}

	view := &CategoryView{Category: c}
	if c.IsRoot() {
		children, err := s.categories.Children(ctx, id, true)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			view.SubCategories = children
			return view, nil
		}
	}

	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, invalid("minPrice", "Minimum price cannot exceed maximum price.")
	}
	filter.CategoryID = id
	filter.ActiveOnly = true
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	view.Products = products
	return view, nil
}
