package repositories

import (
	"context"
	"fmt"
	"strings"

	"bevera/internal/models"

	"gorm.io/gorm"
)

// UserFilter narrows the user administration listing.
type UserFilter struct {
	Query string
	Role  models.Role
	PageRequest
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) (*Page[models.User], error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "failed to create user")
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, "user with email %s", email)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user with ID %s", id)
	}
	return &user, nil
}

// List pages users by email. Query matches email, names and phone
// case-insensitively.
func (r *GORMUserRepository) List(ctx context.Context, filter UserFilter) (*Page[models.User], error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if s := strings.ToLower(strings.TrimSpace(filter.Query)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(phone) LIKE ?",
			like, like, like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	result, err := paginate[models.User](q.Order("email"), filter.PageRequest)
	if err != nil {
		return nil, translate(err, "failed to list users")
	}
	return result, nil
}

// UpdateProfile saves the editable contact fields of a user.
func (r *GORMUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(user).Select("first_name", "last_name", "phone").Updates(user)
	if res.Error != nil {
		return translate(res.Error, "failed to update user %s", user.ID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user with ID %s", user.ID)
	}
	return nil
}

func (r *GORMUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("role", role)
	if res.Error != nil {
		return translate(res.Error, "failed to update role of user %s", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user with ID %s", id)
	}
	return nil
}

func (r *GORMUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, translate(err, "failed to count users")
}

// Delete removes a user and their favorites. Users that placed orders or
// appear in the order history or stock ledger are kept.
func (r *GORMUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := []struct {
			model  any
			column string
		}{
			{&models.Order{}, "client_id"},
			{&models.OrderStatusHistory{}, "changed_by_user_id"},
			{&models.InventoryMovement{}, "created_by_user_id"},
		}
		for _, ref := range refs {
			var n int64
			if err := tx.Model(ref.model).Where(ref.column+" = ?", id).Count(&n).Error; err != nil {
				return translate(err, "failed to check references of user %s", id)
			}
			if n > 0 {
				return fmt.Errorf("user %s has order or stock history: %w", id, ErrConstraintViolation)
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return translate(err, "failed to delete favorites of user %s", id)
		}
		res := tx.Delete(&models.User{ID: id})
		if res.Error != nil {
			return translate(res.Error, "failed to delete user %s", id)
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "user with ID %s", id)
		}
		return nil
	})
}
