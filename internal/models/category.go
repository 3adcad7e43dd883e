package models

import "time"

// Category is a node of the two-level catalog tree.
type Category struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"size:120;not null"`
	ImagePath        string     `json:"image_path,omitempty" gorm:"size:300"`
	IsActive         bool       `json:"is_active" gorm:"not null"`
	ParentCategoryID *uint      `json:"parent_category_id,omitempty" gorm:"index"`
	ParentCategory   *Category  `json:"parent_category,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	SubCategories    []Category `json:"sub_categories,omitempty" gorm:"foreignKey:ParentCategoryID"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsRoot reports whether the category sits at the top level.
func (c *Category) IsRoot() bool { return c.ParentCategoryID == nil }
