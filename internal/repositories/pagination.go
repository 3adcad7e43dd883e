package repositories

import "gorm.io/gorm"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is an offset/limit window; zero values select the first page.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to sane values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PageSize }

// Page is one window of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// paginate counts query and loads the requested window into a Page.
func paginate[T any](query *gorm.DB, req PageRequest) (*Page[T], error) {
	req = req.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0, req.PageSize)
	if err := query.Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	pages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return &Page[T]{
		Items:      items,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: pages,
	}, nil
}
