package models

import "math"

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "created_at"
	DefaultSortOrder = "desc"
)

// Pagination is bound from the page, limit, sort_by and sort_order query
// parameters.
type Pagination struct {
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	SortBy    string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// WithDefaults fills unset fields.
func (p Pagination) WithDefaults() Pagination {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	if p.SortOrder == "" {
		p.SortOrder = DefaultSortOrder
	}
	return p
}

// Skip is the number of rows before the requested page.
func (p Pagination) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// SortDirection maps SortOrder to a MongoDB sort value.
func (p Pagination) SortDirection() int {
	if p.SortOrder == "asc" {
		return 1
	}
	return -1
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta computes page metadata; TotalPages is ceil(total/limit).
func NewPageMeta(p Pagination, total int64) PageMeta {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return PageMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

type PagedResult[T any] struct {
	Meta PageMeta `json:"meta"`
	Data []T      `json:"data"`
}
