package pagination

import "strconv"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page     int
	PageSize int
}

// Parse reads page/limit query values. Missing or malformed values fall back
// to page 1 and the default size; sizes above MaxPageSize are clamped.
func Parse(page, limit string) Params {
	p := Params{Page: 1, PageSize: DefaultPageSize}
	if v, err := strconv.Atoi(page); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(limit); err == nil && v > 0 {
		p.PageSize = v
	}
	return p.Normalize()
}

// Normalize clamps the params into their valid range.
func (p Params) Normalize() Params {
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

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is the envelope every paginated endpoint returns.
type Page[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// NewPage builds the envelope, never encoding a nil slice as null.
func NewPage[T any](data []T, total int, p Params) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Total: total, Page: p.Page, PageSize: p.PageSize}
}
