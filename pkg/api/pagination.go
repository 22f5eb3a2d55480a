package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mets-platform/mets/pkg/errors"
)

// Pagination defaults for list endpoints
const (
	DefaultPage     int64 = 1
	DefaultPageSize int64 = 10
	MaxPageSize     int64 = 100
)

// PageRequest represents pagination request parameters
type PageRequest struct {
	Page     int64 `form:"page" json:"page"`
	PageSize int64 `form:"pageSize" json:"pageSize"`
}

// DefaultPageRequest returns a PageRequest with default values
func DefaultPageRequest() PageRequest {
	return PageRequest{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}
}

// Normalize clamps the page to >= 1 and the page size to 1..MaxPageSize.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset calculates the offset for database queries
func (p PageRequest) Offset() int64 {
	return (p.Page - 1) * p.PageSize
}

// PageResponse represents a paginated response
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse creates a new paginated response. Data is never nil so
// an empty page encodes as [].
func NewPageResponse[T any](data []T, page, pageSize, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := int64(1)
	if pageSize > 0 && totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ParsePagination parses pagination parameters from Gin context.
// Malformed numbers fall back to the defaults.
func ParsePagination(c *gin.Context) PageRequest {
	page, err := strconv.ParseInt(c.Query("page"), 10, 64)
	if err != nil {
		page = DefaultPage
	}
	pageSize, err := strconv.ParseInt(c.Query("pageSize"), 10, 64)
	if err != nil {
		pageSize = DefaultPageSize
	}

	return PageRequest{Page: page, PageSize: pageSize}.Normalize()
}

// SortOrder represents sort direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortRequest represents sorting parameters
type SortRequest struct {
	Field string    `form:"sortBy" json:"sortBy"`
	Order SortOrder `form:"sortOrder" json:"sortOrder"`
}

// MongoDirection returns the MongoDB sort value (1 for asc, -1 for desc)
func (s SortRequest) MongoDirection() int {
	if s.Order == SortAsc {
		return 1
	}
	return -1
}

// ParseSort parses sortBy/sortOrder from the query. Fields outside allowed
// are rejected so they never reach the database.
func ParseSort(c *gin.Context, allowed []string, defaultField string, defaultOrder SortOrder) (SortRequest, *errors.AppError) {
	sort := SortRequest{
		Field: c.DefaultQuery("sortBy", defaultField),
		Order: SortOrder(c.DefaultQuery("sortOrder", string(defaultOrder))),
	}

	if sort.Order != SortAsc && sort.Order != SortDesc {
		return sort, errors.ErrValidation("invalid sort order").WithDetail("sortOrder", "must be asc or desc")
	}
	for _, field := range allowed {
		if field == sort.Field {
			return sort, nil
		}
	}
	return sort, errors.ErrValidation("invalid sort field").WithDetail("sortBy", sort.Field)
}

// Date layouts accepted by ParseDateQuery
const (
	DateLayout = "2006-01-02"
)

// ParseDateQuery parses an optional date (YYYY-MM-DD or RFC 3339) query
// parameter. A missing parameter returns nil.
func ParseDateQuery(c *gin.Context, key string) (*time.Time, *errors.AppError) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.ErrValidation("invalid date").WithDetail(key, "expected YYYY-MM-DD or RFC 3339")
}
