package domain

import (
	"context"
	"strings"
	"time"

	"github.com/mets-platform/mets/internal/planning"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Save persists an order (upsert) together with its pending events
	Save(ctx context.Context, order *Order) error

	// FindByID retrieves an order by its OrderID, nil when missing
	FindByID(ctx context.Context, orderID string) (*Order, error)

	// ExistsByOrderNo reports whether an order number is taken
	ExistsByOrderNo(ctx context.Context, orderNo string) (bool, error)

	// FindAll returns one page of the orders matching the filter
	FindAll(ctx context.Context, filter OrderFilter, sort OrderSort, pagination Pagination) ([]*Order, error)

	// Count returns the total number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// FindActive returns non-terminal orders in FIFO order
	// (orderDate ascending, then createdAt ascending)
	FindActive(ctx context.Context) ([]*Order, error)

	// FindRecentlyUpdated returns the most recently updated orders
	FindRecentlyUpdated(ctx context.Context, limit int64) ([]*Order, error)

	// CountByStatus returns the number of orders per status
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// DistinctCustomers returns the sorted customer names
	DistinctCustomers(ctx context.Context) ([]string, error)

	// DistinctCellTypes returns the sorted product type codes
	DistinctCellTypes(ctx context.Context) ([]string, error)

	// UpdateEstimatedDeliveries stores plan delivery estimates by order id
	UpdateEstimatedDeliveries(ctx context.Context, estimates map[string]time.Time) error
}

// ProductionUnitRepository defines the interface for production unit persistence
type ProductionUnitRepository interface {
	// FindAll returns every unit in configuration order
	FindAll(ctx context.Context) ([]*ProductionUnit, error)

	// FindByID retrieves a unit, nil when missing
	FindByID(ctx context.Context, unitID string) (*ProductionUnit, error)

	// Save persists a unit (upsert)
	Save(ctx context.Context, unit *ProductionUnit) error
}

// PlanRepository defines the interface for plan snapshot persistence
type PlanRepository interface {
	// Save persists a snapshot together with its pending events
	Save(ctx context.Context, plan *PlanSnapshot) error

	// FindLatest returns the most recent snapshot, nil when none exists
	FindLatest(ctx context.Context) (*PlanSnapshot, error)
}

// ParametersRepository stores the single planning parameter document
type ParametersRepository interface {
	// Get returns the stored parameters, nil when none were saved
	Get(ctx context.Context) (*planning.Parameters, error)

	// Save replaces the stored parameters
	Save(ctx context.Context, params planning.Parameters) error
}

// TechnicalDocumentRepository defines the interface for technical documents
type TechnicalDocumentRepository interface {
	FindAll(ctx context.Context) ([]*TechnicalDocument, error)
	Save(ctx context.Context, doc *TechnicalDocument) error
}

// Pagination represents pagination options. A zero PageSize means no limit.
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 10,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	if p.Page < 1 || p.PageSize == 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// Sortable order fields
const (
	SortByOrderDate    = "orderDate"
	SortByDeliveryDate = "deliveryDate"
	SortByOrderNo      = "orderNo"
	SortByCustomerName = "customerInfo.name"
	SortByStatus       = "status"
	SortByPriority     = "priority"
	SortByCreatedAt    = "createdAt"
)

// OrderSortFields lists the fields orders may be sorted by
var OrderSortFields = []string{
	SortByOrderDate,
	SortByDeliveryDate,
	SortByOrderNo,
	SortByCustomerName,
	SortByStatus,
	SortByPriority,
	SortByCreatedAt,
}

// OrderSort selects the order of a list query. Priority sorts by rank,
// so ascending lists high priority first.
type OrderSort struct {
	Field      string
	Descending bool
}

// DefaultOrderSort sorts newest orders first
func DefaultOrderSort() OrderSort {
	return OrderSort{Field: SortByOrderDate, Descending: true}
}

// OrderFilter represents filter options for querying orders
type OrderFilter struct {
	// Search is a case-insensitive substring of the order number or customer name
	Search       *string
	CellType     *string
	Status       *Status
	Priority     *Priority
	CustomerName *string
	// DateFrom and DateTo bound orderDate, both inclusive
	DateFrom *time.Time
	DateTo   *time.Time
	// ActiveOnly excludes completed and canceled orders
	ActiveOnly bool
}

// Matches applies the filter to a single order
func (f OrderFilter) Matches(o *Order) bool {
	if f.Search != nil && *f.Search != "" {
		term := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(o.OrderNo), term) &&
			!strings.Contains(strings.ToLower(o.CustomerInfo.Name), term) {
			return false
		}
	}
	if f.CellType != nil && *f.CellType != "" && !o.hasCellType(*f.CellType) {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.Priority != nil && o.Priority != *f.Priority {
		return false
	}
	if f.CustomerName != nil && *f.CustomerName != "" && o.CustomerInfo.Name != *f.CustomerName {
		return false
	}
	if f.DateFrom != nil && o.OrderDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.OrderDate.After(*f.DateTo) {
		return false
	}
	if f.ActiveOnly && !o.Status.IsActive() {
		return false
	}
	return true
}

func (o *Order) hasCellType(code string) bool {
	for _, cell := range o.Cells {
		if cell.ProductTypeCode == code {
			return true
		}
	}
	return false
}
