package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/api"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/mets-platform/mets/pkg/logging"
)

// OrderQueryService handles read-only order queries
type OrderQueryService struct {
	orderRepo domain.OrderRepository
	logger    *logging.Logger
}

// NewOrderQueryService creates a new query service
func NewOrderQueryService(orderRepo domain.OrderRepository, logger *logging.Logger) *OrderQueryService {
	return &OrderQueryService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// ListOrders returns one page of orders. The default sort is orderDate
// descending and the default page size 10.
func (s *OrderQueryService) ListOrders(ctx context.Context, query ListOrdersQuery) (*api.PageResponse[OrderDTO], error) {
	filter, err := query.toFilter()
	if err != nil {
		return nil, err
	}

	sort := domain.DefaultOrderSort()
	if query.SortBy != "" {
		if !isSortField(query.SortBy) {
			return nil, errors.ErrValidation("unsupported sort field").WithDetail("sortBy", query.SortBy)
		}
		sort = domain.OrderSort{Field: query.SortBy, Descending: query.SortDesc}
	}

	page := api.PageRequest{Page: query.Page, PageSize: query.PageSize}.Normalize()
	pagination := domain.Pagination{Page: page.Page, PageSize: page.PageSize}

	orders, err := s.orderRepo.FindAll(ctx, filter, sort, pagination)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count orders")
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	result := api.NewPageResponse(ToOrderDTOs(orders), page.Page, page.PageSize, total)
	return &result, nil
}

// ListCustomers returns the distinct customer names, sorted
func (s *OrderQueryService) ListCustomers(ctx context.Context) ([]string, error) {
	customers, err := s.orderRepo.DistinctCustomers(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list customers")
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	if customers == nil {
		customers = []string{}
	}
	return customers, nil
}

// ListCellTypes returns the distinct cell product type codes, sorted
func (s *OrderQueryService) ListCellTypes(ctx context.Context) ([]string, error) {
	cellTypes, err := s.orderRepo.DistinctCellTypes(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list cell types")
		return nil, fmt.Errorf("failed to list cell types: %w", err)
	}
	if cellTypes == nil {
		cellTypes = []string{}
	}
	return cellTypes, nil
}

func (q ListOrdersQuery) toFilter() (domain.OrderFilter, error) {
	var filter domain.OrderFilter

	if search := strings.TrimSpace(q.Search); search != "" {
		filter.Search = &search
	}
	if cellType := strings.TrimSpace(q.CellType); cellType != "" {
		filter.CellType = &cellType
	}
	if name := strings.TrimSpace(q.CustomerName); name != "" {
		filter.CustomerName = &name
	}
	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return filter, errors.ErrValidation("invalid status filter").WithDetail("status", q.Status)
		}
		filter.Status = &status
	}
	if q.Priority != "" {
		priority := domain.Priority(strings.ToLower(q.Priority))
		if !priority.IsValid() {
			return filter, errors.ErrValidation("invalid priority filter").WithDetail("priority", q.Priority)
		}
		filter.Priority = &priority
	}

	filter.DateFrom = q.DateFrom
	if q.DateTo != nil {
		// dateTo is a calendar day; include all of it
		y, m, d := q.DateTo.Date()
		end := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), q.DateTo.Location())
		filter.DateTo = &end
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return filter, errors.ErrValidation("dateFrom must not be after dateTo")
	}

	return filter, nil
}

func isSortField(field string) bool {
	for _, f := range domain.OrderSortFields {
		if f == field {
			return true
		}
	}
	return false
}
