// Package memory holds process-local repositories used by the demo mode
// and by the application tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/infrastructure/events"
	"github.com/mets-platform/mets/pkg/outbox"
)

// OrderRepository implements domain.OrderRepository over a map. Stored
// orders are copies, so callers never share state with the store.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	outbox outbox.Repository
	mapper *events.Mapper
}

// NewOrderRepository creates an order store writing events to outboxRepo
func NewOrderRepository(outboxRepo outbox.Repository, mapper *events.Mapper) *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		outbox: outboxRepo,
		mapper: mapper,
	}
}

// Save stores the order and moves its pending events to the outbox
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pending := order.DomainEvents(); len(pending) > 0 {
		outboxEvents, err := r.mapper.ToOutboxEvents(ctx, order.OrderID, events.AggregateOrder, pending)
		if err != nil {
			return err
		}
		if err := r.outbox.SaveAll(ctx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	order.ClearDomainEvents()

	r.orders[order.OrderID] = cloneOrder(order)
	return nil
}

// FindByID retrieves an order, nil when missing
func (r *OrderRepository) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// ExistsByOrderNo reports whether an order number is taken
func (r *OrderRepository) ExistsByOrderNo(_ context.Context, orderNo string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			return true, nil
		}
	}
	return false, nil
}

// FindAll returns one page of the matching orders
func (r *OrderRepository) FindAll(_ context.Context, filter domain.OrderFilter, sort domain.OrderSort, pagination domain.Pagination) ([]*domain.Order, error) {
	matched := r.match(filter)
	slices.SortStableFunc(matched, func(a, b *domain.Order) int {
		c := compareField(a, b, sort.Field)
		if sort.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return compareFIFO(a, b)
	})

	skip := pagination.Skip()
	if skip >= int64(len(matched)) {
		return []*domain.Order{}, nil
	}
	matched = matched[skip:]
	if limit := pagination.Limit(); limit > 0 && limit < int64(len(matched)) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of matching orders
func (r *OrderRepository) Count(_ context.Context, filter domain.OrderFilter) (int64, error) {
	return int64(len(r.match(filter))), nil
}

// FindActive returns non-terminal orders, oldest order date first
func (r *OrderRepository) FindActive(_ context.Context) ([]*domain.Order, error) {
	active := r.match(domain.OrderFilter{ActiveOnly: true})
	slices.SortStableFunc(active, compareFIFO)
	return active, nil
}

// FindRecentlyUpdated returns the most recently updated orders
func (r *OrderRepository) FindRecentlyUpdated(_ context.Context, limit int64) ([]*domain.Order, error) {
	all := r.match(domain.OrderFilter{})
	slices.SortStableFunc(all, func(a, b *domain.Order) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.OrderID, b.OrderID)
	})
	if limit > 0 && limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

// CountByStatus returns the number of orders per status
func (r *OrderRepository) CountByStatus(_ context.Context) (map[domain.Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Status]int64)
	for _, o := range r.orders {
		counts[o.Status]++
	}
	return counts, nil
}

// DistinctCustomers returns the sorted customer names
func (r *OrderRepository) DistinctCustomers(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, o := range r.orders {
		seen[o.CustomerInfo.Name] = struct{}{}
	}
	return sortedKeys(seen), nil
}

// DistinctCellTypes returns the sorted product type codes
func (r *OrderRepository) DistinctCellTypes(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, o := range r.orders {
		for _, cell := range o.Cells {
			seen[cell.ProductTypeCode] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// UpdateEstimatedDeliveries stores plan estimates; unknown ids are skipped
func (r *OrderRepository) UpdateEstimatedDeliveries(_ context.Context, estimates map[string]time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, at := range estimates {
		if o, ok := r.orders[orderID]; ok {
			o.SetEstimatedDelivery(at)
		}
	}
	return nil
}

func (r *OrderRepository) match(filter domain.OrderFilter) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Matches(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func compareField(a, b *domain.Order, field string) int {
	switch field {
	case domain.SortByDeliveryDate:
		return a.DeliveryDate.Compare(b.DeliveryDate)
	case domain.SortByOrderNo:
		return cmp.Compare(a.OrderNo, b.OrderNo)
	case domain.SortByCustomerName:
		return cmp.Compare(a.CustomerInfo.Name, b.CustomerInfo.Name)
	case domain.SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case domain.SortByPriority:
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	case domain.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.OrderDate.Compare(b.OrderDate)
	}
}

// compareFIFO orders by order date, then creation time, then id
func compareFIFO(a, b *domain.Order) int {
	if c := a.OrderDate.Compare(b.OrderDate); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.OrderID, b.OrderID)
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Cells = make([]domain.Cell, len(o.Cells))
	for i, cell := range o.Cells {
		cell.SerialNumbers = append([]string(nil), cell.SerialNumbers...)
		c.Cells[i] = cell
	}
	c.StatusHistory = append([]domain.StatusChange(nil), o.StatusHistory...)
	if o.EstimatedDelivery != nil {
		at := *o.EstimatedDelivery
		c.EstimatedDelivery = &at
	}
	c.ClearDomainEvents()
	return &c
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
