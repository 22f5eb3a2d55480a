package application

import (
	"context"
	"fmt"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
)

// Replanner requests a new plan after orders change. Implementations may
// run the plan inline or hand it to a workflow engine.
type Replanner interface {
	RequestReplan(ctx context.Context, trigger, triggerID string) error
}

// OrderApplicationService handles order-related use cases
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	numbers   *OrderNumberGenerator
	replanner Replanner
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewOrderApplicationService creates a new OrderApplicationService.
// replanner may be nil, in which case order changes do not trigger a replan.
func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	replanner Replanner,
	logger *logging.Logger,
	m *metrics.Metrics,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		numbers:   NewOrderNumberGenerator(orderRepo),
		replanner: replanner,
		logger:    logger,
		metrics:   m,
	}
}

// CreateOrder creates a new order and requests a replan
func (s *OrderApplicationService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	orderDate := time.Now().UTC()
	if cmd.OrderDate != nil {
		orderDate = *cmd.OrderDate
	}

	orderNo, err := s.numbers.Next(ctx, orderDate)
	if err != nil {
		s.logger.WithError(err).Error("Failed to allocate order number")
		return nil, toAppError(err)
	}

	orderID := domain.NewOrderID()
	order, err := domain.NewOrder(
		orderID,
		orderNo,
		cmd.ToDomainCustomer(),
		cmd.ToDomainTechnical(),
		cmd.ToDomainCells(),
		cmd.ToDomainPriority(),
		orderDate,
		cmd.DeliveryDate,
	)
	if err != nil {
		return nil, toAppError(err)
	}
	order.Notes = cmd.Notes

	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to save order", "orderId", orderID)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.metrics.RecordOrderCreated(string(order.Priority))
	s.logger.Event(ctx, domain.EventOrderCreated, map[string]any{
		"orderId":  orderID,
		"orderNo":  orderNo,
		"customer": order.CustomerInfo.Name,
		"quantity": order.Quantity(),
	})

	s.requestReplan(ctx, orderID)

	return ToOrderDTO(order), nil
}

// GetOrder retrieves an order by ID
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// UpdateOrderStatus moves an order to a new status. Aliases such as
// "production" are accepted.
func (s *OrderApplicationService) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (*OrderDTO, error) {
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, toAppError(err)
	}

	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if err := order.ChangeStatus(status, cmd.Reason); err != nil {
		return nil, toAppError(err)
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to save order", "orderId", cmd.OrderID)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.metrics.RecordOrderStatusChange(string(order.Status))
	s.logger.Audit(ctx, "status_changed", "order", order.OrderID, map[string]any{
		"from":   string(previous),
		"to":     string(order.Status),
		"reason": cmd.Reason,
	})

	s.requestReplan(ctx, order.OrderID)

	return ToOrderDTO(order), nil
}

// CancelOrder cancels an order with a reason
func (s *OrderApplicationService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*OrderDTO, error) {
	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(cmd.Reason); err != nil {
		return nil, toAppError(err)
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to save order", "orderId", cmd.OrderID)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.metrics.RecordOrderStatusChange(string(domain.StatusCanceled))
	s.logger.Audit(ctx, "canceled", "order", order.OrderID, map[string]any{"reason": cmd.Reason})

	s.requestReplan(ctx, order.OrderID)

	return ToOrderDTO(order), nil
}

func (s *OrderApplicationService) findOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get order", "orderId", orderID)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, errors.ErrNotFoundWithID("order", orderID)
	}
	return order, nil
}

// requestReplan is best effort: the order change is already stored.
func (s *OrderApplicationService) requestReplan(ctx context.Context, orderID string) {
	if s.replanner == nil {
		return
	}
	if err := s.replanner.RequestReplan(ctx, domain.TriggerOrderChange, orderID); err != nil {
		s.logger.WithError(err).Warn("Failed to request replan", "orderId", orderID)
	}
}
