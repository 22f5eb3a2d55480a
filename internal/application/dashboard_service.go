package application

import (
	"context"
	"fmt"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/logging"
)

const (
	recentActivityLimit = 10
	dueSoonWindow       = 3 * 24 * time.Hour
	chartMonths         = 6
)

// DashboardService assembles the dashboard read model
type DashboardService struct {
	orderRepo domain.OrderRepository
	planRepo  domain.PlanRepository
	logger    *logging.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(orderRepo domain.OrderRepository, planRepo domain.PlanRepository, logger *logging.Logger) *DashboardService {
	return &DashboardService{
		orderRepo: orderRepo,
		planRepo:  planRepo,
		logger:    logger,
	}
}

// GetDashboard builds the dashboard as seen at now
func (s *DashboardService) GetDashboard(ctx context.Context, now time.Time) (*DashboardDTO, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count orders by status")
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	active, err := s.orderRepo.FindActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load active orders")
		return nil, fmt.Errorf("failed to load active orders: %w", err)
	}

	recent, err := s.orderRepo.FindRecentlyUpdated(ctx, recentActivityLimit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load recent orders")
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}

	from := monthStart(now).AddDate(0, -(chartMonths - 1), 0)
	monthly, err := s.orderRepo.FindAll(ctx, domain.OrderFilter{DateFrom: &from},
		domain.OrderSort{Field: domain.SortByOrderDate}, domain.Pagination{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to load orders for charts")
		return nil, fmt.Errorf("failed to load orders for charts: %w", err)
	}

	latest, err := s.planRepo.FindLatest(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest plan")
		return nil, fmt.Errorf("failed to load latest plan: %w", err)
	}

	production := productionSummary(latest)

	return &DashboardDTO{
		GeneratedAt:   now,
		Orders:        orderSummary(counts, active, now),
		Production:    production,
		Activities:    activities(recent),
		Notifications: notifications(production, active, now),
		Charts: DashboardChartsDTO{
			OrdersPerMonth: ordersPerMonth(monthly, now),
			UnitLoad:       unitLoadSeries(production.Units),
		},
	}, nil
}

func orderSummary(counts map[domain.Status]int64, active []*domain.Order, now time.Time) OrderSummaryDTO {
	summary := OrderSummaryDTO{ByStatus: make(map[string]int64, len(domain.AllStatuses))}
	for _, status := range domain.AllStatuses {
		n := counts[status]
		summary.ByStatus[string(status)] = n
		summary.Total += n
		if status.IsActive() {
			summary.Active += n
		}
	}
	summary.Delayed = counts[domain.StatusDelayed]

	weekEnd := now.Add(7 * 24 * time.Hour)
	for _, o := range active {
		if o.IsLate(now) {
			summary.Late++
			continue
		}
		if !o.DeliveryDate.IsZero() && o.DeliveryDate.Before(weekEnd) {
			summary.DueThisWeek++
		}
	}
	return summary
}

func productionSummary(latest *domain.PlanSnapshot) ProductionSummary {
	summary := ProductionSummary{Units: []planning.UnitLoad{}}
	if latest == nil {
		return summary
	}

	summary.PlanID = latest.PlanID
	if latest.Plan.CapacityLoad.Units != nil {
		summary.Units = latest.Plan.CapacityLoad.Units
	}
	var total float64
	for _, u := range summary.Units {
		total += u.Utilization
		if u.Overloaded {
			summary.OverloadedCount++
		}
	}
	if len(summary.Units) > 0 {
		summary.AverageUtil = total / float64(len(summary.Units))
	}
	return summary
}

func activities(recent []*domain.Order) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(recent))
	for _, o := range recent {
		activity := ActivityDTO{
			OrderID:    o.OrderID,
			OrderNo:    o.OrderNo,
			Customer:   o.CustomerInfo.Name,
			Status:     string(o.Status),
			StatusText: o.Status.DisplayText(),
			At:         o.UpdatedAt,
		}
		if change, ok := o.LastChange(); ok {
			activity.Message = fmt.Sprintf("%s siparişi %s → %s", o.OrderNo, change.From.DisplayText(), change.To.DisplayText())
			activity.At = change.ChangedAt
		} else {
			activity.Message = fmt.Sprintf("%s siparişi oluşturuldu", o.OrderNo)
		}
		out = append(out, activity)
	}
	return out
}

func notifications(production ProductionSummary, active []*domain.Order, now time.Time) []NotificationDTO {
	out := make([]NotificationDTO, 0)

	for _, u := range production.Units {
		if u.Overloaded {
			out = append(out, NotificationDTO{
				Type:     "capacity_overloaded",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("%s kapasitesi aşıldı: %.0f / %.0f saat", u.Name, u.LoadHours, u.Capacity),
				Ref:      u.UnitID,
			})
		}
	}

	for _, o := range active {
		switch {
		case o.Status == domain.StatusDelayed:
			out = append(out, NotificationDTO{
				Type:     "order_delayed",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s (%s) gecikmede", o.OrderNo, o.CustomerInfo.Name),
				Ref:      o.OrderID,
			})
		case !o.DeliveryDate.IsZero() && !o.DeliveryDate.Before(now) && o.DeliveryDate.Sub(now) <= dueSoonWindow:
			out = append(out, NotificationDTO{
				Type:     "delivery_due",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("%s teslim tarihi yaklaşıyor: %s", o.OrderNo, o.DeliveryDate.Format("02.01.2006")),
				Ref:      o.OrderID,
			})
		}
	}
	return out
}

func ordersPerMonth(orders []*domain.Order, now time.Time) []MonthCountDTO {
	first := monthStart(now).AddDate(0, -(chartMonths - 1), 0)
	series := make([]MonthCountDTO, chartMonths)
	index := make(map[string]int, chartMonths)
	for i := 0; i < chartMonths; i++ {
		key := first.AddDate(0, i, 0).Format("2006-01")
		series[i] = MonthCountDTO{Month: key}
		index[key] = i
	}
	for _, o := range orders {
		if i, ok := index[o.OrderDate.In(now.Location()).Format("2006-01")]; ok {
			series[i].Count++
		}
	}
	return series
}

func unitLoadSeries(units []planning.UnitLoad) []UnitLoadPoint {
	out := make([]UnitLoadPoint, 0, len(units))
	for _, u := range units {
		out = append(out, UnitLoadPoint{
			UnitID:    u.UnitID,
			Name:      u.Name,
			LoadHours: u.LoadHours,
			Capacity:  u.Capacity,
		})
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
