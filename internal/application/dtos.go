package application

import (
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
)

// OrderDTO represents an order in API responses
type OrderDTO struct {
	OrderID           string               `json:"orderId"`
	OrderNo           string               `json:"orderNo"`
	OrderDate         time.Time            `json:"orderDate"`
	DeliveryDate      *time.Time           `json:"deliveryDate,omitempty"`
	EstimatedDelivery *time.Time           `json:"estimatedDelivery,omitempty"`
	Status            string               `json:"status"`
	StatusText        string               `json:"statusText"`
	Priority          string               `json:"priority"`
	CustomerInfo      domain.CustomerInfo  `json:"customerInfo"`
	TechnicalInfo     domain.TechnicalInfo `json:"technicalInfo"`
	Cells             []CellDTO            `json:"cells"`
	CellType          string               `json:"cellType"`
	Quantity          int                  `json:"quantity"`
	Notes             string               `json:"notes,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// CellDTO represents one ordered cell type
type CellDTO struct {
	ProductTypeCode string   `json:"productTypeCode"`
	Quantity        int      `json:"quantity"`
	SerialNumbers   []string `json:"serialNumbers"`
}

// PlanDTO represents a stored plan
type PlanDTO struct {
	PlanID          string        `json:"planId"`
	OrderCount      int           `json:"orderCount"`
	OverloadedUnits []string      `json:"overloadedUnits"`
	Trigger         string        `json:"trigger"`
	CreatedAt       time.Time     `json:"createdAt"`
	Plan            planning.Plan `json:"plan"`
}

// CapacityDTO represents the capacity load of the latest plan
type CapacityDTO struct {
	PlanID      string              `json:"planId"`
	GeneratedAt time.Time           `json:"generatedAt"`
	WindowStart time.Time           `json:"windowStart"`
	WindowEnd   time.Time           `json:"windowEnd"`
	Units       []planning.UnitLoad `json:"units"`
	Overloaded  int                 `json:"overloadedCount"`
}

// DeliveryEstimateDTO represents the planned completion of one order
type DeliveryEstimateDTO struct {
	OrderID           string                  `json:"orderId"`
	PlanID            string                  `json:"planId"`
	EstimatedDelivery time.Time               `json:"estimatedDelivery"`
	Task              *planning.ScheduledTask `json:"task,omitempty"`
}

// ProductionUnitDTO represents a production unit
type ProductionUnitDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Capacity  float64    `json:"capacity"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DashboardDTO is the read model behind the dashboard screen
type DashboardDTO struct {
	GeneratedAt   time.Time          `json:"generatedAt"`
	Orders        OrderSummaryDTO    `json:"orders"`
	Production    ProductionSummary  `json:"production"`
	Activities    []ActivityDTO      `json:"recentActivities"`
	Notifications []NotificationDTO  `json:"notifications"`
	Charts        DashboardChartsDTO `json:"charts"`
}

// OrderSummaryDTO counts orders
type OrderSummaryDTO struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"byStatus"`
	Active      int64            `json:"active"`
	Delayed     int64            `json:"delayed"`
	Late        int64            `json:"late"`
	DueThisWeek int64            `json:"dueThisWeek"`
}

// ProductionSummary reports unit load from the latest plan
type ProductionSummary struct {
	PlanID          string              `json:"planId,omitempty"`
	Units           []planning.UnitLoad `json:"units"`
	OverloadedCount int                 `json:"overloadedCount"`
	AverageUtil     float64             `json:"averageUtilization"`
}

// ActivityDTO is one entry of the recent activity feed
type ActivityDTO struct {
	OrderID    string    `json:"orderId"`
	OrderNo    string    `json:"orderNo"`
	Customer   string    `json:"customer"`
	Status     string    `json:"status"`
	StatusText string    `json:"statusText"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// Notification severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// NotificationDTO is one dashboard notification
type NotificationDTO struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Ref      string `json:"ref,omitempty"`
}

// DashboardChartsDTO holds the chart series
type DashboardChartsDTO struct {
	OrdersPerMonth []MonthCountDTO `json:"ordersPerMonth"`
	UnitLoad       []UnitLoadPoint `json:"unitLoad"`
}

// MonthCountDTO is one bar of the orders per month chart
type MonthCountDTO struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// UnitLoadPoint is one bar pair of the load vs capacity chart
type UnitLoadPoint struct {
	UnitID    string  `json:"unitId"`
	Name      string  `json:"name"`
	LoadHours float64 `json:"loadHours"`
	Capacity  float64 `json:"capacity"`
}

// AssistantAnswerDTO is the assistant's reply
type AssistantAnswerDTO struct {
	Topic            string                 `json:"topic"`
	Answer           string                 `json:"answer"`
	Source           string                 `json:"source"`
	RelatedDocuments []TechnicalDocumentDTO `json:"relatedDocuments"`
}

// TechnicalDocumentDTO represents a technical document reference
type TechnicalDocumentDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Version  string `json:"version,omitempty"`
}
