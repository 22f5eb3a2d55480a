package application

import (
	"net/http"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/errors"
)

// ToOrderDTO converts a domain Order to OrderDTO
func ToOrderDTO(order *domain.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	cells := make([]CellDTO, 0, len(order.Cells))
	for _, cell := range order.Cells {
		serials := cell.SerialNumbers
		if serials == nil {
			serials = []string{}
		}
		cells = append(cells, CellDTO{
			ProductTypeCode: cell.ProductTypeCode,
			Quantity:        cell.Quantity,
			SerialNumbers:   serials,
		})
	}

	dto := &OrderDTO{
		OrderID:           order.OrderID,
		OrderNo:           order.OrderNo,
		OrderDate:         order.OrderDate,
		EstimatedDelivery: order.EstimatedDelivery,
		Status:            string(order.Status),
		StatusText:        order.Status.DisplayText(),
		Priority:          string(order.Priority),
		CustomerInfo:      order.CustomerInfo,
		TechnicalInfo:     order.TechnicalInfo,
		Cells:             cells,
		CellType:          order.CellType(),
		Quantity:          order.Quantity(),
		Notes:             order.Notes,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
	if !order.DeliveryDate.IsZero() {
		delivery := order.DeliveryDate
		dto.DeliveryDate = &delivery
	}
	return dto
}

// ToOrderDTOs converts a slice of orders
func ToOrderDTOs(orders []*domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, *ToOrderDTO(o))
	}
	return out
}

// ToPlanDTO converts a plan snapshot
func ToPlanDTO(snapshot *domain.PlanSnapshot) *PlanDTO {
	if snapshot == nil {
		return nil
	}
	overloaded := snapshot.OverloadedUnits
	if overloaded == nil {
		overloaded = []string{}
	}
	return &PlanDTO{
		PlanID:          snapshot.PlanID,
		OrderCount:      snapshot.OrderCount,
		OverloadedUnits: overloaded,
		Trigger:         snapshot.Trigger,
		CreatedAt:       snapshot.CreatedAt,
		Plan:            normalizePlan(snapshot.Plan),
	}
}

// normalizePlan replaces nil collections so they render as empty JSON
func normalizePlan(plan planning.Plan) planning.Plan {
	if plan.Schedule == nil {
		plan.Schedule = []planning.ScheduledTask{}
	}
	if plan.CapacityLoad.Units == nil {
		plan.CapacityLoad.Units = []planning.UnitLoad{}
	}
	if plan.DeliveryEstimates == nil {
		plan.DeliveryEstimates = map[string]time.Time{}
	}
	return plan
}

// ToCapacityDTO extracts the capacity view of a plan snapshot
func ToCapacityDTO(snapshot *domain.PlanSnapshot) *CapacityDTO {
	load := snapshot.Plan.CapacityLoad
	units := load.Units
	if units == nil {
		units = []planning.UnitLoad{}
	}
	return &CapacityDTO{
		PlanID:      snapshot.PlanID,
		GeneratedAt: snapshot.Plan.GeneratedAt,
		WindowStart: load.WindowStart,
		WindowEnd:   load.WindowEnd,
		Units:       units,
		Overloaded:  len(load.Overloaded()),
	}
}

// ToProductionUnitDTO converts a production unit
func ToProductionUnitDTO(unit *domain.ProductionUnit) ProductionUnitDTO {
	dto := ProductionUnitDTO{
		ID:       unit.UnitID,
		Name:     unit.Name,
		Capacity: unit.Capacity,
	}
	if !unit.UpdatedAt.IsZero() {
		updated := unit.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

// ToTechnicalDocumentDTO converts a technical document reference
func ToTechnicalDocumentDTO(doc *domain.TechnicalDocument) TechnicalDocumentDTO {
	return TechnicalDocumentDTO{
		ID:       doc.DocID,
		Title:    doc.Title,
		Category: doc.Category,
		Version:  doc.Version,
	}
}

func notFound(message string) *errors.AppError {
	return errors.NewAppError(errors.CodeNotFound, message, http.StatusNotFound)
}

// domainErrorMappings turns domain sentinels into API errors
var domainErrorMappings = []errors.DomainMapping{
	{Target: domain.ErrOrderNotFound, Build: notFound},
	{Target: domain.ErrUnitNotFound, Build: notFound},
	{Target: domain.ErrPlanNotFound, Build: notFound},
	{Target: domain.ErrDeliveryNotFound, Build: notFound},
	{Target: domain.ErrInvalidStatusTransition, Build: errors.ErrConflict},
	{Target: domain.ErrOrderCanceled, Build: errors.ErrConflict},
	{Target: domain.ErrOrderCompleted, Build: errors.ErrConflict},
	{Target: domain.ErrDuplicateOrderNo, Build: errors.ErrConflict},
	{Target: domain.ErrNoCells, Build: errors.ErrValidation},
	{Target: domain.ErrInvalidCell, Build: errors.ErrValidation},
	{Target: domain.ErrMissingCustomerName, Build: errors.ErrValidation},
	{Target: domain.ErrMissingDocumentNo, Build: errors.ErrValidation},
	{Target: domain.ErrInvalidPriority, Build: errors.ErrValidation},
	{Target: domain.ErrInvalidStatus, Build: errors.ErrValidation},
	{Target: domain.ErrInvalidUnitName, Build: errors.ErrValidation},
	{Target: domain.ErrInvalidCapacity, Build: errors.ErrValidation},
	{Target: planning.ErrNoProductionUnits, Build: errors.ErrUnprocessable},
	{Target: planning.ErrUnknownDefaultResource, Build: errors.ErrUnprocessable},
	{Target: planning.ErrInvalidParameters, Build: errors.ErrUnprocessable},
}

// toAppError maps a domain or engine error to an AppError
func toAppError(err error) *errors.AppError {
	return errors.MapDomainError(err, domainErrorMappings...)
}
