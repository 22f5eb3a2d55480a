package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mets-platform/mets/internal/api/dto"
	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/middleware"
)

type unitPath struct {
	UnitID string `json:"unitId" validate:"required,unit_id"`
}

// generatePlanHandler accepts an empty body; startOfDay and now default to
// the server clock.
func generatePlanHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.GeneratePlanRequest
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		plan, err := service.GeneratePlan(c.Request.Context(), req.ToCommand())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		middleware.AddSpanAttributes(c,
			attribute.String("plan.id", plan.PlanID),
			attribute.Int("plan.orders", plan.OrderCount),
			attribute.Int("plan.overloaded_units", len(plan.OverloadedUnits)),
		)

		c.JSON(http.StatusCreated, plan)
	}
}

func getLatestPlanHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := service.GetLatestPlan(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

func previewPlanHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.PreviewPlanRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, attribute.Int("plan.orders", len(req.Orders)))

		plan, err := service.PreviewPlan(c.Request.Context(), req.ToCommand())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, plan)
	}
}

func getCapacityLoadHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		capacity, err := service.GetCapacityLoad(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, capacity)
	}
}

func getDeliveryEstimateHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderId")
		middleware.AddSpanAttributes(c, attribute.String("order.id", orderID))

		estimate, err := service.GetDeliveryEstimate(c.Request.Context(), orderID)
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, estimate)
	}
}

func listProductionUnitsHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		units, err := service.ListProductionUnits(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": units})
	}
}

func upsertProductionUnitHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		path := unitPath{UnitID: c.Param("unitId")}
		if appErr := middleware.ValidateStruct(path); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		var req dto.UpsertProductionUnitRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, attribute.String("unit.id", path.UnitID))

		unit, err := service.UpsertProductionUnit(c.Request.Context(), application.UpsertProductionUnitCommand{
			UnitID:   path.UnitID,
			Name:     req.Name,
			Capacity: req.Capacity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, unit)
	}
}

func getPlanningParametersHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, err := service.GetPlanningParameters(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, params)
	}
}

func updatePlanningParametersHandler(service *application.PlanningApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var params planning.Parameters
		if appErr := middleware.BindAndValidate(c, &params); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c,
			attribute.String("planning.mode", string(params.Mode)),
			attribute.String("planning.weekend_policy", string(params.WeekendPolicy)),
		)

		updated, err := service.UpdatePlanningParameters(c.Request.Context(), application.UpdatePlanningParametersCommand{
			Parameters: params,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}
