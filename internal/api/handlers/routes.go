// Package handlers exposes the application services over HTTP
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/pkg/logging"
)

// Services bundles the application services behind the API
type Services struct {
	Orders    *application.OrderApplicationService
	Queries   *application.OrderQueryService
	Planning  *application.PlanningApplicationService
	Dashboard *application.DashboardService
	Assistant *application.AssistantService
}

// RegisterRoutes mounts the METS API on a router group, normally /api/v1
func RegisterRoutes(v1 *gin.RouterGroup, svc *Services, logger *logging.Logger) {
	orders := v1.Group("/orders")
	{
		orders.POST("", createOrderHandler(svc.Orders, logger))
		orders.GET("", listOrdersHandler(svc.Queries, logger))
		orders.GET("/customers", listCustomersHandler(svc.Queries, logger))
		orders.GET("/cell-types", listCellTypesHandler(svc.Queries, logger))
		orders.GET("/:orderId", getOrderHandler(svc.Orders, logger))
		orders.PUT("/:orderId/status", updateOrderStatusHandler(svc.Orders, logger))
		orders.POST("/:orderId/cancel", cancelOrderHandler(svc.Orders, logger))
	}

	planning := v1.Group("/planning")
	{
		planning.POST("/plans", generatePlanHandler(svc.Planning, logger))
		planning.GET("/plans/latest", getLatestPlanHandler(svc.Planning, logger))
		planning.POST("/preview", previewPlanHandler(svc.Planning, logger))
		planning.GET("/capacity", getCapacityLoadHandler(svc.Planning, logger))
		planning.GET("/deliveries/:orderId", getDeliveryEstimateHandler(svc.Planning, logger))
		planning.GET("/units", listProductionUnitsHandler(svc.Planning, logger))
		planning.PUT("/units/:unitId", upsertProductionUnitHandler(svc.Planning, logger))
		planning.GET("/parameters", getPlanningParametersHandler(svc.Planning, logger))
		planning.PUT("/parameters", updatePlanningParametersHandler(svc.Planning, logger))
	}

	v1.GET("/dashboard", getDashboardHandler(svc.Dashboard, logger))
	v1.POST("/assistant/ask", askHandler(svc.Assistant, logger))
}
