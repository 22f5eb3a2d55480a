package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mets-platform/mets/internal/api/dto"
	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/api"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/middleware"
)

func createOrderHandler(service *application.OrderApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CreateOrderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c,
			attribute.String("customer.name", req.CustomerInfo.Name),
			attribute.Int("order.cells", len(req.Cells)),
			attribute.String("order.priority", req.Priority),
		)

		order, err := service.CreateOrder(c.Request.Context(), req.ToCommand())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler(service *application.OrderApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID := c.Param("orderId")
		middleware.AddSpanAttributes(c, attribute.String("order.id", orderID))

		order, err := service.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func updateOrderStatusHandler(service *application.OrderApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.UpdateOrderStatusRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.UpdateOrderStatusCommand{
			OrderID: c.Param("orderId"),
			Status:  req.Status,
			Reason:  req.Reason,
		}
		middleware.AddSpanAttributes(c,
			attribute.String("order.id", cmd.OrderID),
			attribute.String("order.status", cmd.Status),
		)

		order, err := service.UpdateOrderStatus(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func cancelOrderHandler(service *application.OrderApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CancelOrderRequest
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		cmd := application.CancelOrderCommand{
			OrderID: c.Param("orderId"),
			Reason:  req.Reason,
		}
		middleware.AddSpanAttributes(c, attribute.String("order.id", cmd.OrderID))

		order, err := service.CancelOrder(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler(queryService *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		sort, appErr := api.ParseSort(c, domain.OrderSortFields, domain.SortByOrderDate, api.SortDesc)
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		dateFrom, appErr := api.ParseDateQuery(c, "dateFrom")
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		dateTo, appErr := api.ParseDateQuery(c, "dateTo")
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		query := application.ListOrdersQuery{
			Search:       c.Query("search"),
			CellType:     c.Query("cellType"),
			Status:       c.Query("status"),
			Priority:     c.Query("priority"),
			CustomerName: c.Query("customerName"),
			DateFrom:     dateFrom,
			DateTo:       dateTo,
			SortBy:       sort.Field,
			SortDesc:     sort.Order == api.SortDesc,
			Page:         page.Page,
			PageSize:     page.PageSize,
		}

		result, err := queryService.ListOrders(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func listCustomersHandler(queryService *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := queryService.ListCustomers(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": customers})
	}
}

func listCellTypesHandler(queryService *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cellTypes, err := queryService.ListCellTypes(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cellTypes})
	}
}
