package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mets-platform/mets/internal/api/dto"
	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/middleware"
)

func getDashboardHandler(service *application.DashboardService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dashboard, err := service.GetDashboard(c.Request.Context(), time.Now().UTC())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}

func askHandler(service *application.AssistantService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.AskRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		answer, err := service.Ask(c.Request.Context(), application.AskCommand{Question: req.Question})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		middleware.AddSpanAttributes(c, attribute.String("assistant.topic", answer.Topic))
		c.JSON(http.StatusOK, answer)
	}
}
