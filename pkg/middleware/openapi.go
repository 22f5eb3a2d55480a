package middleware

import (
	stderrors "errors"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"
	"github.com/mets-platform/mets/pkg/contracts/openapi"
	"github.com/mets-platform/mets/pkg/errors"
)

// OpenAPIValidation rejects requests that do not match the contract.
// Paths missing from the document (probes, metrics) pass through.
func OpenAPIValidation(v *openapi.Validator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := v.ValidateRequest(c.Request.Context(), c.Request)
		if err == nil {
			c.Next()
			return
		}

		if stderrors.Is(err, routers.ErrPathNotFound) || stderrors.Is(err, routers.ErrMethodNotAllowed) {
			c.Next()
			return
		}

		appErr := errors.ErrValidation("request does not match the API contract")
		var reqErr *openapi3filter.RequestError
		if stderrors.As(err, &reqErr) {
			appErr = appErr.WithDetail("reason", reqErr.Error())
		} else {
			appErr = appErr.WithDetail("reason", err.Error())
		}

		logger.Warn("OpenAPI request validation failed",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err.Error(),
		)
		AbortWithAppError(c, appErr)
	}
}
