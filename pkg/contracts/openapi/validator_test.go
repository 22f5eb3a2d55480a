package openapi_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metsapi "github.com/mets-platform/mets/api"
	"github.com/mets-platform/mets/pkg/contracts/openapi"
)

func TestEmbeddedSpecMatchesFile(t *testing.T) {
	fromFile, err := openapi.NewValidatorFromFile("../../../api/openapi.yaml")
	require.NoError(t, err)
	embedded, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
	require.NoError(t, err)

	assert.Equal(t, fromFile.Paths(), embedded.Paths())
	assert.Equal(t, "METS Planning API", embedded.Document().Info.Title)
	assert.NotEmpty(t, embedded.Document().Info.Version)
}

func TestDocumentedPaths(t *testing.T) {
	v, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
	require.NoError(t, err)

	paths := v.Paths()
	for _, p := range []string{
		"/api/v1/orders",
		"/api/v1/orders/{orderId}",
		"/api/v1/orders/{orderId}/status",
		"/api/v1/orders/{orderId}/cancel",
		"/api/v1/planning/plans",
		"/api/v1/planning/plans/latest",
		"/api/v1/planning/preview",
		"/api/v1/planning/capacity",
		"/api/v1/planning/deliveries/{orderId}",
		"/api/v1/planning/units/{unitId}",
		"/api/v1/planning/parameters",
		"/api/v1/dashboard",
		"/api/v1/assistant/ask",
	} {
		assert.Contains(t, paths, p)
	}
}

func TestOperationID(t *testing.T) {
	v, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/planning/capacity", "getCapacityLoad"},
		{http.MethodPost, "/api/v1/orders", "createOrder"},
		{http.MethodPut, "/api/v1/orders/ORD-0424A003/status", "updateOrderStatus"},
		{http.MethodPost, "/api/v1/assistant/ask", "askAssistant"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := v.OperationID(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = v.OperationID(httptest.NewRequest(http.MethodGet, "/api/v1/warehouses", nil))
	assert.Error(t, err)
}

func TestValidateRequest(t *testing.T) {
	v, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Error(t, v.ValidateRequest(context.Background(), req))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/customers", nil)
	assert.NoError(t, v.ValidateRequest(context.Background(), req))
}

func TestValidateHTTPResponse(t *testing.T) {
	v, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
	require.NoError(t, err)

	respond := func(body string) *http.Response {
		rec := httptest.NewRecorder()
		rec.Header().Set("Content-Type", "application/json")
		rec.WriteHeader(http.StatusOK)
		rec.WriteString(body)
		return rec.Result()
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/customers", nil)

	resp := respond(`{"data":["TOROSLAR EDAŞ"]}`)
	require.NoError(t, v.ValidateHTTPResponse(context.Background(), req, resp))

	// body stays readable after validation
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "TOROSLAR")

	assert.Error(t, v.ValidateHTTPResponse(context.Background(), req, respond(`{"data":[1,2]}`)))
}
