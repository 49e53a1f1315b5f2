package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/chronos/internal/api/handlers"
	"github.com/hugh/chronos/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewHealthHandler(db, nil)

	rr := httptest.NewRecorder()
	handler.Health(rr, httptest.NewRequest("GET", "/health", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp handlers.HealthResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["database"])
	assert.NotContains(t, resp.Services, "redis")

	rr = httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, "ok", rr.Body.String())
}
