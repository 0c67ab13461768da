package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCheck(t *testing.T) {
	before := testutil.ToFloat64(accessChecks.WithLabelValues("error"))
	RecordCheck("error")
	assert.Equal(t, before+1, testutil.ToFloat64(accessChecks.WithLabelValues("error")))
}

func TestRecordGrantLabelsResult(t *testing.T) {
	before := testutil.ToFloat64(grantsWritten.WithLabelValues("bundle", "error"))
	RecordGrant("bundle", false)
	assert.Equal(t, before+1, testutil.ToFloat64(grantsWritten.WithLabelValues("bundle", "error")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/v1/access/:appID", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/access/:appID", "200"))
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/access/learn-ai", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/access/:appID", "200")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordPartialBundle()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "appaccess_access_partial_bundle_grants_total")
}

func TestPendingRetriesReadsQueueDepth(t *testing.T) {
	SetQueueDepth(func() float64 { return 4 })
	t.Cleanup(func() { SetQueueDepth(nil) })

	assert.Equal(t, float64(4), testutil.ToFloat64(pendingRetries))

	SetQueueDepth(nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(pendingRetries))
}
