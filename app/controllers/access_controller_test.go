package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiskills-cloud/appaccess/app/repository"
	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
	"github.com/iiskills-cloud/appaccess/internal/pkg/middleware"
	"github.com/iiskills-cloud/appaccess/internal/pkg/payments"
)

// brokenRepo fails reads, and writes for the listed apps.
type brokenRepo struct {
	repository.AccessRepository
	failReads  bool
	failWrites map[string]bool
}

func (r *brokenRepo) Get(ctx context.Context, userID, appID string) (entitlements.Grant, error) {
	if r.failReads {
		return entitlements.Grant{}, errors.New("dial tcp: connection refused")
	}
	return r.AccessRepository.Get(ctx, userID, appID)
}

func (r *brokenRepo) Upsert(ctx context.Context, g entitlements.Grant) (entitlements.Grant, error) {
	if r.failWrites[g.AppID] {
		return entitlements.Grant{}, errors.New("deadlock found")
	}
	return r.AccessRepository.Upsert(ctx, g)
}

func newControllerApp(t *testing.T, repo *brokenRepo) *fiber.App {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	store := access.NewStore(repo, entitlements.NewResolver(c))
	ac := NewAccessController(store)
	pc := NewPaymentController(payments.NewService(store, nil, nil), "")

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware)
	app.Get("/access/:appID", ac.HandleCheckAccess)
	app.Get("/me/apps", ac.HandleMyApps)
	app.Get("/bundles", ac.HandleListBundles)
	app.Post("/confirm", pc.HandleConfirm)
	return app
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHandleCheckAccess_StorageOutageShowsGate(t *testing.T) {
	repo := &brokenRepo{AccessRepository: repository.NewMemoryAccessRepository()}
	app := newControllerApp(t, repo)

	_, err := repo.Upsert(context.Background(), entitlements.Grant{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaAdmin})
	require.NoError(t, err)
	repo.failReads = true

	req := httptest.NewRequest("GET", "/access/learn-ai", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp.Body)["has_access"])

	req = httptest.NewRequest("GET", "/access/learn-math", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, resp.Body)["has_access"])
}

func TestHandleConfirm_PartialBundle(t *testing.T) {
	tests := []struct {
		name       string
		failing    string
		wantStatus int
		wantState  string
	}{
		{"sibling failed", "learn-developer", fiber.StatusOK, "partial"},
		{"purchased app failed", "learn-ai", fiber.StatusServiceUnavailable, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &brokenRepo{
				AccessRepository: repository.NewMemoryAccessRepository(),
				failWrites:       map[string]bool{tt.failing: true},
			}
			app := newControllerApp(t, repo)

			req := httptest.NewRequest("POST", "/confirm", strings.NewReader(`{"user_id":"u1","app_id":"learn-ai","payment_id":"pay_1"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode(t, resp.Body)
			assert.Equal(t, tt.wantState, body["status"])
			assert.Equal(t, []interface{}{tt.failing}, body["failed_apps"])
		})
	}
}

func TestHandleConfirm_AllWritesFailed(t *testing.T) {
	repo := &brokenRepo{
		AccessRepository: repository.NewMemoryAccessRepository(),
		failWrites:       map[string]bool{"learn-management": true},
	}
	app := newControllerApp(t, repo)

	req := httptest.NewRequest("POST", "/confirm", strings.NewReader(`{"user_id":"u1","app_id":"learn-management","payment_id":"pay_1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "storage_unavailable", decode(t, resp.Body)["error"])
}

func TestHandleListBundles(t *testing.T) {
	app := newControllerApp(t, &brokenRepo{AccessRepository: repository.NewMemoryAccessRepository()})

	resp, err := app.Test(httptest.NewRequest("GET", "/bundles", nil))
	require.NoError(t, err)
	body := decode(t, resp.Body)

	bundles := body["bundles"].([]interface{})
	require.Len(t, bundles, 1)
	b := bundles[0].(map[string]interface{})
	assert.Equal(t, "ai-developer-bundle", b["id"])
	assert.Contains(t, b, "offer_active")
}
