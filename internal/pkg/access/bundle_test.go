package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

func TestScenario_BundlePurchase(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()

	res, err := store.GrantBundle(ctx, "u1", "learn-ai", "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"learn-ai", "learn-developer"}, res.BundledApps)
	assert.Equal(t, []string{"learn-ai", "learn-developer"}, res.GrantedAppIDs())
	assert.Empty(t, res.Failed)
	assert.True(t, res.PurchasedGranted())

	ok, err := store.CheckAccess(ctx, "u1", "learn-developer")
	require.NoError(t, err)
	assert.True(t, ok)

	row, err := repo.Get(ctx, "u1", "learn-developer")
	require.NoError(t, err)
	assert.Equal(t, entitlements.ViaBundle, row.GrantedVia)
	assert.Equal(t, "p1", row.PaymentID)

	row, err = repo.Get(ctx, "u1", "learn-ai")
	require.NoError(t, err)
	assert.Equal(t, entitlements.ViaPayment, row.GrantedVia)
}

func TestGrantBundle_StandaloneApp(t *testing.T) {
	store, _, _ := newTestStore(t)

	res, err := store.GrantBundle(context.Background(), "u1", "learn-management", "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"learn-management"}, res.BundledApps)
}

func TestGrantBundle_PartialFailure(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()
	repo.failUpsertOn["learn-developer"] = true

	res, err := store.GrantBundle(ctx, "u1", "learn-ai", "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialBundleGrant)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	var perr *PartialBundleError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"learn-developer"}, perr.Result.FailedAppIDs())

	assert.True(t, res.PurchasedGranted())
	assert.Equal(t, []string{"learn-ai"}, res.GrantedAppIDs())

	// retrying the failed subset converges
	repo.failUpsertOn["learn-developer"] = false
	res, err = store.GrantBundle(ctx, "u1", "learn-ai", "p1")
	require.NoError(t, err)
	assert.Len(t, res.Granted, 2)

	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGrantBundle_PurchasedAppFailed(t *testing.T) {
	store, repo, _ := newTestStore(t)
	repo.failUpsertOn["learn-ai"] = true

	res, err := store.GrantBundle(context.Background(), "u1", "learn-ai", "p1")
	assert.ErrorIs(t, err, ErrPartialBundleGrant)
	assert.False(t, res.PurchasedGranted())
}

func TestGrantBundle_AllFailed(t *testing.T) {
	store, repo, _ := newTestStore(t)
	repo.failUpsertOn["learn-ai"] = true
	repo.failUpsertOn["learn-developer"] = true

	res, err := store.GrantBundle(context.Background(), "u1", "learn-developer", "p1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrPartialBundleGrant)
	assert.Empty(t, res.Granted)
	assert.Len(t, res.Failed, 2)
}

func TestGrantBundle_Validation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.GrantBundle(ctx, "", "learn-ai", "p1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = store.GrantBundle(ctx, "u1", "learn-ai", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = store.GrantBundle(ctx, "u1", "learn-math", "p1")
	assert.ErrorIs(t, err, ErrFreeApp)
}
