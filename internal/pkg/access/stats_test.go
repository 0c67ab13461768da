package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

func TestScenario_StatsAggregation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, in := range []GrantInput{
		{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaBundle, PaymentID: "p1"},
		{UserID: "u2", AppID: "learn-ai", GrantedVia: entitlements.ViaBundle, PaymentID: "p2"},
		{UserID: "u3", AppID: "learn-ai", GrantedVia: entitlements.ViaPayment, PaymentID: "p3"},
		{UserID: "u3", AppID: "learn-pr", GrantedVia: entitlements.ViaAdmin},
	} {
		_, err := store.Grant(ctx, in)
		require.NoError(t, err)
	}

	stats, err := store.Stats(ctx, "learn-ai")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.ByApp["learn-ai"])
	assert.Equal(t, map[entitlements.GrantedVia]int{
		entitlements.ViaPayment: 1,
		entitlements.ViaBundle:  2,
	}, stats.ByGrantType)

	all, err := store.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 1, all.ByGrantType[entitlements.ViaAdmin])
}

func TestStats_ExcludesExpiredWithoutRevoking(t *testing.T) {
	store, repo, clk := newTestStore(t)
	ctx := context.Background()
	exp := fixedNow.Add(time.Minute)

	_, err := store.Grant(ctx, GrantInput{UserID: "u1", AppID: "learn-pr", GrantedVia: entitlements.ViaPromotional, ExpiresAt: &exp})
	require.NoError(t, err)
	clk.Advance(time.Hour)

	stats, err := store.Stats(ctx, "learn-pr")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	row, err := repo.Get(ctx, "u1", "learn-pr")
	require.NoError(t, err)
	assert.True(t, row.IsActive, "stats must not alter access state")
}

func TestStats_Errors(t *testing.T) {
	store, repo, _ := newTestStore(t)

	_, err := store.Stats(context.Background(), "learn-nothing")
	assert.ErrorIs(t, err, catalog.ErrUnknownApp)

	repo.failCount = true
	_, err = store.Stats(context.Background(), "")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
