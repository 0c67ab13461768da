package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

func TestMemoryAccessRepository_ReactivationKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccessRepository()
	now := time.Now()

	first, err := repo.Upsert(ctx, entitlements.Grant{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaPayment, PaymentID: "p1", GrantedAt: now})
	require.NoError(t, err)

	changed, err := repo.Deactivate(ctx, "u1", "learn-ai", "admin", now)
	require.NoError(t, err)
	assert.True(t, changed)

	g, err := repo.Get(ctx, "u1", "learn-ai")
	require.NoError(t, err)
	assert.False(t, g.IsActive)
	assert.Equal(t, "admin", g.RevokeReason)

	second, err := repo.Upsert(ctx, entitlements.Grant{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaAdmin, GrantedAt: now})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsActive)
	assert.Nil(t, second.RevokedAt)
	assert.Empty(t, second.RevokeReason)
	assert.Equal(t, entitlements.ViaAdmin, second.GrantedVia)
}

func TestMemoryAccessRepository_DeactivateMissingIsNoop(t *testing.T) {
	repo := NewMemoryAccessRepository()

	changed, err := repo.Deactivate(context.Background(), "nobody", "learn-ai", "admin", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.Get(context.Background(), "nobody", "learn-ai")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAccessRepository_CountActiveSkipsExpiredAndInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccessRepository()
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	_, _ = repo.Upsert(ctx, entitlements.Grant{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaPayment, GrantedAt: now})
	_, _ = repo.Upsert(ctx, entitlements.Grant{UserID: "u2", AppID: "learn-ai", GrantedVia: entitlements.ViaBundle, GrantedAt: now})
	_, _ = repo.Upsert(ctx, entitlements.Grant{UserID: "u3", AppID: "learn-ai", GrantedVia: entitlements.ViaAdmin, GrantedAt: now, ExpiresAt: &past})
	_, _ = repo.Upsert(ctx, entitlements.Grant{UserID: "u4", AppID: "learn-pr", GrantedVia: entitlements.ViaAdmin, GrantedAt: now})
	_, _ = repo.Deactivate(ctx, "u4", "learn-pr", "admin", now)

	all, err := repo.CountActive(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, []GrantCount{
		{AppID: "learn-ai", GrantedVia: entitlements.ViaBundle, Count: 1},
		{AppID: "learn-ai", GrantedVia: entitlements.ViaPayment, Count: 1},
	}, all)

	pr, err := repo.CountActive(ctx, "learn-pr", now)
	require.NoError(t, err)
	assert.Empty(t, pr)
}

func TestMemoryAccessRepository_ConcurrentUpsertsLeaveOneRow(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccessRepository()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Upsert(ctx, entitlements.Grant{UserID: "u1", AppID: "learn-ai", GrantedVia: entitlements.ViaPayment, GrantedAt: time.Now()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryPaymentRepository_RecordsBundleInfo(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	require.NoError(t, repo.UpdateBundleInfo(context.Background(), "p1", []string{"learn-ai", "learn-developer"}))

	reader, ok := repo.(BundleInfoReader)
	require.True(t, ok)
	apps, found := reader.BundleInfo("p1")
	assert.True(t, found)
	assert.Equal(t, []string{"learn-ai", "learn-developer"}, apps)
}
