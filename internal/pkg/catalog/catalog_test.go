package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApps() []App {
	return []App{
		{ID: "learn-apt", DisplayName: "Aptitude", Tier: TierFree},
		{ID: "learn-ai", DisplayName: "AI", Tier: TierPaid, BundleID: "ai-dev"},
		{ID: "learn-developer", DisplayName: "Developer", Tier: TierPaid, BundleID: "ai-dev"},
		{ID: "learn-management", DisplayName: "Management", Tier: TierPaid},
	}
}

func testBundles() []Bundle {
	return []Bundle{{
		ID:         "ai-dev",
		Apps:       []string{"learn-ai", "learn-developer"},
		Currency:   "INR",
		PriceTiers: map[string]int64{"introductory": 9900, "Regular": 29900},
		ValidUntil: "2026-02-28",
	}}
}

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	free, err := c.IsFree("learn-apt")
	require.NoError(t, err)
	assert.True(t, free)

	b, ok, err := c.BundleForApp("learn-developer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ai-developer-bundle", b.ID)
	assert.Equal(t, []string{"learn-ai", "learn-developer"}, b.Apps)

	_, ok, err = c.BundleForApp("learn-management")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupsAndTierFilters(t *testing.T) {
	c, err := New(testApps(), testBundles())
	require.NoError(t, err)

	a, err := c.App("learn-ai")
	require.NoError(t, err)
	assert.Equal(t, "AI", a.DisplayName)

	_, err = c.App("learn-nothing")
	assert.ErrorIs(t, err, ErrUnknownApp)

	assert.Len(t, c.FreeApps(), 1)
	assert.Len(t, c.PaidApps(), 3)

	_, err = c.Bundle("missing")
	assert.ErrorIs(t, err, ErrUnknownBundle)

	price, ok := c.bundles[0].Price("regular")
	assert.True(t, ok)
	assert.Equal(t, int64(29900), price)
}

func TestIsFreeFailsClosedOnUnknownApp(t *testing.T) {
	c, err := New(testApps(), testBundles())
	require.NoError(t, err)

	free, err := c.IsFree("learn-unknown")
	assert.ErrorIs(t, err, ErrUnknownApp)
	assert.False(t, free)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c, err := New(testApps(), testBundles())
	require.NoError(t, err)

	b, err := c.Bundle("ai-dev")
	require.NoError(t, err)
	b.Apps[0] = "tampered"

	again, err := c.Bundle("ai-dev")
	require.NoError(t, err)
	assert.Equal(t, "learn-ai", again.Apps[0])

	apps := c.Apps()
	apps[0].Tier = TierPaid
	free, _ := c.IsFree("learn-apt")
	assert.True(t, free)
}

func TestNewRejectsInconsistentCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(apps []App, bundles []Bundle) ([]App, []Bundle)
		wantErr string
	}{
		{
			name: "duplicate app id",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				return append(apps, App{ID: "learn-apt", DisplayName: "x", Tier: TierFree}), bundles
			},
			wantErr: "duplicate app id",
		},
		{
			name: "unknown tier",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				apps[0].Tier = "premium"
				return apps, bundles
			},
			wantErr: "learn-apt",
		},
		{
			name: "app points to missing bundle",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				apps[3].BundleID = "ghost"
				return apps, bundles
			},
			wantErr: "unknown bundle",
		},
		{
			name: "bundle member points elsewhere",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				bundles[0].Apps = append(bundles[0].Apps, "learn-management")
				return apps, bundles
			},
			wantErr: "points to",
		},
		{
			name: "app not listed by its bundle",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				apps[3].BundleID = "ai-dev"
				return apps, bundles
			},
			wantErr: "does not list it",
		},
		{
			name: "bundle with a single app",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				apps[2].BundleID = ""
				bundles[0].Apps = []string{"learn-ai"}
				return apps, bundles
			},
			wantErr: "ai-dev",
		},
		{
			name: "bundle with free member",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				apps[0].BundleID = "ai-dev"
				bundles[0].Apps = append(bundles[0].Apps, "learn-apt")
				return apps, bundles
			},
			wantErr: "free app",
		},
		{
			name: "malformed valid_until",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				bundles[0].ValidUntil = "28/02/2026"
				return apps, bundles
			},
			wantErr: "ai-dev",
		},
		{
			name: "bundle references unknown app",
			mutate: func(apps []App, bundles []Bundle) ([]App, []Bundle) {
				bundles[0].Apps = append(bundles[0].Apps, "learn-ghost")
				return apps, bundles
			},
			wantErr: "unknown app",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			apps, bundles := tc.mutate(testApps(), testBundles())
			_, err := New(apps, bundles)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestIsOfferActiveUsesCalendarDate(t *testing.T) {
	b := testBundles()[0]
	loc := time.FixedZone("IST", 5*3600+1800)

	assert.True(t, b.IsOfferActive(time.Date(2026, 2, 1, 12, 0, 0, 0, loc)))
	assert.True(t, b.IsOfferActive(time.Date(2026, 2, 28, 23, 59, 59, 0, loc)))
	assert.False(t, b.IsOfferActive(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)))

	// 2026-02-28 20:00 UTC is already 1 March in IST; the zone of asOf decides.
	utc := time.Date(2026, 2, 28, 20, 0, 0, 0, time.UTC)
	assert.True(t, b.IsOfferActive(utc))
	assert.False(t, b.IsOfferActive(utc.In(loc)))
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("apps:\n  - id: a\n    display_name: A\n    tier: free\n    colour: red\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(strings.NewReader("bundles: []\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}
