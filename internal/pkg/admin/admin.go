// Package admin is the operator-facing facade over the access store: manual
// grant and revoke plus the dashboard snapshot.
package admin

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

// StatsReader serves (possibly cached) statistics.
type StatsReader interface {
	Stats(ctx context.Context, appID string) (access.Stats, error)
	Invalidate(ctx context.Context)
}

type Service struct {
	store *access.Store
	stats StatsReader
}

// NewService wires the facade. A nil stats reader reads the store directly.
func NewService(store *access.Store, stats StatsReader) *Service {
	if stats == nil {
		stats = uncached{store}
	}
	return &Service{store: store, stats: stats}
}

// AdminGrant grants permanent access with provenance admin.
func (s *Service) AdminGrant(ctx context.Context, userID, appID string) (entitlements.Grant, error) {
	g, err := s.store.Grant(ctx, access.GrantInput{
		UserID:     userID,
		AppID:      appID,
		GrantedVia: entitlements.ViaAdmin,
	})
	if err != nil {
		return entitlements.Grant{}, err
	}
	s.stats.Invalidate(ctx)
	fiberlog.Infof("[Admin] granted user=%s app=%s", g.UserID, g.AppID)
	return g, nil
}

func (s *Service) AdminRevoke(ctx context.Context, userID, appID string) error {
	if err := s.store.Revoke(ctx, userID, appID, access.RevokeReasonAdmin); err != nil {
		return err
	}
	s.stats.Invalidate(ctx)
	return nil
}

func (s *Service) Stats(ctx context.Context, appID string) (access.Stats, error) {
	if appID != "" {
		if _, err := s.store.Catalog().App(appID); err != nil {
			return access.Stats{}, err
		}
	}
	return s.stats.Stats(ctx, appID)
}

type BundleView struct {
	catalog.Bundle
	OfferActive bool `json:"offer_active"`
}

type AppCount struct {
	AppID        string       `json:"app_id"`
	DisplayName  string       `json:"display_name"`
	Tier         catalog.Tier `json:"tier"`
	BundleID     string       `json:"bundle_id,omitempty"`
	ActiveGrants int          `json:"active_grants"`
}

// Snapshot is a read-only composition of catalog, bundles and stats.
type Snapshot struct {
	Stats       access.Stats `json:"stats"`
	Bundles     []BundleView `json:"bundles"`
	Apps        []AppCount   `json:"apps"`
	GeneratedAt time.Time    `json:"generated_at"`
}

func (s *Service) DashboardSnapshot(ctx context.Context) (Snapshot, error) {
	st, err := s.stats.Stats(ctx, "")
	if err != nil {
		return Snapshot{}, err
	}

	now := s.store.Resolver().Now()
	cat := s.store.Catalog()

	bundles := cat.Bundles()
	views := make([]BundleView, 0, len(bundles))
	for _, b := range bundles {
		views = append(views, BundleView{Bundle: b, OfferActive: b.IsOfferActive(now)})
	}

	apps := cat.Apps()
	counts := make([]AppCount, 0, len(apps))
	for _, a := range apps {
		counts = append(counts, AppCount{
			AppID:        a.ID,
			DisplayName:  a.DisplayName,
			Tier:         a.Tier,
			BundleID:     a.BundleID,
			ActiveGrants: st.ByApp[a.ID],
		})
	}

	return Snapshot{
		Stats:       st,
		Bundles:     views,
		Apps:        counts,
		GeneratedAt: now,
	}, nil
}

type uncached struct {
	store *access.Store
}

func (u uncached) Stats(ctx context.Context, appID string) (access.Stats, error) {
	return u.store.Stats(ctx, appID)
}

func (uncached) Invalidate(context.Context) {}
