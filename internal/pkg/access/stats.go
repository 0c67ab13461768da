package access

import (
	"context"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
)

// Stats aggregates active, unexpired grants.
type Stats struct {
	Total       int                             `json:"total"`
	ByGrantType map[entitlements.GrantedVia]int `json:"by_grant_type"`
	ByApp       map[string]int                  `json:"by_app"`
}

func newStats() Stats {
	return Stats{
		ByGrantType: make(map[entitlements.GrantedVia]int),
		ByApp:       make(map[string]int),
	}
}

// Stats counts usable grants, scoped to appID when it is not empty. It is
// read-only: expired rows are excluded but not revoked.
func (s *Store) Stats(ctx context.Context, appID string) (Stats, error) {
	appID = strings.TrimSpace(appID)
	if appID != "" {
		if _, err := s.Catalog().App(appID); err != nil {
			return Stats{}, err
		}
	}

	counts, err := s.repo.CountActive(ctx, appID, s.resolver.Now().UTC())
	if err != nil {
		metrics.RecordStorageError("stats")
		fiberlog.Errorf("[Access] op=stats app=%s failed: %v", appID, err)
		return Stats{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	out := newStats()
	for _, c := range counts {
		if !c.GrantedVia.Valid() {
			fiberlog.Warnf("[Access] ignoring %d rows with unknown granted_via %q", c.Count, c.GrantedVia)
			continue
		}
		n := int(c.Count)
		out.Total += n
		out.ByGrantType[c.GrantedVia] += n
		out.ByApp[c.AppID] += n
	}
	return out, nil
}
