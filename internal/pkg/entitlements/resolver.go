package entitlements

import (
	"time"

	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
)

// Resolver holds the pure decision rules. It performs no I/O.
type Resolver struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c, now: time.Now}
}

func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

func (r *Resolver) Now() time.Time {
	return r.now()
}

// WithClock returns a copy of the resolver reading time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	return &Resolver{catalog: r.catalog, now: now}
}

// AppsToUnlock lists the apps a purchase of purchasedAppID entitles: the
// purchased app first, then the other members of its bundle in catalog order.
// The bundle definition decides, not the offer window.
func (r *Resolver) AppsToUnlock(purchasedAppID string) ([]string, error) {
	app, err := r.catalog.App(purchasedAppID)
	if err != nil {
		return nil, err
	}

	b, ok, err := r.catalog.BundleForApp(app.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{app.ID}, nil
	}

	out := []string{app.ID}
	for _, a := range r.catalog.Apps() {
		if a.ID != app.ID && b.Contains(a.ID) {
			out = append(out, a.ID)
		}
	}
	return out, nil
}

// Classify decides access for one app given the user's stored row, if any.
// A ReasonExpired decision tells the caller to revoke the row.
func (r *Resolver) Classify(appID string, g *Grant) (Decision, error) {
	app, err := r.catalog.App(appID)
	if err != nil {
		return Decision{}, err
	}
	if app.IsFree() {
		return Decision{HasAccess: true, Reason: ReasonFree}, nil
	}
	if g == nil {
		return Decision{HasAccess: false, Reason: ReasonNoGrant}, nil
	}
	if !g.IsActive {
		return Decision{HasAccess: false, Reason: ReasonInactive}, nil
	}
	if g.ExpiredAt(r.now()) {
		return Decision{HasAccess: false, Reason: ReasonExpired}, nil
	}
	return Decision{HasAccess: true, Reason: reasonFor(g.GrantedVia)}, nil
}

// Summary builds the per-app view for every catalog app. Grants for apps no
// longer in the catalog are ignored.
func (r *Resolver) Summary(grants []Grant) []AppAccess {
	byApp := make(map[string]*Grant, len(grants))
	now := r.now()
	for i := range grants {
		g := &grants[i]
		if prev, ok := byApp[g.AppID]; ok && prev.Usable(now) {
			continue
		}
		byApp[g.AppID] = g
	}

	apps := r.catalog.Apps()
	out := make([]AppAccess, 0, len(apps))
	for _, a := range apps {
		d, err := r.Classify(a.ID, byApp[a.ID])
		if err != nil {
			continue
		}
		out = append(out, AppAccess{AppID: a.ID, HasAccess: d.HasAccess, Reason: d.Reason})
	}
	return out
}
