// Package catalog holds the immutable registry of apps and promotional bundles
// that every entitlement decision is made against.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownApp    = errors.New("unknown app")
	ErrUnknownBundle = errors.New("unknown bundle")
	ErrInvalid       = errors.New("invalid catalog")
)

type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// App is a single product of the ecosystem.
type App struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	DisplayName string `yaml:"display_name" json:"display_name" validate:"required"`
	Tier        Tier   `yaml:"tier" json:"tier" validate:"required,oneof=free paid"`
	BundleID    string `yaml:"bundle_id,omitempty" json:"bundle_id,omitempty"`
}

func (a App) IsFree() bool {
	return a.Tier == TierFree
}

// Catalog is built once at startup and never mutated afterwards. All
// accessors return copies.
type Catalog struct {
	apps    []App
	byID    map[string]int
	bundles []Bundle
	byBndl  map[string]int
}

var validate = validator.New()

// New validates apps and bundles and returns the registry.
func New(apps []App, bundles []Bundle) (*Catalog, error) {
	c := &Catalog{
		apps:    make([]App, 0, len(apps)),
		byID:    make(map[string]int, len(apps)),
		bundles: make([]Bundle, 0, len(bundles)),
		byBndl:  make(map[string]int, len(bundles)),
	}

	for _, a := range apps {
		a.ID = strings.TrimSpace(a.ID)
		a.BundleID = strings.TrimSpace(a.BundleID)
		if err := validate.Struct(a); err != nil {
			return nil, fmt.Errorf("%w: app %q: %v", ErrInvalid, a.ID, err)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate app id %q", ErrInvalid, a.ID)
		}
		c.byID[a.ID] = len(c.apps)
		c.apps = append(c.apps, a)
	}

	for _, b := range bundles {
		b = b.clone()
		b.ID = strings.TrimSpace(b.ID)
		if err := validate.Struct(b); err != nil {
			return nil, fmt.Errorf("%w: bundle %q: %v", ErrInvalid, b.ID, err)
		}
		if _, dup := c.byBndl[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate bundle id %q", ErrInvalid, b.ID)
		}
		seen := make(map[string]struct{}, len(b.Apps))
		for _, id := range b.Apps {
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: bundle %q lists %q twice", ErrInvalid, b.ID, id)
			}
			seen[id] = struct{}{}

			idx, ok := c.byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: bundle %q references unknown app %q", ErrInvalid, b.ID, id)
			}
			member := c.apps[idx]
			if member.BundleID != b.ID {
				return nil, fmt.Errorf("%w: app %q is in bundle %q but points to %q", ErrInvalid, id, b.ID, member.BundleID)
			}
			if member.IsFree() {
				return nil, fmt.Errorf("%w: bundle %q contains free app %q", ErrInvalid, b.ID, id)
			}
		}
		c.byBndl[b.ID] = len(c.bundles)
		c.bundles = append(c.bundles, b)
	}

	for _, a := range c.apps {
		if a.BundleID == "" {
			continue
		}
		idx, ok := c.byBndl[a.BundleID]
		if !ok {
			return nil, fmt.Errorf("%w: app %q references unknown bundle %q", ErrInvalid, a.ID, a.BundleID)
		}
		if !c.bundles[idx].Contains(a.ID) {
			return nil, fmt.Errorf("%w: app %q points to bundle %q which does not list it", ErrInvalid, a.ID, a.BundleID)
		}
	}

	return c, nil
}

// App returns the catalog entry for appID.
func (c *Catalog) App(appID string) (App, error) {
	idx, ok := c.byID[strings.TrimSpace(appID)]
	if !ok {
		return App{}, fmt.Errorf("%w: %q", ErrUnknownApp, appID)
	}
	return c.apps[idx], nil
}

// Apps returns every app in catalog order.
func (c *Catalog) Apps() []App {
	out := make([]App, len(c.apps))
	copy(out, c.apps)
	return out
}

func (c *Catalog) FreeApps() []App {
	return c.filter(TierFree)
}

func (c *Catalog) PaidApps() []App {
	return c.filter(TierPaid)
}

// IsFree fails closed: an unknown app is an error, never "free".
func (c *Catalog) IsFree(appID string) (bool, error) {
	a, err := c.App(appID)
	if err != nil {
		return false, err
	}
	return a.IsFree(), nil
}

func (c *Catalog) filter(t Tier) []App {
	out := make([]App, 0, len(c.apps))
	for _, a := range c.apps {
		if a.Tier == t {
			out = append(out, a)
		}
	}
	return out
}
