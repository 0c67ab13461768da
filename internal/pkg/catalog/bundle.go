package catalog

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Bundle groups two or more paid apps: buying any member unlocks all of them.
// ValidUntil only frames the promotional offer; it never gates the unlock.
type Bundle struct {
	ID          string           `yaml:"id" json:"id" validate:"required"`
	DisplayName string           `yaml:"display_name" json:"display_name"`
	Apps        []string         `yaml:"apps" json:"apps" validate:"min=2,dive,required"`
	Currency    string           `yaml:"currency" json:"currency" validate:"omitempty,len=3"`
	PriceTiers  map[string]int64 `yaml:"price_tiers" json:"price_tiers" validate:"dive,keys,required,endkeys,gte=0"`
	ValidUntil  string           `yaml:"valid_until" json:"valid_until" validate:"required,datetime=2006-01-02"`
}

func (b Bundle) Contains(appID string) bool {
	for _, id := range b.Apps {
		if id == appID {
			return true
		}
	}
	return false
}

// IsOfferActive compares calendar dates, not instants: the offer runs through
// the whole ValidUntil day in the local zone of asOf.
func (b Bundle) IsOfferActive(asOf time.Time) bool {
	return asOf.Format(dateLayout) <= b.ValidUntil
}

// Price returns the amount in minor currency units for a tier label such as
// "introductory" or "regular".
func (b Bundle) Price(tier string) (int64, bool) {
	v, ok := b.PriceTiers[strings.ToLower(strings.TrimSpace(tier))]
	return v, ok
}

func (b Bundle) clone() Bundle {
	out := b
	out.Apps = make([]string, len(b.Apps))
	for i, id := range b.Apps {
		out.Apps[i] = strings.TrimSpace(id)
	}
	if b.PriceTiers != nil {
		out.PriceTiers = make(map[string]int64, len(b.PriceTiers))
		for k, v := range b.PriceTiers {
			out.PriceTiers[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	return out
}

func (c *Catalog) Bundle(bundleID string) (Bundle, error) {
	idx, ok := c.byBndl[strings.TrimSpace(bundleID)]
	if !ok {
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnknownBundle, bundleID)
	}
	return c.bundles[idx].clone(), nil
}

// BundleForApp reports the bundle an app belongs to. The bool is false for
// standalone apps.
func (c *Catalog) BundleForApp(appID string) (Bundle, bool, error) {
	a, err := c.App(appID)
	if err != nil {
		return Bundle{}, false, err
	}
	if a.BundleID == "" {
		return Bundle{}, false, nil
	}
	b, err := c.Bundle(a.BundleID)
	if err != nil {
		return Bundle{}, false, err
	}
	return b, true, nil
}

func (c *Catalog) Bundles() []Bundle {
	out := make([]Bundle, 0, len(c.bundles))
	for _, b := range c.bundles {
		out = append(out, b.clone())
	}
	return out
}
