package access

import (
	"context"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
)

// BundleResult reports what a purchase unlocked. BundledApps lists every app
// the purchase entitles, purchased app first.
type BundleResult struct {
	UserID         string               `json:"user_id"`
	PurchasedAppID string               `json:"purchased_app_id"`
	PaymentID      string               `json:"payment_id"`
	BundledApps    []string             `json:"bundled_apps"`
	Granted        []entitlements.Grant `json:"-"`
	Failed         []FailedGrant        `json:"-"`
}

// PurchasedGranted reports whether the paid-for app itself was written.
func (r BundleResult) PurchasedGranted() bool {
	for _, g := range r.Granted {
		if g.AppID == r.PurchasedAppID {
			return true
		}
	}
	return false
}

func (r BundleResult) GrantedAppIDs() []string {
	out := make([]string, 0, len(r.Granted))
	for _, g := range r.Granted {
		out = append(out, g.AppID)
	}
	return out
}

func (r BundleResult) FailedAppIDs() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.AppID)
	}
	return out
}

// GrantBundle grants the purchased app via payment and every other member of
// its bundle via bundle, all under paymentID. Writes are independent: when
// some fail the result carries both lists and the error is a
// *PartialBundleError. When every write fails the error wraps
// ErrStorageUnavailable.
func (s *Store) GrantBundle(ctx context.Context, userID, purchasedAppID, paymentID string) (BundleResult, error) {
	userID = strings.TrimSpace(userID)
	paymentID = strings.TrimSpace(paymentID)
	if userID == "" || paymentID == "" {
		return BundleResult{}, fmt.Errorf("%w: user id and payment id are required", ErrInvalidInput)
	}

	app, err := s.Catalog().App(purchasedAppID)
	if err != nil {
		return BundleResult{}, err
	}
	if app.IsFree() {
		return BundleResult{}, fmt.Errorf("%w: %s", ErrFreeApp, app.ID)
	}

	apps, err := s.resolver.AppsToUnlock(app.ID)
	if err != nil {
		return BundleResult{}, err
	}

	res := BundleResult{
		UserID:         userID,
		PurchasedAppID: app.ID,
		PaymentID:      paymentID,
		BundledApps:    apps,
	}
	for _, id := range apps {
		via := entitlements.ViaBundle
		if id == app.ID {
			via = entitlements.ViaPayment
		}
		g, err := s.Grant(ctx, GrantInput{
			UserID:     userID,
			AppID:      id,
			GrantedVia: via,
			PaymentID:  paymentID,
		})
		if err != nil {
			res.Failed = append(res.Failed, FailedGrant{AppID: id, GrantedVia: via, Err: err})
			continue
		}
		res.Granted = append(res.Granted, g)
	}

	switch {
	case len(res.Failed) == 0:
		fiberlog.Infof("[Access] payment=%s user=%s unlocked %s", paymentID, userID, strings.Join(apps, ","))
		return res, nil
	case len(res.Granted) == 0:
		return res, fmt.Errorf("%w: no app of payment %s could be granted", ErrStorageUnavailable, paymentID)
	default:
		metrics.RecordPartialBundle()
		perr := &PartialBundleError{Result: res}
		fiberlog.Errorf("[Access] op=grant_bundle user=%s: %v", userID, perr)
		return res, perr
	}
}
