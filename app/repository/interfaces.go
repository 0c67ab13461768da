package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is a unique-key violation surfaced by the store despite the
	// upsert. Callers may retry.
	ErrConflict = errors.New("conflicting write")
)

// AccessRepository persists one row per (user, app).
type AccessRepository interface {
	// Upsert atomically creates or overwrites the row for (g.UserID, g.AppID),
	// marking it active and clearing revoke fields. An existing row keeps its ID.
	Upsert(ctx context.Context, g entitlements.Grant) (entitlements.Grant, error)
	Get(ctx context.Context, userID, appID string) (entitlements.Grant, error)
	// Deactivate flips an active row to inactive. It reports false when no
	// active row matched.
	Deactivate(ctx context.Context, userID, appID, reason string, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]entitlements.Grant, error)
	// CountActive groups usable rows (active, not expired at now) by app and
	// provenance. An empty appID counts every app.
	CountActive(ctx context.Context, appID string, now time.Time) ([]GrantCount, error)
}

// PaymentRepository writes audit data into the external payments table.
type PaymentRepository interface {
	UpdateBundleInfo(ctx context.Context, paymentID string, bundledApps []string) error
}

// GrantCount is one aggregate bucket.
type GrantCount struct {
	AppID      string
	GrantedVia entitlements.GrantedVia
	Count      int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	Access  AccessRepository
	Payment PaymentRepository
}
