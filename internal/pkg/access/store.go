// Package access is the stateful half of the entitlement core. It grants,
// checks and revokes per-user per-app access on top of an AccessRepository.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/app/repository"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
)

const (
	maxGrantAttempts = 3

	RevokeReasonExpired = "expired"
	RevokeReasonAdmin   = "admin"
)

// Invalidator drops cached aggregates after access state changed.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Store is safe for concurrent use. It holds no mutable state of its own.
type Store struct {
	repo        repository.AccessRepository
	resolver    *entitlements.Resolver
	invalidator Invalidator
}

func NewStore(repo repository.AccessRepository, resolver *entitlements.Resolver) *Store {
	return &Store{repo: repo, resolver: resolver}
}

// SetInvalidator registers the cache to clear when CheckAccess expires a
// grant. Call it during wiring, before the store serves requests.
func (s *Store) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

func (s *Store) Resolver() *entitlements.Resolver {
	return s.resolver
}

func (s *Store) Catalog() *catalog.Catalog {
	return s.resolver.Catalog()
}

// GrantInput describes one grant write. ExpiresAt nil means permanent.
type GrantInput struct {
	UserID     string
	AppID      string
	GrantedVia entitlements.GrantedVia
	PaymentID  string
	ExpiresAt  *time.Time
}

func (in GrantInput) normalize() GrantInput {
	in.UserID = strings.TrimSpace(in.UserID)
	in.AppID = strings.TrimSpace(in.AppID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	return in
}

// Grant upserts the single row for (UserID, AppID). An inactive row is
// reactivated in place. Bundle siblings are not touched.
func (s *Store) Grant(ctx context.Context, in GrantInput) (entitlements.Grant, error) {
	in = in.normalize()
	if in.UserID == "" {
		return entitlements.Grant{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if in.GrantedVia == entitlements.ViaFree {
		return entitlements.Grant{}, fmt.Errorf("%w: %s", ErrFreeApp, in.AppID)
	}
	if !in.GrantedVia.Persistable() {
		return entitlements.Grant{}, fmt.Errorf("%w: granted_via %q", ErrInvalidInput, in.GrantedVia)
	}

	app, err := s.Catalog().App(in.AppID)
	if err != nil {
		return entitlements.Grant{}, err
	}
	if app.IsFree() {
		return entitlements.Grant{}, fmt.Errorf("%w: %s", ErrFreeApp, app.ID)
	}

	g := entitlements.Grant{
		UserID:     in.UserID,
		AppID:      app.ID,
		GrantedVia: in.GrantedVia,
		PaymentID:  in.PaymentID,
		IsActive:   true,
		GrantedAt:  s.resolver.Now().UTC(),
		ExpiresAt:  in.ExpiresAt,
	}

	var stored entitlements.Grant
	for attempt := 1; attempt <= maxGrantAttempts; attempt++ {
		stored, err = s.repo.Upsert(ctx, g)
		if err == nil || !errors.Is(err, repository.ErrConflict) {
			break
		}
		fiberlog.Warnf("[Access] grant conflict op=grant user=%s app=%s attempt=%d: %v", g.UserID, g.AppID, attempt, err)
	}
	if err != nil {
		metrics.RecordGrant(string(g.GrantedVia), false)
		metrics.RecordStorageError("grant")
		fiberlog.Errorf("[Access] op=grant user=%s app=%s via=%s failed: %v", g.UserID, g.AppID, g.GrantedVia, err)
		return entitlements.Grant{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	metrics.RecordGrant(string(g.GrantedVia), true)
	return stored, nil
}

// CheckAccess never fails open. Free apps answer true without a store read,
// unauthenticated callers (empty userID) get false for paid apps, and a
// storage failure yields false together with ErrStorageUnavailable. An expired
// row is revoked before false is returned.
func (s *Store) CheckAccess(ctx context.Context, userID, appID string) (bool, error) {
	userID = strings.TrimSpace(userID)

	app, err := s.Catalog().App(appID)
	if err != nil {
		metrics.RecordCheck("error")
		return false, err
	}
	if app.IsFree() {
		metrics.RecordCheck("free")
		return true, nil
	}
	if userID == "" {
		metrics.RecordCheck("denied")
		return false, nil
	}

	var row *entitlements.Grant
	g, err := s.repo.Get(ctx, userID, app.ID)
	switch {
	case err == nil:
		row = &g
	case errors.Is(err, repository.ErrNotFound):
	default:
		metrics.RecordCheck("error")
		metrics.RecordStorageError("check")
		fiberlog.Errorf("[Access] op=check user=%s app=%s failed, denying: %v", userID, app.ID, err)
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	d, err := s.resolver.Classify(app.ID, row)
	if err != nil {
		metrics.RecordCheck("error")
		return false, err
	}

	if d.Reason == entitlements.ReasonExpired {
		changed, err := s.revoke(ctx, userID, app.ID, RevokeReasonExpired)
		if err != nil {
			// The check answer stays false; the next check retries the revoke.
			fiberlog.Warnf("[Access] op=expire user=%s app=%s: %v", userID, app.ID, err)
		} else if changed && s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
	}

	if d.HasAccess {
		metrics.RecordCheck("granted")
	} else {
		metrics.RecordCheck("denied")
	}
	return d.HasAccess, nil
}

// Revoke deactivates the row for (userID, appID). Revoking a missing or
// already inactive row is a no-op.
func (s *Store) Revoke(ctx context.Context, userID, appID, reason string) error {
	_, err := s.revoke(ctx, userID, appID, reason)
	return err
}

func (s *Store) revoke(ctx context.Context, userID, appID, reason string) (bool, error) {
	userID = strings.TrimSpace(userID)
	appID = strings.TrimSpace(appID)
	if userID == "" || appID == "" {
		return false, fmt.Errorf("%w: user id and app id are required", ErrInvalidInput)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	changed, err := s.repo.Deactivate(ctx, userID, appID, reason, s.resolver.Now().UTC())
	if err != nil {
		metrics.RecordStorageError("revoke")
		fiberlog.Errorf("[Access] op=revoke user=%s app=%s reason=%s failed: %v", userID, appID, reason, err)
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if changed {
		metrics.RecordRevocation(reason)
		fiberlog.Infof("[Access] revoked user=%s app=%s reason=%s", userID, appID, reason)
	}
	return changed, nil
}

// UserApp is one entry of the apps a user can open right now.
type UserApp struct {
	AppID      string                  `json:"app_id"`
	GrantedVia entitlements.GrantedVia `json:"granted_via"`
	IsFree     bool                    `json:"is_free"`
	ExpiresAt  *time.Time              `json:"expires_at,omitempty"`
}

// ListUserApps returns every free app plus the user's usable grants, in
// catalog order. Expired rows are filtered, not revoked.
func (s *Store) ListUserApps(ctx context.Context, userID string) ([]UserApp, error) {
	userID = strings.TrimSpace(userID)

	usable := make(map[string]entitlements.Grant)
	if userID != "" {
		grants, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			metrics.RecordStorageError("list")
			fiberlog.Errorf("[Access] op=list user=%s failed: %v", userID, err)
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		now := s.resolver.Now()
		for _, g := range grants {
			if g.Usable(now) {
				usable[g.AppID] = g
			}
		}
	}

	apps := s.Catalog().Apps()
	out := make([]UserApp, 0, len(apps))
	for _, a := range apps {
		if a.IsFree() {
			out = append(out, UserApp{AppID: a.ID, GrantedVia: entitlements.ViaFree, IsFree: true})
			continue
		}
		if g, ok := usable[a.ID]; ok {
			out = append(out, UserApp{AppID: a.ID, GrantedVia: g.GrantedVia, ExpiresAt: g.ExpiresAt})
		}
	}
	return out, nil
}

// Summary classifies every catalog app for userID.
func (s *Store) Summary(ctx context.Context, userID string) ([]entitlements.AppAccess, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return s.resolver.Summary(nil), nil
	}

	grants, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		metrics.RecordStorageError("summary")
		fiberlog.Errorf("[Access] op=summary user=%s failed: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return s.resolver.Summary(grants), nil
}
