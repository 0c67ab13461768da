package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

type accessKey struct {
	userID string
	appID  string
}

// memoryAccessRepository keeps rows in process memory. It backs DB_DRIVER=memory
// and the service tests.
type memoryAccessRepository struct {
	mu   sync.RWMutex
	rows map[accessKey]entitlements.Grant
}

func NewMemoryAccessRepository() AccessRepository {
	return &memoryAccessRepository{rows: make(map[accessKey]entitlements.Grant)}
}

func (r *memoryAccessRepository) Upsert(ctx context.Context, g entitlements.Grant) (entitlements.Grant, error) {
	if err := ctx.Err(); err != nil {
		return entitlements.Grant{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := accessKey{userID: g.UserID, appID: g.AppID}
	if prev, ok := r.rows[key]; ok {
		g.ID = prev.ID
	} else {
		g.ID = uuid.NewString()
	}
	g.IsActive = true
	g.RevokedAt = nil
	g.RevokeReason = ""
	g.ExpiresAt = copyTime(g.ExpiresAt)

	r.rows[key] = g
	return g, nil
}

func (r *memoryAccessRepository) Get(ctx context.Context, userID, appID string) (entitlements.Grant, error) {
	if err := ctx.Err(); err != nil {
		return entitlements.Grant{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.rows[accessKey{userID: userID, appID: appID}]
	if !ok {
		return entitlements.Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *memoryAccessRepository) Deactivate(ctx context.Context, userID, appID, reason string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := accessKey{userID: userID, appID: appID}
	g, ok := r.rows[key]
	if !ok || !g.IsActive {
		return false, nil
	}
	g.IsActive = false
	g.RevokedAt = &at
	g.RevokeReason = reason
	r.rows[key] = g
	return true, nil
}

func (r *memoryAccessRepository) ListByUser(ctx context.Context, userID string) ([]entitlements.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entitlements.Grant, 0)
	for k, g := range r.rows {
		if k.userID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].AppID < out[j].AppID
		}
		return out[i].GrantedAt.Before(out[j].GrantedAt)
	})
	return out, nil
}

func (r *memoryAccessRepository) CountActive(ctx context.Context, appID string, now time.Time) ([]GrantCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type bucket struct {
		appID string
		via   entitlements.GrantedVia
	}

	r.mu.RLock()
	counts := make(map[bucket]int64)
	for _, g := range r.rows {
		if appID != "" && g.AppID != appID {
			continue
		}
		if !g.Usable(now) {
			continue
		}
		counts[bucket{appID: g.AppID, via: g.GrantedVia}]++
	}
	r.mu.RUnlock()

	out := make([]GrantCount, 0, len(counts))
	for b, n := range counts {
		out = append(out, GrantCount{AppID: b.appID, GrantedVia: b.via, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppID == out[j].AppID {
			return out[i].GrantedVia < out[j].GrantedVia
		}
		return out[i].AppID < out[j].AppID
	})
	return out, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
