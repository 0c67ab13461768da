package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/cache"
	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
)

const (
	CacheKeyAccessAll = "statistics:access:all"
	CacheKeyAccessApp = "statistics:access:app:"
	DefaultExpiration = time.Minute
)

// Source computes fresh statistics. *access.Store satisfies it.
type Source interface {
	Stats(ctx context.Context, appID string) (access.Stats, error)
}

// Service serves access statistics through the cache. Entries expire after
// ttl and are dropped early by Invalidate.
type Service struct {
	source Source
	cache  cache.Client
	ttl    time.Duration
	appIDs []string
}

// NewService builds the cached view. appIDs lists every per-app key that
// Invalidate must clear.
func NewService(source Source, c cache.Client, ttl time.Duration, appIDs []string) *Service {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &Service{
		source: source,
		cache:  c,
		ttl:    ttl,
		appIDs: append([]string(nil), appIDs...),
	}
}

func cacheKey(appID string) string {
	if appID == "" {
		return CacheKeyAccessAll
	}
	return CacheKeyAccessApp + appID
}

// Stats returns the cached aggregate for appID, or all apps when empty. Cache
// failures fall through to the source.
func (s *Service) Stats(ctx context.Context, appID string) (access.Stats, error) {
	appID = strings.TrimSpace(appID)
	key := cacheKey(appID)

	raw, err := s.cache.Get(ctx, key)
	if err == nil {
		var st access.Stats
		if jerr := json.Unmarshal([]byte(raw), &st); jerr == nil {
			metrics.RecordStatsCache(true)
			return st, nil
		}
		fiberlog.Warnf("[Statistics] dropping undecodable cache entry %s", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		fiberlog.Warnf("[Statistics] cache read %s failed: %v", key, err)
	}
	metrics.RecordStatsCache(false)

	st, err := s.source.Stats(ctx, appID)
	if err != nil {
		return access.Stats{}, err
	}

	if b, err := json.Marshal(st); err == nil {
		if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
			fiberlog.Warnf("[Statistics] cache write %s failed: %v", key, err)
		}
	}
	return st, nil
}

// Invalidate drops every cached aggregate.
func (s *Service) Invalidate(ctx context.Context) {
	keys := make([]string, 0, len(s.appIDs)+1)
	keys = append(keys, CacheKeyAccessAll)
	for _, id := range s.appIDs {
		keys = append(keys, cacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		fiberlog.Warnf("[Statistics] cache invalidation failed: %v", err)
	}
}
