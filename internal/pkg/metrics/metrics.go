// Package metrics exposes the Prometheus collectors of the access service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	accessChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "access",
			Name:      "checks_total",
			Help:      "Access checks by outcome (free, granted, denied, error).",
		},
		[]string{"outcome"},
	)

	grantsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "access",
			Name:      "grants_total",
			Help:      "Grant upserts by provenance and result.",
		},
		[]string{"granted_via", "result"},
	)

	revocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "access",
			Name:      "revocations_total",
			Help:      "Rows deactivated, by reason.",
		},
		[]string{"reason"},
	)

	partialBundles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "access",
			Name:      "partial_bundle_grants_total",
			Help:      "Bundle grants where some but not all member writes failed.",
		},
	)

	storageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Failed access-store operations.",
		},
		[]string{"op"},
	)

	statsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "stats",
			Name:      "cache_lookups_total",
			Help:      "Dashboard statistics cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appaccess",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	pendingRetries = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "appaccess",
			Subsystem: "jobqueue",
			Name:      "pending_grant_retries",
			Help:      "Grant retry jobs waiting to be picked up.",
		},
		func() float64 {
			queueDepthMu.RLock()
			fn := queueDepth
			queueDepthMu.RUnlock()
			if fn == nil {
				return 0
			}
			return fn()
		},
	)

	queueDepthMu sync.RWMutex
	queueDepth   func() float64

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appaccess",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		accessChecks,
		grantsWritten,
		revocations,
		partialBundles,
		storageErrors,
		statsCache,
		pendingRetries,
		httpRequests,
		httpDuration,
	)
}

// Handler returns the exposition handler for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordCheck(outcome string) {
	accessChecks.WithLabelValues(outcome).Inc()
}

func RecordGrant(grantedVia string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	grantsWritten.WithLabelValues(grantedVia, result).Inc()
}

func RecordRevocation(reason string) {
	revocations.WithLabelValues(reason).Inc()
}

func RecordPartialBundle() {
	partialBundles.Inc()
}

func RecordStorageError(op string) {
	storageErrors.WithLabelValues(op).Inc()
}

func RecordStatsCache(hit bool) {
	if hit {
		statsCache.WithLabelValues("hit").Inc()
		return
	}
	statsCache.WithLabelValues("miss").Inc()
}

// SetQueueDepth installs the function read on every scrape of the pending
// grant retries gauge.
func SetQueueDepth(fn func() float64) {
	queueDepthMu.Lock()
	queueDepth = fn
	queueDepthMu.Unlock()
}

// Middleware records request counts and latency. Paths are the matched route
// pattern so ids do not explode label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		method := c.Method()
		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}
