// Package metrics collects Prometheus metrics for coordinator transitions,
// cart migrations, discarded persisted state and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/atelier/internal/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the application records through.
type Recorder interface {
	RecordIntent(intent, outcome string)
	RecordMigration(lines int)
	RecordMalformedState(key string)
	RecordHTTPRequest(method string, status int, d time.Duration)
}

// Collector is the Prometheus backed Recorder.
type Collector struct {
	intents       *prometheus.CounterVec
	migrations    prometheus.Counter
	migratedLines prometheus.Counter
	malformed     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_intents_total",
			Help: "Coordinator intents by name and outcome.",
		}, []string{"intent", "outcome"}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_cart_migrations_total",
			Help: "Guest carts merged into an owned cart.",
		}),
		migratedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_cart_migrated_lines_total",
			Help: "Guest cart lines merged into owned carts.",
		}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_malformed_state_total",
			Help: "Persisted values discarded because they could not be decoded.",
		}, []string{"key"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atelier_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.intents,
		c.migrations,
		c.migratedLines,
		c.malformed,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordIntent(intent, outcome string) {
	c.intents.WithLabelValues(intent, outcome).Inc()
}

// RecordMigration counts one migration. Migrations that moved nothing are
// not recorded.
func (c *Collector) RecordMigration(lines int) {
	if lines <= 0 {
		return
	}
	c.migrations.Inc()
	c.migratedLines.Add(float64(lines))
}

func (c *Collector) RecordMalformedState(key string) {
	c.malformed.WithLabelValues(keyLabel(key)).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// keyLabel folds per-user cart keys into one label value.
func keyLabel(key string) string {
	switch key {
	case common.SessionKey, common.ClientsKey, common.DesignersKey,
		common.GuestCartKey, common.StorageVersionKey:
		return key
	}
	if strings.HasPrefix(key, common.OwnedCartKeyPrefix) {
		return "cart_owned"
	}
	return "other"
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordIntent(string, string)                  {}
func (Noop) RecordMigration(int)                          {}
func (Noop) RecordMalformedState(string)                  {}
func (Noop) RecordHTTPRequest(string, int, time.Duration) {}
