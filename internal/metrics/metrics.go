// Package metrics exposes Prometheus counters and histograms for the
// retrieval pipeline. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recommendation"

// Collector holds every metric the service records.
type Collector struct {
	tierJobs      *prometheus.CounterVec
	tierFailures  *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	fetchRetries  prometheus.Counter
	fetchRequests *prometheus.CounterVec
	sweepRemoved  *prometheus.CounterVec

	retrievalDuration prometheus.Histogram
	rankDuration      prometheus.Histogram
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tierJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_jobs_total",
			Help:      "Jobs contributed by each retrieval tier",
		}, []string{"tier"}),
		tierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_failures_total",
			Help:      "Retrieval tier failures that were degraded around",
		}, []string{"tier"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache entries found live",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache entries missing or expired",
		}),
		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Upstream fetch attempts that were retried",
		}),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Upstream fetch requests by outcome",
		}, []string{"outcome"}),
		sweepRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_removed_total",
			Help:      "Entries removed by expiry sweeps",
		}, []string{"kind"}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Time spent gathering candidates across tiers",
			Buckets:   prometheus.DefBuckets,
		}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Time spent ranking candidates",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.tierJobs, c.tierFailures, c.cacheHits, c.cacheMisses, c.fetchRetries,
		c.fetchRequests, c.sweepRemoved, c.retrievalDuration, c.rankDuration,
	)
	return c
}

// RecordTier records one tier's outcome.
func (c *Collector) RecordTier(tier string, jobs int, failed bool) {
	if c == nil {
		return
	}
	c.tierJobs.WithLabelValues(tier).Add(float64(jobs))
	if failed {
		c.tierFailures.WithLabelValues(tier).Inc()
	}
}

func (c *Collector) RecordCacheLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheHits.Inc()
	} else {
		c.cacheMisses.Inc()
	}
}

func (c *Collector) RecordFetchRetry() {
	if c == nil {
		return
	}
	c.fetchRetries.Inc()
}

// RecordFetchRequest counts one upstream request; outcome is "ok",
// "rate_limited", "server_error", "client_error" or "network_error".
func (c *Collector) RecordFetchRequest(outcome string) {
	if c == nil {
		return
	}
	c.fetchRequests.WithLabelValues(outcome).Inc()
}

// RecordSweep counts removed entries by kind ("job" or "query").
func (c *Collector) RecordSweep(kind string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.sweepRemoved.WithLabelValues(kind).Add(float64(n))
}

func (c *Collector) ObserveRetrieval(d time.Duration) {
	if c == nil {
		return
	}
	c.retrievalDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveRank(d time.Duration) {
	if c == nil {
		return
	}
	c.rankDuration.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
