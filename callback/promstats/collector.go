// Package promstats exports callback registry statistics as Prometheus metrics.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghettovoice/clickback/callback"
)

// StatsSource is anything that reports registry statistics, usually a [callback.Registry].
type StatsSource interface {
	Stats() callback.StatsReport
}

// Collector is a [prometheus.Collector] that reads a [StatsSource] on every scrape.
type Collector struct {
	src StatsSource

	active     *prometheus.Desc
	registered *prometheus.Desc
	runs       *prometheus.Desc
	failures   *prometheus.Desc
	misses     *prometheus.Desc
	evictions  *prometheus.Desc
}

// NewCollector creates a new [Collector].
// Metric names are prefixed with namespace, if it is not empty.
func NewCollector(src StatsSource, namespace string) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "callbacks", n)
	}
	return &Collector{
		src: src,
		active: prometheus.NewDesc(name("active"),
			"Number of callbacks currently held by the registry.", nil, nil),
		registered: prometheus.NewDesc(name("registered_total"),
			"Total number of registered callbacks.", nil, nil),
		runs: prometheus.NewDesc(name("runs_total"),
			"Total number of callback runs.", nil, nil),
		failures: prometheus.NewDesc(name("action_failures_total"),
			"Total number of callback runs whose action failed.", nil, nil),
		misses: prometheus.NewDesc(name("misses_total"),
			"Total number of rejected callback runs.", []string{"reason"}, nil),
		evictions: prometheus.NewDesc(name("evictions_total"),
			"Total number of callbacks removed from the registry.", []string{"reason"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.registered
	ch <- c.runs
	ch <- c.failures
	ch <- c.misses
	ch <- c.evictions
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.Active))
	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.CounterValue, float64(s.Registered))
	ch <- prometheus.MustNewConstMetric(c.runs, prometheus.CounterValue, float64(s.Runs))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.ActionFailures))

	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses.NotFound), "not_found")
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses.Expired),
		string(callback.EvictReasonExpired))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses.Exhausted),
		string(callback.EvictReasonExhausted))

	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions.Expired),
		string(callback.EvictReasonExpired))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions.Exhausted),
		string(callback.EvictReasonExhausted))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions.Closed),
		string(callback.EvictReasonClosed))
}
