// Package metrics exposes HotSync Nexus sync-engine counters and gauges
// as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector wraps the Prometheus metrics this repository exposes:
// session counts, transferred record/byte totals, PADP retry counts, and
// remote DLP error counts.
type Collector struct {
	registry *prometheus.Registry

	sessionsTotal      prometheus.Counter
	sessionActive      prometheus.Gauge
	databasesPending   prometheus.Gauge
	recordsTransferred prometheus.Counter
	bytesTotal         *prometheus.CounterVec
	padpRetriesTotal   prometheus.Counter
	remoteErrorsTotal  *prometheus.CounterVec
}

// NewCollector creates a new metrics collector registered against its
// own Prometheus registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotsync_sessions_total",
			Help: "Total number of HotSync sessions started",
		}),
		sessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hotsync_session_active",
			Help: "1 while a HotSync session is in progress, 0 otherwise",
		}),
		databasesPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hotsync_databases_pending",
			Help: "Number of databases remaining to process in the current sync",
		}),
		recordsTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotsync_records_transferred_total",
			Help: "Total number of records read or written across all sessions",
		}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotsync_bytes_total",
			Help: "Total bytes moved over the transport, labeled by direction",
		}, []string{"direction"}),
		padpRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotsync_padp_retries_total",
			Help: "Total PADP fragment retransmissions",
		}),
		remoteErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotsync_remote_errors_total",
			Help: "Total DLP responses with a non-OK status, labeled by status",
		}, []string{"status"}),
	}

	registry.MustRegister(
		c.sessionsTotal, c.sessionActive, c.databasesPending,
		c.recordsTransferred, c.bytesTotal, c.padpRetriesTotal, c.remoteErrorsTotal,
	)
	return c
}

// SessionStarted records a new HotSync session beginning.
func (c *Collector) SessionStarted() {
	c.sessionsTotal.Inc()
	c.sessionActive.Set(1)
}

// SessionEnded marks the current session as finished.
func (c *Collector) SessionEnded() {
	c.sessionActive.Set(0)
	c.databasesPending.Set(0)
}

// DatabasesPending sets the count of databases left to process.
func (c *Collector) DatabasesPending(n int) {
	c.databasesPending.Set(float64(n))
}

// RecordsTransferred adds n to the records-transferred counter.
func (c *Collector) RecordsTransferred(n int) {
	c.recordsTransferred.Add(float64(n))
}

// BytesRead records bytes read from the transport.
func (c *Collector) BytesRead(n int) {
	c.bytesTotal.WithLabelValues("read").Add(float64(n))
}

// BytesWritten records bytes written to the transport.
func (c *Collector) BytesWritten(n int) {
	c.bytesTotal.WithLabelValues("write").Add(float64(n))
}

// PADPRetried records one PADP fragment retransmission.
func (c *Collector) PADPRetried() {
	c.padpRetriesTotal.Inc()
}

// RemoteError records a DLP response whose status was not OK.
func (c *Collector) RemoteError(status string) {
	c.remoteErrorsTotal.WithLabelValues(status).Inc()
}

// Registry returns the Prometheus registry backing this collector, for
// wiring into an HTTP exposition handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
