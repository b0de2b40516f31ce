package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains service-level metrics for the monitoring surfaces (not per-cache statistics)
type Metrics struct {
	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	StreamClients prometheus.Gauge
	StreamFrames  prometheus.Counter

	HealthCheckStatus *prometheus.GaugeVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all service metrics
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cachestats",
				Subsystem: "queries",
				Name:      "total",
				Help:      "Total attribute queries by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cachestats",
				Subsystem: "queries",
				Name:      "duration_seconds",
				Help:      "Attribute query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"transport"},
		),

		StreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachestats",
				Subsystem: "stream",
				Name:      "clients",
				Help:      "Connected attribute stream clients",
			},
		),

		StreamFrames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cachestats",
				Subsystem: "stream",
				Name:      "frames_total",
				Help:      "Total attribute frames pushed to stream clients",
			},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cachestats",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachestats",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachestats",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cachestats",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachestats",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open)",
			},
		),
	}
}

// RecordQuery counts one attribute query and observes its duration
func (c *Metrics) RecordQuery(transport, outcome string, duration time.Duration) {
	c.QueriesTotal.WithLabelValues(transport, outcome).Inc()
	c.QueryDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// RecordStreamClient adjusts the connected stream client gauge by delta
func (c *Metrics) RecordStreamClient(delta int) {
	c.StreamClients.Add(float64(delta))
}

// RecordStreamFrame increments the pushed frame counter
func (c *Metrics) RecordStreamFrame() {
	c.StreamFrames.Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(open bool) {
	value := 0.0
	if open {
		value = 1.0
	}
	c.NATSCircuitBreaker.Set(value)
}
