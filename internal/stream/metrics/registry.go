package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Poll metrics
	pollTotal         *prometheus.CounterVec
	pollDuration      *prometheus.HistogramVec
	messagesReceived  *prometheus.CounterVec
	demandOutstanding *prometheus.GaugeVec

	// Ack metrics
	ackTotal *prometheus.CounterVec

	// Lifecycle metrics
	drainTotal prometheus.Counter

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		pollTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redstream_poll_total",
				Help: "Total number of poll attempts against the stream store",
			},
			[]string{"stream", "group", "status"}, // status: success, error, empty
		),

		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redstream_poll_duration_seconds",
				Help:    "Time spent fetching messages from the stream store",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"stream", "group"},
		),

		messagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redstream_messages_received_total",
				Help: "Total number of messages fetched and emitted downstream",
			},
			[]string{"stream", "group"},
		),

		demandOutstanding: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redstream_demand_outstanding",
				Help: "Downstream demand credit not yet satisfied",
			},
			[]string{"stream", "group"},
		),

		ackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redstream_ack_total",
				Help: "Total number of message acknowledgments",
			},
			[]string{"stream", "group", "status"}, // status: success, error
		),

		drainTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "redstream_drain_total",
				Help: "Number of producer drain requests",
			},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redstream_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "redstream_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Register application metrics
	registry.MustRegister(
		r.pollTotal,
		r.pollDuration,
		r.messagesReceived,
		r.demandOutstanding,
		r.ackTotal,
		r.drainTotal,
		r.systemInfo,
		r.startTime,
	)

	// Set start time
	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordPoll records a fetch attempt against the stream store
func (r *Registry) RecordPoll(stream, group string, messagesReceived int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else if messagesReceived == 0 {
		status = "empty"
	}

	r.pollTotal.WithLabelValues(stream, group, status).Inc()
	r.pollDuration.WithLabelValues(stream, group).Observe(duration.Seconds())
	if messagesReceived > 0 {
		r.messagesReceived.WithLabelValues(stream, group).Add(float64(messagesReceived))
	}
}

// RecordAck records a message acknowledgment
func (r *Registry) RecordAck(stream, group string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.ackTotal.WithLabelValues(stream, group, status).Inc()
}

// UpdateDemand updates the outstanding demand credit gauge
func (r *Registry) UpdateDemand(stream, group string, demand float64) {
	r.demandOutstanding.WithLabelValues(stream, group).Set(demand)
}

// RecordDrain records a producer drain request
func (r *Registry) RecordDrain() {
	r.drainTotal.Inc()
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}
