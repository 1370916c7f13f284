package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/rpc"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "postboard").
	Namespace string

	// Subsystem is the metrics subsystem (default: "rpc").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for call duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		if registry != nil {
			c.Registry = registry
		}
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "postboard",
		Subsystem: "rpc",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Outcome labels. Transport errors use the ErrorCode name.
const (
	StatusOK      = "ok"
	StatusFailure = "failure"
)

// Metrics holds the RPC collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   prometheus.Counter
}

// NewMetrics registers the collectors:
//
//   - postboard_rpc_calls_total{op,status}: calls by outcome
//   - postboard_rpc_duration_seconds{op}: handler latency
//   - postboard_rpc_panics_total: recovered handler panics
//
// Registering twice on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "calls_total",
			Help:        "Total number of RPC calls by operation and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duration_seconds",
			Help:        "RPC handler duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "panics_total",
			Help:        "Total number of recovered handler panics",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Middleware records every dispatched call. Unknown operations never
// reach middleware, so the op label only takes registered names.
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	d := rpc.NewDispatcher(st, rpc.WithMiddleware(m.Middleware()))
func (m *Metrics) Middleware() rpc.Middleware {
	return func(next rpc.Handler) rpc.Handler {
		return func(ctx context.Context, cx *rpc.Cx, call *protocol.Call) *protocol.Reply {
			start := time.Now()
			reply := next(ctx, cx, call)
			m.duration.WithLabelValues(call.Op).Observe(time.Since(start).Seconds())

			status := Outcome(reply)
			m.calls.WithLabelValues(call.Op, status).Inc()
			if reply.Error != nil && reply.Error.Code == protocol.ErrHandlerPanic {
				m.panics.Inc()
			}
			return reply
		}
	}
}

// Outcome returns the status label for a reply.
func Outcome(reply *protocol.Reply) string {
	switch {
	case reply == nil:
		return protocol.ErrUnknown.String()
	case reply.Status == protocol.StatusTransportError && reply.Error != nil:
		return reply.Error.Code.String()
	case reply.Result == protocol.ResultFailure:
		return StatusFailure
	}
	return StatusOK
}
