// Package middleware provides production middleware for the rpc
// dispatcher.
//
// # Prometheus Metrics
//
// Metrics counts calls by operation and outcome and times handlers:
//   - postboard_rpc_calls_total{op,status}
//   - postboard_rpc_duration_seconds{op}
//   - postboard_rpc_panics_total
//
// The status label is "ok", "failure" for business failures, or the
// transport ErrorCode name such as "HandlerPanic".
//
//	reg := prometheus.NewRegistry()
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	d := rpc.NewDispatcher(st, rpc.WithMiddleware(m.Middleware()))
//	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # OpenTelemetry
//
// OpenTelemetry opens a span named rpc.<op> for every call:
//
//	rpc.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("postboard")),
//	)
package middleware
