package middleware

import (
	"context"

	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "postboard"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "postboard").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeAccountID adds the caller's account id. Disabled by default.
	IncludeAccountID bool

	// Filter determines which calls to trace. If nil, all are traced.
	Filter func(call *protocol.Call) bool
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeAccountID enables the rpc.account_id attribute.
func WithIncludeAccountID(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeAccountID = include
	}
}

// WithCallFilter sets a filter function for calls.
func WithCallFilter(filter func(call *protocol.Call) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// OpenTelemetry creates middleware that opens a span named rpc.<op> for
// each call. The span carries the op and the outcome; transport errors
// set an error status, business failures do not.
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Configure it in main() before serving:
//
//	otel.SetTracerProvider(tp)
//	d := rpc.NewDispatcher(st, rpc.WithMiddleware(middleware.OpenTelemetry()))
func OpenTelemetry(opts ...OTelOption) rpc.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return func(next rpc.Handler) rpc.Handler {
		return func(ctx context.Context, cx *rpc.Cx, call *protocol.Call) *protocol.Reply {
			if config.Filter != nil && !config.Filter(call) {
				return next(ctx, cx, call)
			}

			attrs := []attribute.KeyValue{
				attribute.String("rpc.op", call.Op),
				attribute.Int("rpc.args_size", len(call.Args)),
			}
			if config.IncludeAccountID && cx != nil && cx.Account != nil {
				attrs = append(attrs, attribute.Int64("rpc.account_id", cx.Account.ID))
			}

			ctx, span := tracer.Start(ctx, "rpc."+call.Op,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			reply := next(ctx, cx, call)

			span.SetAttributes(attribute.String("rpc.outcome", Outcome(reply)))
			switch {
			case reply != nil && reply.Error != nil:
				span.RecordError(reply.Error)
				span.SetStatus(codes.Error, reply.Error.Code.String())
			case reply != nil && reply.Failure != nil:
				span.SetAttributes(attribute.String("rpc.failure_code", reply.Failure.Code))
				span.SetStatus(codes.Ok, "")
			default:
				span.SetStatus(codes.Ok, "")
			}
			return reply
		}
	}
}
