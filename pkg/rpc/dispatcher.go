package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/session"
)

// Handler runs one decoded call and produces its reply.
type Handler func(ctx context.Context, cx *Cx, call *protocol.Call) *protocol.Reply

// Middleware wraps a Handler. The reply is always non-nil; panics inside
// handlers have already been turned into ErrHandlerPanic replies.
type Middleware func(next Handler) Handler

// Resolver resolves the caller of an HTTP request. *session.Resolver
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*session.Identity, error)
}

// Generic transport messages. Detail is logged, never sent.
const (
	msgInternal = "internal error"
	msgNotFound = "not found"
)

// Dispatcher routes calls to registered operations.
type Dispatcher struct {
	registry   *Registry
	store      Store
	resolver   Resolver
	cookies    session.CookiePolicy
	middleware []Middleware
	logger     *slog.Logger

	handler Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithResolver sets how callers are identified when the request
// context carries no identity. Default: a session.Resolver on the store.
func WithResolver(r Resolver) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.resolver = r
		}
	}
}

// WithCookiePolicy sets the session cookie attributes.
func WithCookiePolicy(p session.CookiePolicy) Option {
	return func(d *Dispatcher) {
		d.cookies = p
	}
}

// WithMiddleware appends middleware. The first one is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mw...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher serving st.
func NewDispatcher(st Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		cookies: session.DefaultCookiePolicy(false),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = DefaultRegistry()
	}
	if d.resolver == nil {
		d.resolver = session.NewResolver(st, session.WithLogger(d.logger), session.WithCookieName(d.cookies.Name))
	}
	d.logger = d.logger.With("component", "rpc")

	h := d.invoke
	for i := len(d.middleware) - 1; i >= 0; i-- {
		h = d.middleware[i](h)
	}
	d.handler = h
	return d
}

// Registry returns the operations the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs call for cx. Unknown operations never reach a handler or
// the middleware.
func (d *Dispatcher) Dispatch(ctx context.Context, cx *Cx, call *protocol.Call) *protocol.Reply {
	if !d.registry.Has(call.Op) {
		return protocol.TransportError(protocol.ErrUnknownOperation, "unknown operation")
	}
	if cx.Store == nil {
		cx.Store = d.store
	}
	if cx.Logger == nil {
		cx.Logger = d.logger.With("op", call.Op)
	}
	return d.handler(ctx, cx, call)
}

// invoke is the innermost handler.
func (d *Dispatcher) invoke(ctx context.Context, cx *Cx, call *protocol.Call) (reply *protocol.Reply) {
	op, _ := d.registry.Lookup(call.Op)

	defer func() {
		if r := recover(); r != nil {
			herr := NewHandlerError(call.Op, r, debug.Stack())
			d.logger.Error("handler panic",
				"op", herr.Op,
				"error", herr,
				"stack", string(herr.Stack))
			reply = protocol.TransportError(protocol.ErrHandlerPanic, msgInternal)
		}
	}()

	payload, err := op.invoke(ctx, cx, call.Args)
	if err != nil {
		return d.errorReply(call.Op, err)
	}
	return protocol.OK(payload)
}

func (d *Dispatcher) errorReply(op string, err error) *protocol.Reply {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return protocol.Fail(f)
	case errors.Is(err, ErrMalformedArgs):
		d.logger.Debug("malformed arguments", "op", op, "error", err)
		return protocol.TransportError(protocol.ErrMalformed, "malformed arguments")
	case errors.Is(err, ErrNotFound):
		return protocol.TransportError(protocol.ErrNotFound, msgNotFound)
	default:
		d.logger.Error("operation failed", "op", op, "error", err)
		return protocol.TransportError(protocol.ErrServerError, msgInternal)
	}
}

// ServeHTTP serves POST /backend_fn: an enveloped call naming its
// operation.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, reply := d.readBody(w, r)
	if reply != nil {
		d.writeReply(w, reply)
		return
	}

	call, err := protocol.DecodeCall(body, d.registry)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrUnknownOp):
			d.logger.Debug("unknown operation", "error", err)
			d.writeReply(w, protocol.TransportError(protocol.ErrUnknownOperation, "unknown operation"))
			return
		case protocol.IsMalformed(err):
			d.logger.Debug("malformed call", "error", err)
		default:
			d.logger.Warn("undecodable call", "error", err)
		}
		d.writeReply(w, protocol.TransportError(protocol.ErrMalformed, "malformed request"))
		return
	}
	d.serve(w, r, call)
}

// Single returns a handler for one operation whose request body is the
// bare argument payload, without an envelope.
func (d *Dispatcher) Single(op string) http.HandlerFunc {
	if !d.registry.Has(op) {
		panic("rpc: Single: unknown operation " + op)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, reply := d.readBody(w, r)
		if reply != nil {
			d.writeReply(w, reply)
			return
		}
		d.serve(w, r, &protocol.Call{Op: op, Args: body})
	}
}

// readBody applies the method, media type and size checks. The content
// type is checked before any of the body is read.
func (d *Dispatcher) readBody(w http.ResponseWriter, r *http.Request) ([]byte, *protocol.Reply) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return nil, protocol.TransportError(protocol.ErrMethodNotAllowed, "method not allowed")
	}
	if !protocol.CheckContentType(r.Header.Get("Content-Type")) {
		return nil, protocol.TransportError(protocol.ErrUnsupportedMedia, "unsupported media type")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, protocol.MaxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, protocol.TransportError(protocol.ErrRequestTooLarge, "request too large")
		}
		d.logger.Debug("read body failed", "error", err)
		return nil, protocol.TransportError(protocol.ErrMalformed, "malformed request")
	}
	return body, nil
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, call *protocol.Call) {
	ctx := r.Context()
	id, ok := session.Lookup(ctx)
	if !ok {
		var err error
		id, err = d.resolver.Resolve(ctx, r)
		if err != nil {
			d.logger.Error("session lookup failed", "op", call.Op, "error", err)
			d.writeReply(w, protocol.TransportError(protocol.ErrServerError, msgInternal))
			return
		}
	}

	cx := &Cx{
		Account: id.Account,
		Session: id.Session,
		Store:   d.store,
		Cookies: session.NewCookieWriter(w, d.cookies),
		Logger:  d.logger.With("op", call.Op),
	}
	d.writeReply(w, d.Dispatch(ctx, cx, call))
}

func (d *Dispatcher) writeReply(w http.ResponseWriter, reply *protocol.Reply) {
	data := protocol.EncodeReply(reply)
	w.Header().Set("Content-Type", protocol.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(reply.HTTPStatus())
	if _, err := w.Write(data); err != nil {
		d.logger.Debug("write reply failed", "error", err)
	}
}
