// Package session resolves the opaque session cookie of a request to the
// account it belongs to.
//
// The cookie value is an identifier issued by the store; it carries no
// data of its own. Every request looks the identifier up again, so a
// deleted session or account stops resolving immediately.
//
//	resolver := session.NewResolver(st, session.WithLogger(logger))
//	router.Use(resolver.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    id := session.FromContext(r.Context())
//	    if id.Account == nil {
//	        // anonymous
//	    }
//	}
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/store"
)

// CookieName is the name of the session cookie.
const CookieName = "id"

// Store is the lookup the resolver needs. *store.Store implements it.
type Store interface {
	SessionAccount(ctx context.Context, token string) (*model.Session, *model.Account, error)
}

// Identity is the result of resolving a request. Both fields are nil for
// anonymous requests.
type Identity struct {
	Session *model.Session
	Account *model.Account
}

// Anonymous reports whether no account is signed in.
func (id *Identity) Anonymous() bool {
	return id == nil || id.Account == nil
}

// Resolver maps session cookies to identities.
type Resolver struct {
	store      Store
	cookieName string
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCookieName overrides CookieName.
func WithCookieName(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.cookieName = name
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver backed by st.
func NewResolver(st Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      st,
		cookieName: CookieName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "session")
	return r
}

// CookieName returns the name of the cookie the resolver reads.
func (r *Resolver) CookieName() string {
	return r.cookieName
}

// Resolve looks up the identity of req. A missing cookie, an empty value
// or an unknown identifier is anonymous and not an error; only a failing
// store returns one.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Identity, error) {
	cookie, err := req.Cookie(r.cookieName)
	if err != nil || cookie.Value == "" {
		return &Identity{}, nil
	}
	return r.ResolveToken(ctx, cookie.Value)
}

// ResolveToken looks up a raw session identifier.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return &Identity{}, nil
	}
	sess, acc, err := r.store.SessionAccount(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return &Identity{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: resolve: %w", err)
	}
	return &Identity{Session: sess, Account: acc}, nil
}

// Middleware resolves the request identity once and stores it in the
// request context. Store failures end the request with a generic 500.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, err := r.Resolve(req.Context(), req)
		if err != nil {
			r.logger.Error("session lookup failed", "path", req.URL.Path, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), id)))
	})
}

type identityContextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// Lookup returns the identity stored by Middleware and whether there was one.
func Lookup(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// FromContext returns the identity stored by Middleware, or an anonymous
// identity if there is none.
func FromContext(ctx context.Context) *Identity {
	if id, ok := Lookup(ctx); ok {
		return id
	}
	return &Identity{}
}
