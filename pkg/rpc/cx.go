// Package rpc is the typed operation layer between untrusted callers and
// the data store.
//
// Every operation is registered once, with an argument decoder, a handler
// and a result encoder. The Dispatcher serves the registry over HTTP; the
// same handlers back Local, the in-process Backend used by trusted code.
//
//	d := rpc.NewDispatcher(st,
//	    rpc.WithCookiePolicy(session.DefaultCookiePolicy(cfg.Debug)),
//	    rpc.WithMiddleware(metrics.Middleware(), middleware.OpenTelemetry()),
//	)
//	router.Post("/backend_fn", d.ServeHTTP)
//	router.Post("/signup", d.Single(rpc.OpSignup))
//
// Replies have two layers. Transport errors (malformed payloads, unknown
// operations, panics, store failures) are non-2xx and carry a generic
// message. Business failures such as an unavailable name travel with 200
// as a *Failure the caller is expected to handle.
package rpc

import (
	"context"
	"log/slog"

	"github.com/vango-dev/postboard/pkg/model"
)

// Store is the data access the handlers need. *store.Store implements it.
type Store interface {
	CreateAccount(ctx context.Context, name string) (*model.Account, error)
	AccountByLoginCode(ctx context.Context, code string) (*model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	CreateSession(ctx context.Context, accountID int64) (*model.Session, error)
	SessionAccount(ctx context.Context, token string) (*model.Session, *model.Account, error)
	DeleteSession(ctx context.Context, token string) error

	InsertPost(ctx context.Context, body string, author *model.Account) (*model.Post, error)
	Feed(ctx context.Context, viewer *model.Account, limit int) ([]model.Post, error)
	PostForViewer(ctx context.Context, postID int64, viewer *model.Account) (*model.Post, error)
	ToggleLike(ctx context.Context, accountID, postID int64) (*model.Like, bool, error)

	InsertComment(ctx context.Context, postID int64, author *model.Account, body string) (*model.Comment, error)
	CommentsFor(ctx context.Context, postID int64, limit int) ([]model.Comment, error)
}

// Cookies sets and clears the session cookie of the current response.
type Cookies interface {
	SetSession(token string)
	ClearSession()
}

// Cx is the per-call context handed to every handler: the caller's
// identity, a data handle and a narrow view of the response.
//
// Handlers that change the identity (signup, login, logout,
// delete_account) update Account and Session in place, so later calls
// through the same Cx see the new identity.
type Cx struct {
	Account *model.Account
	Session *model.Session
	Store   Store
	Cookies Cookies
	Logger  *slog.Logger
}

func (cx *Cx) logger() *slog.Logger {
	if cx.Logger != nil {
		return cx.Logger
	}
	return slog.Default()
}

func (cx *Cx) setSession(sess *model.Session, acc *model.Account) {
	cx.Session = sess
	cx.Account = acc
	if cx.Cookies != nil {
		cx.Cookies.SetSession(sess.Identifier)
	}
}

func (cx *Cx) clearSession() {
	cx.Session = nil
	cx.Account = nil
	if cx.Cookies != nil {
		cx.Cookies.ClearSession()
	}
}

// NopCookies discards cookie changes.
type NopCookies struct{}

func (NopCookies) SetSession(string) {}
func (NopCookies) ClearSession()     {}
