package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/store"
)

type fakeStore struct {
	sessions map[string]*model.Account
	err      error
	calls    int
}

func (f *fakeStore) SessionAccount(_ context.Context, token string) (*model.Session, *model.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	acc, ok := f.sessions[token]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	return &model.Session{ID: 1, Identifier: token, AccountID: acc.ID}, acc, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve(t *testing.T) {
	alice := &model.Account{ID: 1, Name: "alice"}
	st := &fakeStore{sessions: map[string]*model.Account{"tok-alice": alice}}
	r := NewResolver(st, WithLogger(quietLogger()))

	tests := []struct {
		name    string
		cookie  *http.Cookie
		want    *model.Account
		lookups int
	}{
		{"no cookie", nil, nil, 0},
		{"empty cookie", &http.Cookie{Name: CookieName, Value: ""}, nil, 0},
		{"other cookie", &http.Cookie{Name: "session", Value: "tok-alice"}, nil, 0},
		{"unknown token", &http.Cookie{Name: CookieName, Value: "nope"}, nil, 1},
		{"valid token", &http.Cookie{Name: CookieName, Value: "tok-alice"}, alice, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st.calls = 0
			req := httptest.NewRequest(http.MethodPost, "/backend_fn", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			id, err := r.Resolve(context.Background(), req)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.Account != tc.want {
				t.Errorf("Account = %v, want %v", id.Account, tc.want)
			}
			if id.Anonymous() != (tc.want == nil) {
				t.Errorf("Anonymous() = %v", id.Anonymous())
			}
			if st.calls != tc.lookups {
				t.Errorf("store lookups = %d, want %d", st.calls, tc.lookups)
			}
		})
	}
}

func TestResolveEveryCallHitsStore(t *testing.T) {
	st := &fakeStore{sessions: map[string]*model.Account{"t": {ID: 1}}}
	r := NewResolver(st)
	for i := 0; i < 3; i++ {
		if _, err := r.ResolveToken(context.Background(), "t"); err != nil {
			t.Fatal(err)
		}
	}
	if st.calls != 3 {
		t.Errorf("store lookups = %d, want 3", st.calls)
	}

	// Revoked sessions stop resolving at once.
	delete(st.sessions, "t")
	id, err := r.ResolveToken(context.Background(), "t")
	if err != nil || !id.Anonymous() {
		t.Errorf("ResolveToken() after revoke = %+v, %v", id, err)
	}
}

func TestResolveStoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	r := NewResolver(&fakeStore{err: boom}, WithLogger(quietLogger()))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "x"})

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("Resolve() error = %v, want %v", err, boom)
	}

	called := false
	h := r.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if called {
		t.Error("expected next not to be called")
	}
}

func TestMiddlewareStoresIdentity(t *testing.T) {
	alice := &model.Account{ID: 1, Name: "alice"}
	r := NewResolver(&fakeStore{sessions: map[string]*model.Account{"tok": alice}})

	var got *Identity
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got = FromContext(req.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.Account != alice || got.Session.Identifier != "tok" {
		t.Fatalf("identity = %+v", got)
	}

	if id := FromContext(context.Background()); !id.Anonymous() {
		t.Errorf("FromContext(empty) = %+v, want anonymous", id)
	}
}

func TestWithCookieName(t *testing.T) {
	r := NewResolver(&fakeStore{}, WithCookieName("sid"), WithCookieName(""))
	if r.CookieName() != "sid" {
		t.Errorf("CookieName() = %q, want sid", r.CookieName())
	}
}
