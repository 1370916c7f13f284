package rpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/session"
	"github.com/vango-dev/postboard/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite:"+filepath.Join(t.TempDir(), "rpc.db"), store.Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return st
}

func newDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *store.Store) {
	t.Helper()
	st := newStore(t)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewDispatcher(st, opts...), st
}

type encodable interface{ EncodeTo(*protocol.Encoder) }

func encodeArgs(a encodable) []byte {
	e := protocol.NewEncoder()
	a.EncodeTo(e)
	return e.Bytes()
}

// post sends an enveloped call and returns the recorder and decoded reply.
func post(t *testing.T, h http.Handler, op string, args encodable, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *protocol.Reply) {
	t.Helper()
	body := protocol.EncodeCall(&protocol.Call{Op: op, Args: encodeArgs(args)})
	return send(t, h, "/backend_fn", body, cookies...)
}

func send(t *testing.T, h http.Handler, path string, body []byte, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *protocol.Reply) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", protocol.ContentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	reply, err := protocol.DecodeReply(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("DecodeReply() error = %v (status %d)", err, rec.Code)
	}
	return rec, reply
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decodeAccount(t *testing.T, r *protocol.Reply) *model.Account {
	t.Helper()
	if r.Status != protocol.StatusOK || r.Result != protocol.ResultOK {
		t.Fatalf("reply = %+v, want ok", r)
	}
	acc, err := model.DecodeAccountFrom(protocol.NewDecoder(r.Payload))
	if err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return acc
}

func decodeOptionalAccount(t *testing.T, r *protocol.Reply) *model.Account {
	t.Helper()
	if r.Status != protocol.StatusOK || r.Result != protocol.ResultOK {
		t.Fatalf("reply = %+v, want ok", r)
	}
	acc, err := model.DecodeOptionalAccountFrom(protocol.NewDecoder(r.Payload))
	if err != nil {
		t.Fatalf("decode optional account: %v", err)
	}
	return acc
}

func TestServeHTTPRejections(t *testing.T) {
	d, _ := newDispatcher(t)
	validCall := protocol.EncodeCall(&protocol.Call{Op: OpFeed})

	tests := []struct {
		name        string
		method      string
		contentType string
		body        []byte
		wantStatus  int
		wantCode    protocol.ErrorCode
	}{
		{"wrong method", http.MethodGet, protocol.ContentType, nil, http.StatusMethodNotAllowed, protocol.ErrMethodNotAllowed},
		{"missing content type", http.MethodPost, "", validCall, http.StatusUnsupportedMediaType, protocol.ErrUnsupportedMedia},
		{"json content type", http.MethodPost, "application/json", validCall, http.StatusUnsupportedMediaType, protocol.ErrUnsupportedMedia},
		{"too large", http.MethodPost, protocol.ContentType, make([]byte, protocol.MaxRequestSize+1), http.StatusRequestEntityTooLarge, protocol.ErrRequestTooLarge},
		{"garbage", http.MethodPost, protocol.ContentType, []byte{0xde, 0xad}, http.StatusBadRequest, protocol.ErrMalformed},
		{"empty body", http.MethodPost, protocol.ContentType, nil, http.StatusBadRequest, protocol.ErrMalformed},
		{"unknown op", http.MethodPost, protocol.ContentType, protocol.EncodeCall(&protocol.Call{Op: "drop_tables"}), http.StatusBadRequest, protocol.ErrUnknownOperation},
		{"trailing envelope bytes", http.MethodPost, protocol.ContentType, append(validCall, 0), http.StatusBadRequest, protocol.ErrMalformed},
		{"trailing arg bytes", http.MethodPost, protocol.ContentType, protocol.EncodeCall(&protocol.Call{Op: OpFeed, Args: []byte{1}}), http.StatusBadRequest, protocol.ErrMalformed},
		{"truncated args", http.MethodPost, protocol.ContentType, protocol.EncodeCall(&protocol.Call{Op: OpSignup, Args: []byte{10, 'a'}}), http.StatusBadRequest, protocol.ErrMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/backend_fn", bytes.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			d.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			reply, err := protocol.DecodeReply(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("DecodeReply() error = %v", err)
			}
			if reply.Status != protocol.StatusTransportError || reply.Error.Code != tc.wantCode {
				t.Errorf("reply = %+v, want transport error %v", reply, tc.wantCode)
			}
		})
	}
}

func TestServeHTTPLogsMalformedCall(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, _ := newDispatcher(t, WithLogger(logger))

	req := httptest.NewRequest(http.MethodPost, "/backend_fn", bytes.NewReader([]byte{protocol.Magic}))
	req.Header.Set("Content-Type", protocol.ContentType)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(buf.String(), "malformed call") {
		t.Errorf("log = %q, want malformed call", buf.String())
	}
	if strings.Contains(buf.String(), "undecodable call") {
		t.Errorf("log = %q, truncated header logged as undecodable", buf.String())
	}
}

func TestSignupScenario(t *testing.T) {
	d, _ := newDispatcher(t)

	rec, reply := post(t, d, OpSignup, SignupArgs{Name: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d", rec.Code)
	}
	alice := decodeAccount(t, reply)
	if alice == nil || alice.Name != "alice" {
		t.Fatalf("signup account = %+v", alice)
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || !cookie.Secure || cookie.MaxAge != session.DefaultMaxAge {
		t.Errorf("cookie = %+v", cookie)
	}

	// Duplicate name: 200 with a business failure.
	rec, reply = post(t, d, OpSignup, SignupArgs{Name: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate signup status = %d, want 200", rec.Code)
	}
	if reply.Result != protocol.ResultFailure || reply.Failure.Code != CodeNameUnavailable {
		t.Fatalf("duplicate signup reply = %+v", reply)
	}
	if reply.Failure.Fields["available"] != "invalid" || reply.Failure.Fields["alphanumeric"] != "valid" {
		t.Errorf("failure fields = %v", reply.Failure.Fields)
	}

	// Login with the code yields the same account and a fresh session.
	rec, reply = post(t, d, OpLogin, LoginArgs{LoginCode: alice.LoginCode})
	got := decodeOptionalAccount(t, reply)
	if got == nil || got.ID != alice.ID {
		t.Fatalf("login account = %+v, want id %d", got, alice.ID)
	}
	loginCookie := sessionCookie(t, rec)
	if loginCookie.Value == cookie.Value {
		t.Error("login reused the signup session")
	}

	_, reply = post(t, d, OpCurrentAccount, Unit{}, loginCookie)
	if cur := decodeOptionalAccount(t, reply); cur == nil || cur.ID != alice.ID {
		t.Errorf("current_account = %+v", cur)
	}

	// Unknown login code: ok, no account, no cookie.
	rec, reply = post(t, d, OpLogin, LoginArgs{LoginCode: "nope"})
	if acc := decodeOptionalAccount(t, reply); acc != nil {
		t.Errorf("login(unknown) = %+v, want nil", acc)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("login(unknown) set a cookie")
	}
}

func TestSignupInvalidName(t *testing.T) {
	d, _ := newDispatcher(t)
	_, reply := post(t, d, OpSignup, SignupArgs{Name: "a b"})
	if reply.Result != protocol.ResultFailure || reply.Failure.Code != CodeNameInvalid {
		t.Fatalf("reply = %+v", reply)
	}
	check := model.NameCheckFromFields(reply.Failure.Fields)
	if check.Alphanumeric != model.CheckInvalid || check.MinLength != model.CheckValid {
		t.Errorf("check = %+v", check)
	}
}

func TestLikeLogoutScenario(t *testing.T) {
	d, _ := newDispatcher(t)

	rec, _ := post(t, d, OpSignup, SignupArgs{Name: "alice"})
	alice := sessionCookie(t, rec)

	_, reply := post(t, d, OpAddPost, AddPostArgs{Body: "hello"}, alice)
	p, err := model.DecodePostFrom(protocol.NewDecoder(reply.Payload))
	if err != nil {
		t.Fatalf("add_post reply %+v: %v", reply, err)
	}

	_, reply = post(t, d, OpToggleLike, PostArgs{PostID: p.ID}, alice)
	liked, err := model.DecodePostFrom(protocol.NewDecoder(reply.Payload))
	if err != nil {
		t.Fatal(err)
	}
	if liked.LikeCount != 1 || !liked.Liked() {
		t.Fatalf("after like: %+v", liked)
	}

	rec, reply = post(t, d, OpLogout, Unit{}, alice)
	if reply.Result != protocol.ResultOK {
		t.Fatalf("logout reply = %+v", reply)
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Errorf("logout cookie MaxAge = %d, want negative", c.MaxAge)
	}

	// The old cookie no longer resolves; the feed is anonymous.
	_, reply = post(t, d, OpFeed, Unit{}, alice)
	posts, err := model.DecodePostsFrom(protocol.NewDecoder(reply.Payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("feed = %d posts", len(posts))
	}
	if posts[0].LikedByCurrentAccount != nil || posts[0].LikeCount != 1 {
		t.Errorf("anonymous feed post = %+v", posts[0])
	}
}

func TestSignInRequired(t *testing.T) {
	d, _ := newDispatcher(t)
	calls := []struct {
		op   string
		args encodable
	}{
		{OpAddPost, AddPostArgs{Body: "hi"}},
		{OpToggleLike, PostArgs{PostID: 1}},
		{OpAddComment, AddCommentArgs{PostID: 1, Body: "hi"}},
	}
	for _, c := range calls {
		rec, reply := post(t, d, c.op, c.args)
		if rec.Code != http.StatusOK || reply.Failure == nil || reply.Failure.Code != CodeSignInRequired {
			t.Errorf("%s: status %d reply %+v, want sign_in_required", c.op, rec.Code, reply)
		}
	}
}

func TestMissingPostIsNotFound(t *testing.T) {
	d, _ := newDispatcher(t)
	rec, _ := post(t, d, OpSignup, SignupArgs{Name: "alice"})
	alice := sessionCookie(t, rec)

	calls := []struct {
		op   string
		args encodable
	}{
		{OpToggleLike, PostArgs{PostID: 404}},
		{OpAddComment, AddCommentArgs{PostID: 404, Body: "hi"}},
		{OpComments, PostArgs{PostID: 404}},
	}
	for _, c := range calls {
		rec, reply := post(t, d, c.op, c.args, alice)
		if rec.Code != http.StatusNotFound || reply.Error == nil || reply.Error.Code != protocol.ErrNotFound {
			t.Errorf("%s: status %d reply %+v, want 404", c.op, rec.Code, reply)
		}
	}
}

func TestBodyFailures(t *testing.T) {
	d, _ := newDispatcher(t)
	rec, _ := post(t, d, OpSignup, SignupArgs{Name: "alice"})
	alice := sessionCookie(t, rec)

	_, reply := post(t, d, OpAddPost, AddPostArgs{Body: "   "}, alice)
	if reply.Failure == nil || reply.Failure.Code != CodePostInvalid || reply.Failure.Fields["length"] != "0" {
		t.Errorf("blank post reply = %+v", reply)
	}

	_, reply = post(t, d, OpAddPost, AddPostArgs{Body: "ok"}, alice)
	p, _ := model.DecodePostFrom(protocol.NewDecoder(reply.Payload))
	_, reply = post(t, d, OpAddComment, AddCommentArgs{PostID: p.ID, Body: strings.Repeat("x", model.CommentMaxLength+1)}, alice)
	if reply.Failure == nil || reply.Failure.Code != CodeCommentInvalid || reply.Failure.Fields["max"] != "280" {
		t.Errorf("long comment reply = %+v", reply)
	}
}

func TestDeleteAccountOverHTTP(t *testing.T) {
	d, st := newDispatcher(t)
	rec, reply := post(t, d, OpSignup, SignupArgs{Name: "alice"})
	alice := decodeAccount(t, reply)
	cookie := sessionCookie(t, rec)

	rec, reply = post(t, d, OpDeleteAccount, Unit{}, cookie)
	if rec.Code != http.StatusOK || reply.Result != protocol.ResultOK {
		t.Fatalf("delete_account status %d reply %+v", rec.Code, reply)
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", c)
	}
	if _, err := st.AccountByID(context.Background(), alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("account survived: %v", err)
	}

	// Anonymous delete_account only clears the cookie.
	rec, reply = post(t, d, OpDeleteAccount, Unit{})
	if rec.Code != http.StatusOK || reply.Result != protocol.ResultOK {
		t.Errorf("anonymous delete_account status %d reply %+v", rec.Code, reply)
	}
}

func TestSingleEndpoints(t *testing.T) {
	d, _ := newDispatcher(t)
	signup := d.Single(OpSignup)

	rec, reply := send(t, signup, "/signup", encodeArgs(SignupArgs{Name: "bob"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if acc := decodeAccount(t, reply); acc == nil || acc.Name != "bob" {
		t.Fatalf("account = %+v", acc)
	}
	cookie := sessionCookie(t, rec)

	// An enveloped body is not a bare argument payload.
	rec, _ = send(t, signup, "/signup", protocol.EncodeCall(&protocol.Call{Op: OpSignup, Args: encodeArgs(SignupArgs{Name: "carol"})}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("enveloped body status = %d, want 400", rec.Code)
	}

	rec, _ = send(t, d.Single(OpLogout), "/logout", nil, cookie)
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v", c)
	}
}

func TestSingleUnknownOpPanics(t *testing.T) {
	d, _ := newDispatcher(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	d.Single("nope")
}

func TestIdentityFromContext(t *testing.T) {
	d, st := newDispatcher(t)
	ctx := context.Background()
	acc, err := st.CreateAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	body := protocol.EncodeCall(&protocol.Call{Op: OpCurrentAccount})
	req := httptest.NewRequest(http.MethodPost, "/backend_fn", bytes.NewReader(body))
	req.Header.Set("Content-Type", protocol.ContentType)
	req = req.WithContext(session.WithIdentity(req.Context(), &session.Identity{Account: acc}))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	reply, err := protocol.DecodeReply(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeOptionalAccount(t, reply); got == nil || got.ID != acc.ID {
		t.Errorf("current_account = %+v, want %d", got, acc.ID)
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, *http.Request) (*session.Identity, error) {
	return nil, errors.New("database is gone")
}

func TestResolverFailureIsServerError(t *testing.T) {
	d, _ := newDispatcher(t, WithResolver(failingResolver{}))
	rec, reply := post(t, d, OpFeed, Unit{})
	if rec.Code != http.StatusInternalServerError || reply.Error.Code != protocol.ErrServerError {
		t.Fatalf("status %d reply %+v", rec.Code, reply)
	}
	if strings.Contains(reply.Error.Message, "database") {
		t.Errorf("message leaks detail: %q", reply.Error.Message)
	}
}
