package rpc

import (
	"context"

	"github.com/vango-dev/postboard/pkg/model"
)

// Backend is the caller's view of postboard: one method per operation.
// Business failures are returned as *Failure errors, a missing subject as
// an error matching ErrNotFound.
//
// Local implements it in process; client.Client implements it over HTTP.
type Backend interface {
	Signup(ctx context.Context, name string) (*model.Account, error)
	// Login returns nil without error when the code matches no account.
	Login(ctx context.Context, loginCode string) (*model.Account, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	CurrentAccount(ctx context.Context) (*model.Account, error)

	AddPost(ctx context.Context, body string) (*model.Post, error)
	Feed(ctx context.Context) ([]model.Post, error)
	ToggleLike(ctx context.Context, postID int64) (*model.Post, error)
	AddComment(ctx context.Context, postID int64, body string) (*model.Comment, error)
	Comments(ctx context.Context, postID int64) ([]model.Comment, error)
}

// Local runs operations directly against a Cx, with no encoding. It is
// meant for trusted code such as server-side rendering. Identity changes
// made by one call are visible to the next.
type Local struct {
	cx *Cx
}

var _ Backend = (*Local)(nil)

// NewLocal returns a Backend bound to cx.
func NewLocal(cx *Cx) *Local {
	if cx.Cookies == nil {
		cx.Cookies = NopCookies{}
	}
	return &Local{cx: cx}
}

// Cx returns the context the backend acts for.
func (l *Local) Cx() *Cx {
	return l.cx
}

// Signup creates an account and logs it in.
func (l *Local) Signup(ctx context.Context, name string) (*model.Account, error) {
	return signup(ctx, l.cx, SignupArgs{Name: name})
}

// Login starts a session for the account holding loginCode.
func (l *Local) Login(ctx context.Context, loginCode string) (*model.Account, error) {
	return login(ctx, l.cx, LoginArgs{LoginCode: loginCode})
}

// Logout ends the current session.
func (l *Local) Logout(ctx context.Context) error {
	_, err := logout(ctx, l.cx, Unit{})
	return err
}

// DeleteAccount removes the logged-in account and its content.
func (l *Local) DeleteAccount(ctx context.Context) error {
	_, err := deleteAccount(ctx, l.cx, Unit{})
	return err
}

// CurrentAccount returns the logged-in account, or nil.
func (l *Local) CurrentAccount(ctx context.Context) (*model.Account, error) {
	return currentAccount(ctx, l.cx, Unit{})
}

// AddPost publishes a post as the logged-in account.
func (l *Local) AddPost(ctx context.Context, body string) (*model.Post, error) {
	return addPost(ctx, l.cx, AddPostArgs{Body: body})
}

// Feed lists posts, newest first.
func (l *Local) Feed(ctx context.Context) ([]model.Post, error) {
	return feed(ctx, l.cx, Unit{})
}

// ToggleLike likes or unlikes a post.
func (l *Local) ToggleLike(ctx context.Context, postID int64) (*model.Post, error) {
	return toggleLike(ctx, l.cx, PostArgs{PostID: postID})
}

// AddComment comments on a post.
func (l *Local) AddComment(ctx context.Context, postID int64, body string) (*model.Comment, error) {
	return addComment(ctx, l.cx, AddCommentArgs{PostID: postID, Body: body})
}

// Comments lists the comments on a post, oldest first.
func (l *Local) Comments(ctx context.Context, postID int64) ([]model.Comment, error) {
	return comments(ctx, l.cx, PostArgs{PostID: postID})
}
