package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/store"
)

// signup creates an account and signs the caller in as it. A session the
// caller already held is ended first.
func signup(ctx context.Context, cx *Cx, args SignupArgs) (*model.Account, error) {
	acc, err := cx.Store.CreateAccount(ctx, args.Name)
	if err != nil {
		var nerr *store.NameError
		if errors.As(err, &nerr) {
			return nil, nameFailure(nerr)
		}
		return nil, err
	}
	if err := startSession(ctx, cx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// login signs the caller in with a login code. An unknown code is not an
// error; the result is then empty and the identity unchanged.
func login(ctx context.Context, cx *Cx, args LoginArgs) (*model.Account, error) {
	acc, err := cx.Store.AccountByLoginCode(ctx, args.LoginCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := startSession(ctx, cx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func startSession(ctx context.Context, cx *Cx, acc *model.Account) error {
	if cx.Session != nil {
		endSession(ctx, cx)
	}
	sess, err := cx.Store.CreateSession(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	cx.setSession(sess, acc)
	return nil
}

// endSession deletes the current session. Failure is logged only; the
// cookie is cleared regardless.
func endSession(ctx context.Context, cx *Cx) {
	if cx.Session != nil {
		if err := cx.Store.DeleteSession(ctx, cx.Session.Identifier); err != nil {
			cx.logger().Warn("delete session failed", "session_id", cx.Session.ID, "error", err)
		}
	}
	cx.clearSession()
}

func logout(ctx context.Context, cx *Cx, _ Unit) (Unit, error) {
	endSession(ctx, cx)
	return Unit{}, nil
}

// deleteAccount ends the session, clears the cookie, then deletes the
// account and everything it owns. Anonymous callers only get the cookie
// cleared.
func deleteAccount(ctx context.Context, cx *Cx, _ Unit) (Unit, error) {
	acc := cx.Account
	endSession(ctx, cx)
	if acc == nil {
		return Unit{}, nil
	}
	err := cx.Store.DeleteAccount(ctx, acc.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		cx.logger().Error("delete account failed", "account_id", acc.ID, "error", err)
		return Unit{}, err
	}
	return Unit{}, nil
}

func currentAccount(_ context.Context, cx *Cx, _ Unit) (*model.Account, error) {
	return cx.Account, nil
}

func addPost(ctx context.Context, cx *Cx, args AddPostArgs) (*model.Post, error) {
	if cx.Account == nil {
		return nil, ErrSignInRequired
	}
	post, err := cx.Store.InsertPost(ctx, args.Body, cx.Account)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			return nil, bodyFailure(ErrPostInvalid, verr)
		}
		return nil, err
	}
	return post, nil
}

func feed(ctx context.Context, cx *Cx, _ Unit) ([]model.Post, error) {
	return cx.Store.Feed(ctx, cx.Account, store.MaxFeedLimit)
}

// toggleLike flips the caller's like and returns the post as the caller
// now sees it.
func toggleLike(ctx context.Context, cx *Cx, args PostArgs) (*model.Post, error) {
	if cx.Account == nil {
		return nil, ErrSignInRequired
	}
	if _, _, err := cx.Store.ToggleLike(ctx, cx.Account.ID, args.PostID); err != nil {
		return nil, notFound(err, "post")
	}
	post, err := cx.Store.PostForViewer(ctx, args.PostID, cx.Account)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

func addComment(ctx context.Context, cx *Cx, args AddCommentArgs) (*model.Comment, error) {
	if cx.Account == nil {
		return nil, ErrSignInRequired
	}
	c, err := cx.Store.InsertComment(ctx, args.PostID, cx.Account, args.Body)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			return nil, bodyFailure(ErrCommentInvalid, verr)
		}
		return nil, notFound(err, "post")
	}
	return c, nil
}

func comments(ctx context.Context, cx *Cx, args PostArgs) ([]model.Comment, error) {
	if _, err := cx.Store.PostForViewer(ctx, args.PostID, cx.Account); err != nil {
		return nil, notFound(err, "post")
	}
	return cx.Store.CommentsFor(ctx, args.PostID, store.MaxFeedLimit)
}
