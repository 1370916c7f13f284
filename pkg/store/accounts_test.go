package store

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/postboard/pkg/model"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	acc := mustAccount(t, s, "alice")
	if acc.ID == 0 || acc.Name != "alice" {
		t.Fatalf("CreateAccount() = %+v", acc)
	}
	if len(acc.LoginCode) != TokenLength {
		t.Errorf("login code %q has length %d, want %d", acc.LoginCode, len(acc.LoginCode), TokenLength)
	}
	if acc.CreatedAt != clock.Now() || acc.UpdatedAt != clock.Now() {
		t.Errorf("timestamps = %v/%v, want %v", acc.CreatedAt, acc.UpdatedAt, clock.Now())
	}

	got, err := s.AccountByLoginCode(ctx, acc.LoginCode)
	if err != nil {
		t.Fatalf("AccountByLoginCode() error = %v", err)
	}
	if *got != *acc {
		t.Errorf("AccountByLoginCode() = %+v, want %+v", got, acc)
	}

	got, err = s.AccountByID(ctx, acc.ID)
	if err != nil || got.Name != "alice" {
		t.Errorf("AccountByID() = %+v, %v", got, err)
	}
}

func TestCreateAccountNameTaken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	first := mustAccount(t, s, "alice")

	_, err := s.CreateAccount(ctx, "alice")
	if !errors.Is(err, ErrNameTaken) {
		t.Fatalf("CreateAccount(dup) error = %v, want ErrNameTaken", err)
	}
	var nerr *NameError
	if !errors.As(err, &nerr) {
		t.Fatalf("error %T is not *NameError", err)
	}
	want := model.NameCheck{
		Alphanumeric: model.CheckValid,
		MinLength:    model.CheckValid,
		MaxLength:    model.CheckValid,
		Available:    model.CheckInvalid,
	}
	if nerr.Check != want {
		t.Errorf("Check = %+v, want %+v", nerr.Check, want)
	}

	// The first account is untouched.
	got, err := s.AccountByID(ctx, first.ID)
	if err != nil || *got != *first {
		t.Errorf("AccountByID() = %+v, %v; want %+v", got, err, first)
	}
}

func TestCreateAccountInvalidName(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"", "ab", "al ice", "abcdefghijklmnopqrstu"} {
		_, err := s.CreateAccount(context.Background(), name)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateAccount(%q) error = %v, want ErrInvalidName", name, err)
		}
		var nerr *NameError
		if errors.As(err, &nerr) && nerr.Check.Available != model.CheckUnknown {
			t.Errorf("CreateAccount(%q) Available = %v, want unknown", name, nerr.Check.Available)
		}
	}
}

func TestAccountLookupsNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.AccountByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("AccountByID() error = %v, want ErrNotFound", err)
	}
	if _, err := s.AccountByLoginCode(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AccountByLoginCode() error = %v, want ErrNotFound", err)
	}
	if _, err := s.AccountByLoginCode(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("AccountByLoginCode(\"\") error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteAccount(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAccount() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	alice := mustAccount(t, s, "alice")
	bob := mustAccount(t, s, "bob")
	sess, err := s.CreateSession(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	alicePost := mustPost(t, s, alice, "from alice")
	bobPost := mustPost(t, s, bob, "from bob")

	// bob interacts with alice's post, alice with bob's.
	if _, _, err := s.ToggleLike(ctx, bob.ID, alicePost.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertComment(ctx, alicePost.ID, bob, "nice"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.ToggleLike(ctx, alice.ID, bobPost.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertComment(ctx, bobPost.ID, alice, "thanks"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAccount(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}

	if _, err := s.AccountByLoginCode(ctx, alice.LoginCode); !errors.Is(err, ErrNotFound) {
		t.Errorf("login code still resolves: %v", err)
	}
	if _, err := s.SessionByToken(ctx, sess.Identifier); !errors.Is(err, ErrNotFound) {
		t.Errorf("session still resolves: %v", err)
	}
	if _, err := s.PostForViewer(ctx, alicePost.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("alice's post still exists: %v", err)
	}

	p, err := s.PostForViewer(ctx, bobPost.ID, bob)
	if err != nil {
		t.Fatal(err)
	}
	if p.LikeCount != 0 || p.CommentCount != 0 {
		t.Errorf("bob's post counts = %d/%d, want 0/0", p.LikeCount, p.CommentCount)
	}
	comments, err := s.CommentsFor(ctx, alicePost.ID, 0)
	if err != nil || len(comments) != 0 {
		t.Errorf("comments on deleted post = %v, %v", comments, err)
	}
}
