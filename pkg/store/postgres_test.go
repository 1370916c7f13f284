package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

// These tests run against a disposable PostgreSQL database named by
// POSTBOARD_TEST_POSTGRES. Every migration is rolled back on cleanup.
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("POSTBOARD_TEST_POSTGRES")
	if url == "" {
		t.Skip("POSTBOARD_TEST_POSTGRES not set")
	}
	s := openMigrated(t, url, &fakeClock{now: 1_700_000_000})
	if s.Dialect() != DialectPostgres {
		t.Fatalf("Dialect() = %v, want postgres", s.Dialect())
	}
	t.Cleanup(func() {
		ctx := context.Background()
		for {
			if _, err := s.Rollback(ctx); err != nil {
				if !errors.Is(err, ErrNothingToRollback) {
					t.Errorf("cleanup Rollback() error = %v", err)
				}
				return
			}
		}
	})
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	alice := mustAccount(t, s, "alice")
	if _, err := s.CreateAccount(ctx, "alice"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate name error = %v, want ErrNameTaken", err)
	}
	p := mustPost(t, s, alice, "hello")

	if _, liked, err := s.ToggleLike(ctx, alice.ID, p.ID); err != nil || !liked {
		t.Fatalf("ToggleLike() = %v, %v", liked, err)
	}
	if _, _, err := s.ToggleLike(ctx, alice.ID, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleLike(unknown) error = %v, want ErrNotFound", err)
	}

	feed, err := s.Feed(ctx, alice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || feed[0].LikeCount != 1 || !feed[0].Liked() {
		t.Errorf("Feed() = %+v", feed)
	}

	if err := s.DeleteAccount(ctx, alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PostForViewer(ctx, p.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("post survived account deletion: %v", err)
	}
}
