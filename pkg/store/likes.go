package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vango-dev/postboard/pkg/model"
)

// ToggleLike likes the post for the account, or removes the like if one
// exists. It returns the new like and true, or nil and false after a
// removal. An unknown post or account returns ErrNotFound.
//
// The unique index on (account_id, post_id) decides the race between
// concurrent toggles: at most one insert wins, the others delete.
func (s *Store) ToggleLike(ctx context.Context, accountID, postID int64) (*model.Like, bool, error) {
	now := s.now()
	var like model.Like
	err := s.db.GetContext(ctx, &like, s.q(`INSERT INTO likes (account_id, post_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (account_id, post_id) DO NOTHING
RETURNING id, account_id, post_id, created_at, updated_at`), accountID, postID, now, now)
	switch {
	case err == nil:
		return &like, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// Conflict: the like already existed.
	default:
		err = castErr(err)
		if errors.Is(err, ErrForeignKey) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("store: toggle like: %w", err)
	}

	if _, err := s.RemoveLike(ctx, accountID, postID); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// RemoveLike deletes the account's like on the post and reports whether
// one existed.
func (s *Store) RemoveLike(ctx context.Context, accountID, postID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM likes WHERE account_id = ? AND post_id = ?`), accountID, postID)
	if err != nil {
		return false, fmt.Errorf("store: remove like: %w", castErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: remove like: %w", err)
	}
	return n > 0, nil
}
