package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vango-dev/postboard/pkg/model"
)

// InsertComment stores a comment by author on the post. The body is
// trimmed and must be 1 to model.CommentMaxLength characters. An unknown
// post returns ErrNotFound.
func (s *Store) InsertComment(ctx context.Context, postID int64, author *model.Account, body string) (*model.Comment, error) {
	body, ok := model.NormalizeBody(body, model.CommentMaxLength)
	if !ok {
		return nil, &ValidationError{Field: "comment", Len: utf8.RuneCountInString(body), Max: model.CommentMaxLength}
	}

	now := s.now()
	var c model.Comment
	err := s.db.GetContext(ctx, &c, s.q(`INSERT INTO comments (account_id, post_id, body, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, account_id, post_id, body, created_at, updated_at`), author.ID, postID, body, now, now)
	if err != nil {
		err = castErr(err)
		if errors.Is(err, ErrForeignKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: insert comment: %w", err)
	}
	c.AccountName = author.Name
	return &c, nil
}

// CommentsFor returns the oldest comments on a post first, ties broken by
// id. limit is clamped like Feed. The post is not checked; use
// PostForViewer for that.
func (s *Store) CommentsFor(ctx context.Context, postID int64, limit int) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := s.db.SelectContext(ctx, &comments, s.q(`SELECT
    c.id, c.account_id, c.post_id, c.body, a.name AS account_name, c.created_at, c.updated_at
FROM comments c
JOIN accounts a ON a.id = c.account_id
WHERE c.post_id = ?
ORDER BY c.created_at ASC, c.id ASC
LIMIT ?`), postID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: comments for post %d: %w", postID, castErr(err))
	}
	return comments, nil
}
