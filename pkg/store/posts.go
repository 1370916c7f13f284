package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vango-dev/postboard/pkg/model"
)

// MaxFeedLimit caps how many posts or comments a single read returns.
const MaxFeedLimit = 30

// postSelect reads posts with their per-viewer fields. The first
// placeholder is the viewer's account id; 0 matches no like.
const postSelect = `SELECT
    p.id, p.body, p.account_id, a.name AS account_name, p.created_at, p.updated_at,
    COALESCE(lc.like_count, 0) AS like_count,
    vl.id AS liked_by_current_account,
    COALESCE(cc.comment_count, 0) AS comment_count
FROM posts p
JOIN accounts a ON a.id = p.account_id
LEFT JOIN (SELECT post_id, COUNT(*) AS like_count FROM likes GROUP BY post_id) lc ON lc.post_id = p.id
LEFT JOIN likes vl ON vl.post_id = p.id AND vl.account_id = ?
LEFT JOIN (SELECT post_id, COUNT(*) AS comment_count FROM comments GROUP BY post_id) cc ON cc.post_id = p.id
`

func viewerID(viewer *model.Account) int64 {
	if viewer == nil {
		return 0
	}
	return viewer.ID
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}

// InsertPost stores a post by author. The body is trimmed and must be
// 1 to model.PostMaxLength characters, otherwise a *ValidationError is
// returned. The result carries zero counts and no viewer like.
func (s *Store) InsertPost(ctx context.Context, body string, author *model.Account) (*model.Post, error) {
	body, ok := model.NormalizeBody(body, model.PostMaxLength)
	if !ok {
		return nil, &ValidationError{Field: "post", Len: utf8.RuneCountInString(body), Max: model.PostMaxLength}
	}

	now := s.now()
	var post model.Post
	err := s.db.GetContext(ctx, &post, s.q(`INSERT INTO posts (body, account_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id, body, account_id, created_at, updated_at`), body, author.ID, now, now)
	if err != nil {
		err = castErr(err)
		if errors.Is(err, ErrForeignKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: insert post: %w", err)
	}
	post.AccountName = author.Name
	return &post, nil
}

// Feed returns the newest posts, newest first with ties broken by id,
// as seen by viewer. A nil viewer reads anonymously. limit is clamped to
// 1..MaxFeedLimit; zero or negative means MaxFeedLimit.
func (s *Store) Feed(ctx context.Context, viewer *model.Account, limit int) ([]model.Post, error) {
	posts := []model.Post{}
	err := s.db.SelectContext(ctx, &posts, s.q(postSelect+`ORDER BY p.created_at DESC, p.id DESC
LIMIT ?`), viewerID(viewer), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: feed: %w", castErr(err))
	}
	return posts, nil
}

// PostForViewer returns one post with its per-viewer fields or ErrNotFound.
func (s *Store) PostForViewer(ctx context.Context, postID int64, viewer *model.Account) (*model.Post, error) {
	var post model.Post
	err := s.db.GetContext(ctx, &post, s.q(postSelect+`WHERE p.id = ?`), viewerID(viewer), postID)
	if err != nil {
		return nil, castErr(err)
	}
	return &post, nil
}
