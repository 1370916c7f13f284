// Package model defines the entities shared by the server, the data store
// and remote clients.
//
// Every type encodes itself with a protocol.Encoder and has a matching
// DecodeXFrom function, so the same definitions serve the trusted side
// (direct calls) and the untrusted side (calls over the wire).
package model

import "time"

// Account is a registered user.
type Account struct {
	ID        int64   `db:"id"`
	Name      string  `db:"name"`
	LoginCode string  `db:"login_code"`
	CreatedAt float64 `db:"created_at"`
	UpdatedAt float64 `db:"updated_at"`
}

// Session binds an opaque identifier to an account.
type Session struct {
	ID         int64   `db:"id"`
	Identifier string  `db:"identifier"`
	AccountID  int64   `db:"account_id"`
	CreatedAt  float64 `db:"created_at"`
	UpdatedAt  float64 `db:"updated_at"`
}

// Post is an immutable message. LikeCount, LikedByCurrentAccount and
// CommentCount are computed per viewer at read time.
type Post struct {
	ID          int64   `db:"id"`
	Body        string  `db:"body"`
	AccountID   int64   `db:"account_id"`
	AccountName string  `db:"account_name"`
	CreatedAt   float64 `db:"created_at"`
	UpdatedAt   float64 `db:"updated_at"`

	LikeCount int64 `db:"like_count"`

	// LikedByCurrentAccount holds the id of the viewer's like, or nil when
	// there is no viewer or the viewer has not liked the post.
	LikedByCurrentAccount *int64 `db:"liked_by_current_account"`

	CommentCount int64 `db:"comment_count"`
}

// Liked reports whether the viewer the post was read for has liked it.
func (p *Post) Liked() bool {
	return p.LikedByCurrentAccount != nil
}

// Like records that an account likes a post.
type Like struct {
	ID        int64   `db:"id"`
	AccountID int64   `db:"account_id"`
	PostID    int64   `db:"post_id"`
	CreatedAt float64 `db:"created_at"`
	UpdatedAt float64 `db:"updated_at"`
}

// Comment is a reply to a post. AccountName is resolved at read time.
type Comment struct {
	ID          int64   `db:"id"`
	AccountID   int64   `db:"account_id"`
	PostID      int64   `db:"post_id"`
	Body        string  `db:"body"`
	AccountName string  `db:"account_name"`
	CreatedAt   float64 `db:"created_at"`
	UpdatedAt   float64 `db:"updated_at"`
}

// Now returns the current time as fractional seconds since the Unix epoch.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}
