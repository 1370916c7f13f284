package model

import "github.com/vango-dev/postboard/pkg/protocol"

// EncodeTo encodes the account.
func (a *Account) EncodeTo(e *protocol.Encoder) {
	e.WriteSvarint(a.ID)
	e.WriteString(a.Name)
	e.WriteString(a.LoginCode)
	e.WriteFloat64(a.CreatedAt)
	e.WriteFloat64(a.UpdatedAt)
}

// DecodeAccountFrom decodes an account.
func DecodeAccountFrom(d *protocol.Decoder) (*Account, error) {
	var a Account
	var err error
	if a.ID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if a.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if a.LoginCode, err = d.ReadString(); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	return &a, nil
}

// EncodeOptionalAccount writes a presence flag followed by the account.
func EncodeOptionalAccount(e *protocol.Encoder, a *Account) {
	e.WriteBool(a != nil)
	if a != nil {
		a.EncodeTo(e)
	}
}

// DecodeOptionalAccountFrom reads a value written by EncodeOptionalAccount.
func DecodeOptionalAccountFrom(d *protocol.Decoder) (*Account, error) {
	present, err := d.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	return DecodeAccountFrom(d)
}

// EncodeTo encodes the post including its per-viewer fields.
func (p *Post) EncodeTo(e *protocol.Encoder) {
	e.WriteSvarint(p.ID)
	e.WriteString(p.Body)
	e.WriteSvarint(p.AccountID)
	e.WriteString(p.AccountName)
	e.WriteFloat64(p.CreatedAt)
	e.WriteFloat64(p.UpdatedAt)
	e.WriteSvarint(p.LikeCount)
	e.WriteOptionalInt64(p.LikedByCurrentAccount)
	e.WriteSvarint(p.CommentCount)
}

// DecodePostFrom decodes a post.
func DecodePostFrom(d *protocol.Decoder) (*Post, error) {
	var p Post
	var err error
	if p.ID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if p.Body, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.AccountID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if p.AccountName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	if p.LikeCount, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if p.LikedByCurrentAccount, err = d.ReadOptionalInt64(); err != nil {
		return nil, err
	}
	if p.CommentCount, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	return &p, nil
}

// EncodePosts encodes a count-prefixed list of posts.
func EncodePosts(e *protocol.Encoder, posts []Post) {
	e.WriteUvarint(uint64(len(posts)))
	for i := range posts {
		posts[i].EncodeTo(e)
	}
}

// DecodePostsFrom decodes a list written by EncodePosts.
func DecodePostsFrom(d *protocol.Decoder) ([]Post, error) {
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, n)
	for i := 0; i < n; i++ {
		p, err := DecodePostFrom(d)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// EncodeTo encodes the comment.
func (c *Comment) EncodeTo(e *protocol.Encoder) {
	e.WriteSvarint(c.ID)
	e.WriteSvarint(c.AccountID)
	e.WriteSvarint(c.PostID)
	e.WriteString(c.Body)
	e.WriteString(c.AccountName)
	e.WriteFloat64(c.CreatedAt)
	e.WriteFloat64(c.UpdatedAt)
}

// DecodeCommentFrom decodes a comment.
func DecodeCommentFrom(d *protocol.Decoder) (*Comment, error) {
	var c Comment
	var err error
	if c.ID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if c.AccountID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if c.PostID, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if c.Body, err = d.ReadString(); err != nil {
		return nil, err
	}
	if c.AccountName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = d.ReadFloat64(); err != nil {
		return nil, err
	}
	return &c, nil
}

// EncodeComments encodes a count-prefixed list of comments.
func EncodeComments(e *protocol.Encoder, comments []Comment) {
	e.WriteUvarint(uint64(len(comments)))
	for i := range comments {
		comments[i].EncodeTo(e)
	}
}

// DecodeCommentsFrom decodes a list written by EncodeComments.
func DecodeCommentsFrom(d *protocol.Decoder) ([]Comment, error) {
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	comments := make([]Comment, 0, n)
	for i := 0; i < n; i++ {
		c, err := DecodeCommentFrom(d)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, nil
}
