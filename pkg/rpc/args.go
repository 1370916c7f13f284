package rpc

import (
	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/protocol"
)

// Operation names. They are the discriminant of a Call.
const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpDeleteAccount  = "delete_account"
	OpCurrentAccount = "current_account"
	OpAddPost        = "add_post"
	OpFeed           = "feed"
	OpToggleLike     = "toggle_like"
	OpAddComment     = "add_comment"
	OpComments       = "comments"
)

// Unit is the argument or result of operations that carry none.
type Unit struct{}

// EncodeTo writes nothing.
func (Unit) EncodeTo(*protocol.Encoder) {}

// DecodeUnit reads nothing.
func DecodeUnit(*protocol.Decoder) (Unit, error) { return Unit{}, nil }

// SignupArgs are the arguments of signup.
type SignupArgs struct {
	Name string
}

// EncodeTo writes a in field order.
func (a SignupArgs) EncodeTo(e *protocol.Encoder) { e.WriteString(a.Name) }

// DecodeSignupArgs reads arguments written by SignupArgs.EncodeTo.
func DecodeSignupArgs(d *protocol.Decoder) (SignupArgs, error) {
	name, err := d.ReadString()
	return SignupArgs{Name: name}, err
}

// LoginArgs are the arguments of login.
type LoginArgs struct {
	LoginCode string
}

// EncodeTo writes a in field order.
func (a LoginArgs) EncodeTo(e *protocol.Encoder) { e.WriteString(a.LoginCode) }

// DecodeLoginArgs reads arguments written by LoginArgs.EncodeTo.
func DecodeLoginArgs(d *protocol.Decoder) (LoginArgs, error) {
	code, err := d.ReadString()
	return LoginArgs{LoginCode: code}, err
}

// AddPostArgs are the arguments of add_post.
type AddPostArgs struct {
	Body string
}

// EncodeTo writes a in field order.
func (a AddPostArgs) EncodeTo(e *protocol.Encoder) { e.WriteString(a.Body) }

// DecodeAddPostArgs reads arguments written by AddPostArgs.EncodeTo.
func DecodeAddPostArgs(d *protocol.Decoder) (AddPostArgs, error) {
	body, err := d.ReadString()
	return AddPostArgs{Body: body}, err
}

// PostArgs name a post. toggle_like and comments take them.
type PostArgs struct {
	PostID int64
}

// EncodeTo writes a in field order.
func (a PostArgs) EncodeTo(e *protocol.Encoder) { e.WriteSvarint(a.PostID) }

// DecodePostArgs reads arguments written by PostArgs.EncodeTo.
func DecodePostArgs(d *protocol.Decoder) (PostArgs, error) {
	id, err := d.ReadSvarint()
	return PostArgs{PostID: id}, err
}

// AddCommentArgs are the arguments of add_comment.
type AddCommentArgs struct {
	PostID int64
	Body   string
}

// EncodeTo writes a in field order.
func (a AddCommentArgs) EncodeTo(e *protocol.Encoder) {
	e.WriteSvarint(a.PostID)
	e.WriteString(a.Body)
}

// DecodeAddCommentArgs reads arguments written by AddCommentArgs.EncodeTo.
func DecodeAddCommentArgs(d *protocol.Decoder) (AddCommentArgs, error) {
	var a AddCommentArgs
	var err error
	if a.PostID, err = d.ReadSvarint(); err != nil {
		return a, err
	}
	a.Body, err = d.ReadString()
	return a, err
}

// Result encoders, shaped for Register.

func encodeAccount(e *protocol.Encoder, a *model.Account)         { a.EncodeTo(e) }
func encodeOptionalAccount(e *protocol.Encoder, a *model.Account) { model.EncodeOptionalAccount(e, a) }
func encodeUnit(*protocol.Encoder, Unit)                          {}
func encodePost(e *protocol.Encoder, p *model.Post)               { p.EncodeTo(e) }
func encodeComment(e *protocol.Encoder, c *model.Comment)         { c.EncodeTo(e) }
