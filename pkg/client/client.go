// Package client calls a postboard server over HTTP.
//
// Client implements rpc.Backend, so code written against the interface
// runs unchanged in process (rpc.Local) or across the network:
//
//	c, err := client.New("http://127.0.0.1:9004")
//	if err != nil {
//	    return err
//	}
//	acc, err := c.Signup(ctx, "alice")
//	var f *rpc.Failure
//	if errors.As(err, &f) && f.Code == rpc.CodeNameUnavailable {
//	    // pick another name
//	}
//
// The session cookie is kept in a cookie jar, so a Client is one signed-in
// identity.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/rpc"
)

// DefaultPath is the RPC endpoint.
const DefaultPath = "/backend_fn"

// maxReplySize bounds how much of a reply body is read.
const maxReplySize = 8 << 20

// TransportError is a failed call that never produced a business outcome:
// the server rejected it, failed, or could not be reached.
type TransportError struct {
	Status  int // HTTP status, 0 if no response
	Code    protocol.ErrorCode
	Message string
	Err     error // underlying error, if any
}

// Error returns the error message.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client: transport: %v", e.Err)
	}
	return fmt.Sprintf("client: transport: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes a NotFound transport error match rpc.ErrNotFound.
func (e *TransportError) Is(target error) bool {
	return target == rpc.ErrNotFound && e.Code == protocol.ErrNotFound
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client is an rpc.Backend over HTTP. It is safe for concurrent use.
type Client struct {
	endpoint string
	path     string
	http     *http.Client
}

var _ rpc.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its Jar, if nil, is replaced with
// a fresh cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPath overrides DefaultPath.
func WithPath(path string) Option {
	return func(c *Client) {
		c.path = "/" + strings.TrimLeft(path, "/")
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}
	base := strings.TrimRight(u.String(), "/")

	c := &Client{
		path: DefaultPath,
		http: &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.endpoint = base + c.path
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Call sends one call and returns the result payload. Business failures
// are returned as *rpc.Failure, everything else as *TransportError.
func (c *Client) Call(ctx context.Context, op string, args []byte) ([]byte, error) {
	body := protocol.EncodeCall(&protocol.Call{Op: op, Args: args})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", protocol.ContentType)
	req.Header.Set("Accept", protocol.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}

	reply, err := protocol.DecodeReply(data)
	if err != nil {
		// Not one of ours: a proxy error page or a plain-text 500.
		return nil, &TransportError{
			Status:  resp.StatusCode,
			Code:    codeForStatus(resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
		}
	}

	switch {
	case reply.Status == protocol.StatusTransportError:
		return nil, &TransportError{Status: resp.StatusCode, Code: reply.Error.Code, Message: reply.Error.Message}
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Status: resp.StatusCode, Code: codeForStatus(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
	case reply.Result == protocol.ResultFailure:
		return nil, reply.Failure
	}
	return reply.Payload, nil
}

func codeForStatus(status int) protocol.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return protocol.ErrMalformed
	case http.StatusNotFound:
		return protocol.ErrNotFound
	case http.StatusMethodNotAllowed:
		return protocol.ErrMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return protocol.ErrRequestTooLarge
	case http.StatusUnsupportedMediaType:
		return protocol.ErrUnsupportedMedia
	}
	return protocol.ErrServerError
}

type encodable interface {
	EncodeTo(*protocol.Encoder)
}

// call encodes args, sends them and decodes the payload with decode,
// which must consume all of it.
func call[R any](ctx context.Context, c *Client, op string, args encodable, decode func(*protocol.Decoder) (R, error)) (R, error) {
	var zero R
	e := protocol.NewEncoder()
	args.EncodeTo(e)
	payload, err := c.Call(ctx, op, e.Bytes())
	if err != nil {
		return zero, err
	}
	d := protocol.NewDecoder(payload)
	result, err := decode(d)
	if err == nil {
		err = d.Finish()
	}
	if err != nil {
		return zero, &TransportError{Status: http.StatusOK, Code: protocol.ErrMalformed, Message: "malformed reply", Err: fmt.Errorf("decode %s reply: %w", op, err)}
	}
	return result, nil
}

func (c *Client) Signup(ctx context.Context, name string) (*model.Account, error) {
	return call(ctx, c, rpc.OpSignup, rpc.SignupArgs{Name: name}, model.DecodeAccountFrom)
}

func (c *Client) Login(ctx context.Context, loginCode string) (*model.Account, error) {
	return call(ctx, c, rpc.OpLogin, rpc.LoginArgs{LoginCode: loginCode}, model.DecodeOptionalAccountFrom)
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := call(ctx, c, rpc.OpLogout, rpc.Unit{}, rpc.DecodeUnit)
	return err
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := call(ctx, c, rpc.OpDeleteAccount, rpc.Unit{}, rpc.DecodeUnit)
	return err
}

func (c *Client) CurrentAccount(ctx context.Context) (*model.Account, error) {
	return call(ctx, c, rpc.OpCurrentAccount, rpc.Unit{}, model.DecodeOptionalAccountFrom)
}

func (c *Client) AddPost(ctx context.Context, body string) (*model.Post, error) {
	return call(ctx, c, rpc.OpAddPost, rpc.AddPostArgs{Body: body}, model.DecodePostFrom)
}

func (c *Client) Feed(ctx context.Context) ([]model.Post, error) {
	return call(ctx, c, rpc.OpFeed, rpc.Unit{}, model.DecodePostsFrom)
}

func (c *Client) ToggleLike(ctx context.Context, postID int64) (*model.Post, error) {
	return call(ctx, c, rpc.OpToggleLike, rpc.PostArgs{PostID: postID}, model.DecodePostFrom)
}

func (c *Client) AddComment(ctx context.Context, postID int64, body string) (*model.Comment, error) {
	return call(ctx, c, rpc.OpAddComment, rpc.AddCommentArgs{PostID: postID, Body: body}, model.DecodeCommentFrom)
}

func (c *Client) Comments(ctx context.Context, postID int64) ([]model.Comment, error) {
	return call(ctx, c, rpc.OpComments, rpc.PostArgs{PostID: postID}, model.DecodeCommentsFrom)
}
