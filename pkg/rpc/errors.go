package rpc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vango-dev/postboard/pkg/protocol"
	"github.com/vango-dev/postboard/pkg/store"
)

// Failure is a business outcome returned to the caller with 200.
type Failure = protocol.Failure

// Failure codes.
const (
	CodeNameInvalid     = "name_invalid"
	CodeNameUnavailable = "name_unavailable"
	CodeSignInRequired  = "sign_in_required"
	CodePostInvalid     = "post_invalid"
	CodeCommentInvalid  = "comment_invalid"
)

// Failures without per-call detail. Compare with errors.Is; codes match.
var (
	ErrSignInRequired = &Failure{Code: CodeSignInRequired, Message: "sign in required"}
	ErrNameInvalid    = &Failure{Code: CodeNameInvalid, Message: "name is invalid"}
	ErrNameTaken      = &Failure{Code: CodeNameUnavailable, Message: "name is not available"}
	ErrPostInvalid    = &Failure{Code: CodePostInvalid, Message: "post body is invalid"}
	ErrCommentInvalid = &Failure{Code: CodeCommentInvalid, Message: "comment body is invalid"}
)

var (
	// ErrNotFound is returned when the primary subject of a call does not
	// exist. It is sent as a 404 transport error.
	ErrNotFound = errors.New("rpc: not found")

	// ErrMalformedArgs wraps argument decoding errors.
	ErrMalformedArgs = errors.New("rpc: malformed arguments")
)

// HandlerError wraps a panic that occurred in an operation handler.
type HandlerError struct {
	Op    string
	Panic any
	Stack []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("rpc: handler panic in %s: %v", e.Op, e.Panic)
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(op string, panicVal any, stack []byte) *HandlerError {
	return &HandlerError{Op: op, Panic: panicVal, Stack: stack}
}

// nameFailure converts a refused name into a failure listing each rule.
func nameFailure(nerr *store.NameError) *Failure {
	base := ErrNameInvalid
	if errors.Is(nerr, store.ErrNameTaken) {
		base = ErrNameTaken
	}
	return &Failure{Code: base.Code, Message: base.Message, Fields: nerr.Check.Fields()}
}

// bodyFailure converts a refused post or comment body.
func bodyFailure(base *Failure, verr *store.ValidationError) *Failure {
	return &Failure{
		Code:    base.Code,
		Message: base.Message,
		Fields: map[string]string{
			"length": strconv.Itoa(verr.Len),
			"max":    strconv.Itoa(verr.Max),
		},
	}
}

// notFound maps the store's not-found to ErrNotFound for the primary
// subject of a call.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
