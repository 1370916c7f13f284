package protocol

import (
	"net/http"
	"sort"
	"strings"
)

// ErrorCode identifies a transport-level error.
type ErrorCode uint16

const (
	ErrUnknown          ErrorCode = 0x0000 // Unknown error
	ErrMalformed        ErrorCode = 0x0001 // Payload could not be decoded
	ErrUnknownOperation ErrorCode = 0x0002 // Discriminant names no registered operation
	ErrUnsupportedMedia ErrorCode = 0x0003 // Unexpected Content-Type
	ErrRequestTooLarge  ErrorCode = 0x0004 // Body exceeds MaxRequestSize
	ErrHandlerPanic     ErrorCode = 0x0005 // Handler panicked
	ErrServerError      ErrorCode = 0x0100 // Internal server error
	ErrNotFound         ErrorCode = 0x0102 // Primary subject of the call does not exist
	ErrMethodNotAllowed ErrorCode = 0x0103 // Only POST is accepted
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrMalformed:
		return "Malformed"
	case ErrUnknownOperation:
		return "UnknownOperation"
	case ErrUnsupportedMedia:
		return "UnsupportedMedia"
	case ErrRequestTooLarge:
		return "RequestTooLarge"
	case ErrHandlerPanic:
		return "HandlerPanic"
	case ErrServerError:
		return "ServerError"
	case ErrNotFound:
		return "NotFound"
	case ErrMethodNotAllowed:
		return "MethodNotAllowed"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps the code to the response status used on the wire.
// Every transport error is non-2xx.
func (ec ErrorCode) HTTPStatus() int {
	switch ec {
	case ErrMalformed, ErrUnknownOperation:
		return http.StatusBadRequest
	case ErrUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case ErrRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNotFound:
		return http.StatusNotFound
	case ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage is the payload of a transport error reply.
// Message is generic and safe to show; internal detail stays in server logs.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
}

// NewError creates a new ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	return em.Code.String() + ": " + em.Message
}

// EncodeTo encodes the ErrorMessage using the provided encoder.
func (em *ErrorMessage) EncodeTo(e *Encoder) {
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
}

// DecodeErrorMessageFrom decodes an ErrorMessage from a decoder.
func DecodeErrorMessageFrom(d *Decoder) (*ErrorMessage, error) {
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: message}, nil
}

// Failure is a business outcome: the transport worked, the operation
// did not. It is returned to the caller as application data.
type Failure struct {
	// Code is a stable machine-readable identifier such as "name_unavailable".
	Code string

	// Message is a human-readable description.
	Message string

	// Fields carries optional per-field detail.
	Fields map[string]string
}

// Error implements the error interface so handlers can return a Failure
// through their error result.
func (f *Failure) Error() string {
	if f.Message == "" {
		return f.Code
	}
	return f.Code + ": " + f.Message
}

// Is reports whether target is a Failure with the same code.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Code == f.Code
}

// EncodeTo encodes the Failure. Fields are written in key order so the
// encoding is deterministic.
func (f *Failure) EncodeTo(e *Encoder) {
	e.WriteString(f.Code)
	e.WriteString(f.Message)
	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		e.WriteString(f.Fields[k])
	}
}

// DecodeFailureFrom decodes a Failure from a decoder.
func DecodeFailureFrom(d *Decoder) (*Failure, error) {
	code, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyFailureCode
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	f := &Failure{Code: code, Message: message}
	if count > 0 {
		f.Fields = make(map[string]string, count)
	}
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		f.Fields[k] = v
	}
	return f, nil
}
