package protocol

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope constants.
const (
	// Magic is the first byte of every call and reply.
	Magic byte = 0x50

	// Version is the current envelope version.
	Version byte = 0x01

	// MaxOpNameLength bounds the discriminant.
	MaxOpNameLength = 64
)

// Status is the outer (transport) layer of a reply.
type Status uint8

const (
	StatusOK             Status = 0x00 // Transport succeeded, see Result
	StatusTransportError Status = 0x01 // Transport failed, see ErrorMessage
)

// Result is the inner (business) layer of a reply.
type Result uint8

const (
	ResultOK      Result = 0x00 // Operation succeeded, see Payload
	ResultFailure Result = 0x01 // Operation failed, see Failure
)

// Envelope errors.
var (
	ErrBadMagic         = errors.New("protocol: bad magic byte")
	ErrBadVersion       = errors.New("protocol: unsupported version")
	ErrUnknownOp        = errors.New("protocol: unknown operation")
	ErrInvalidStatus    = errors.New("protocol: invalid reply status")
	ErrInvalidResult    = errors.New("protocol: invalid reply result")
	ErrEmptyFailureCode = errors.New("protocol: failure without code")
)

// OpSet reports which discriminants are known to the receiver.
type OpSet interface {
	Has(op string) bool
}

// Call is a single remote invocation: the discriminant plus the
// operation's encoded argument struct.
type Call struct {
	Op   string
	Args []byte
}

// EncodeCall encodes a call envelope.
func EncodeCall(c *Call) []byte {
	e := NewEncoder()
	e.WriteByte(Magic)
	e.WriteByte(Version)
	e.WriteString(c.Op)
	e.WriteLenBytes(c.Args)
	return e.Bytes()
}

func readHeader(d *Decoder) error {
	magic, err := d.ReadByte()
	if err != nil {
		return err
	}
	if magic != Magic {
		return ErrBadMagic
	}
	version, err := d.ReadByte()
	if err != nil {
		return err
	}
	if version != Version {
		return ErrBadVersion
	}
	return nil
}

// DecodeCall decodes a call envelope. Discriminants missing from known
// yield an error wrapping ErrUnknownOp; the args are not inspected.
func DecodeCall(data []byte, known OpSet) (*Call, error) {
	d := NewDecoder(data)
	if err := readHeader(d); err != nil {
		return nil, err
	}
	op, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	if op == "" || len(op) > MaxOpNameLength || known == nil || !known.Has(op) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, truncate(op, MaxOpNameLength))
	}
	args, err := d.ReadLenBytes()
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return &Call{Op: op, Args: args}, nil
}

// Reply is a decoded two-layer response.
type Reply struct {
	Status Status

	// Transport error, set when Status is StatusTransportError.
	Error *ErrorMessage

	// Business outcome, set when Status is StatusOK.
	Result  Result
	Payload []byte
	Failure *Failure
}

// OK builds a successful reply carrying payload.
func OK(payload []byte) *Reply {
	return &Reply{Status: StatusOK, Result: ResultOK, Payload: payload}
}

// Fail builds a transport-successful reply carrying a business failure.
func Fail(f *Failure) *Reply {
	return &Reply{Status: StatusOK, Result: ResultFailure, Failure: f}
}

// TransportError builds a transport error reply.
func TransportError(code ErrorCode, message string) *Reply {
	return &Reply{Status: StatusTransportError, Error: NewError(code, message)}
}

// HTTPStatus returns the status code the reply is sent with. Business
// failures travel with 200 like successes.
func (r *Reply) HTTPStatus() int {
	if r.Status == StatusTransportError && r.Error != nil {
		return r.Error.Code.HTTPStatus()
	}
	return http.StatusOK
}

// EncodeReply encodes a reply envelope.
func EncodeReply(r *Reply) []byte {
	e := NewEncoder()
	e.WriteByte(Magic)
	e.WriteByte(Version)
	e.WriteByte(byte(r.Status))
	switch r.Status {
	case StatusTransportError:
		em := r.Error
		if em == nil {
			em = NewError(ErrUnknown, "")
		}
		em.EncodeTo(e)
	default:
		e.WriteByte(byte(r.Result))
		if r.Result == ResultFailure {
			f := r.Failure
			if f == nil {
				f = &Failure{Code: "unknown"}
			}
			f.EncodeTo(e)
		} else {
			e.WriteLenBytes(r.Payload)
		}
	}
	return e.Bytes()
}

// DecodeReply decodes a reply envelope.
func DecodeReply(data []byte) (*Reply, error) {
	d := NewDecoder(data)
	if err := readHeader(d); err != nil {
		return nil, err
	}
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	r := &Reply{Status: Status(status)}
	switch r.Status {
	case StatusTransportError:
		if r.Error, err = DecodeErrorMessageFrom(d); err != nil {
			return nil, err
		}
	case StatusOK:
		result, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		r.Result = Result(result)
		switch r.Result {
		case ResultOK:
			if r.Payload, err = d.ReadLenBytes(); err != nil {
				return nil, err
			}
		case ResultFailure:
			if r.Failure, err = DecodeFailureFrom(d); err != nil {
				return nil, err
			}
		default:
			return nil, ErrInvalidResult
		}
	default:
		return nil, ErrInvalidStatus
	}

	if err := d.Finish(); err != nil {
		return nil, err
	}
	return r, nil
}

// IsMalformed reports whether err came from decoding a damaged payload
// rather than from an unknown discriminant.
func IsMalformed(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, ErrBadMagic) ||
		errors.Is(err, ErrBadVersion) ||
		errors.Is(err, ErrVarintOverflow) ||
		errors.Is(err, ErrInvalidBool) ||
		errors.Is(err, ErrAllocationTooLarge) ||
		errors.Is(err, ErrCollectionTooLarge) ||
		errors.Is(err, ErrTrailingBytes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
