package rpc

import (
	"context"
	"fmt"
	"sort"

	"github.com/vango-dev/postboard/pkg/model"
	"github.com/vango-dev/postboard/pkg/protocol"
)

// Operation is a registered, type-erased handler.
type Operation struct {
	Name   string
	invoke func(ctx context.Context, cx *Cx, args []byte) ([]byte, error)
}

// Register builds an Operation from a typed handler. decode must consume
// the whole argument payload; trailing bytes are malformed.
func Register[A, R any](
	name string,
	decode func(*protocol.Decoder) (A, error),
	handle func(context.Context, *Cx, A) (R, error),
	encode func(*protocol.Encoder, R),
) Operation {
	return Operation{
		Name: name,
		invoke: func(ctx context.Context, cx *Cx, raw []byte) ([]byte, error) {
			d := protocol.NewDecoder(raw)
			args, err := decode(d)
			if err == nil {
				err = d.Finish()
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArgs, name, err)
			}

			result, err := handle(ctx, cx, args)
			if err != nil {
				return nil, err
			}
			e := protocol.NewEncoder()
			encode(e, result)
			return e.Bytes(), nil
		},
	}
}

// Registry is an immutable set of operations keyed by name.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry returns a registry of ops. Names must be unique.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if op.Name == "" || len(op.Name) > protocol.MaxOpNameLength {
			return nil, fmt.Errorf("rpc: invalid operation name %q", op.Name)
		}
		if _, dup := r.ops[op.Name]; dup {
			return nil, fmt.Errorf("rpc: operation %q registered twice", op.Name)
		}
		if op.invoke == nil {
			return nil, fmt.Errorf("rpc: operation %q has no handler", op.Name)
		}
		r.ops[op.Name] = op
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(ops ...Operation) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// Has reports whether op is registered. It makes Registry a protocol.OpSet.
func (r *Registry) Has(op string) bool {
	_, ok := r.ops[op]
	return ok
}

// Lookup returns the operation named op.
func (r *Registry) Lookup(op string) (Operation, bool) {
	o, ok := r.ops[op]
	return o, ok
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultOperations returns the postboard operation table.
func DefaultOperations() []Operation {
	return []Operation{
		Register(OpSignup, DecodeSignupArgs, signup, encodeAccount),
		Register(OpLogin, DecodeLoginArgs, login, encodeOptionalAccount),
		Register(OpLogout, DecodeUnit, logout, encodeUnit),
		Register(OpDeleteAccount, DecodeUnit, deleteAccount, encodeUnit),
		Register(OpCurrentAccount, DecodeUnit, currentAccount, encodeOptionalAccount),
		Register(OpAddPost, DecodeAddPostArgs, addPost, encodePost),
		Register(OpFeed, DecodeUnit, feed, model.EncodePosts),
		Register(OpToggleLike, DecodePostArgs, toggleLike, encodePost),
		Register(OpAddComment, DecodeAddCommentArgs, addComment, encodeComment),
		Register(OpComments, DecodePostArgs, comments, model.EncodeComments),
	}
}

// DefaultRegistry returns a registry of DefaultOperations.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultOperations()...)
}
