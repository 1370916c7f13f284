// Package protocol implements the binary wire format for postboard RPC calls.
//
// A remote call travels as a single HTTP request body and its result as a
// single response body. Both are compact binary envelopes; there is no
// reflection involved, every payload type encodes itself through an
// Encoder and decodes through a Decoder.
//
// # Call
//
//	┌───────┬─────────┬──────────────────────┬──────────────────────────┐
//	│ Magic │ Version │ Op (len-prefixed)    │ Args (len-prefixed)      │
//	│ 0x50  │ 0x01    │ "signup"             │ operation-specific bytes │
//	└───────┴─────────┴──────────────────────┴──────────────────────────┘
//
// The op name is the discriminant of a tagged union: each registered
// operation owns exactly one argument layout. DecodeCall rejects names not
// present in the caller's OpSet, so an unknown discriminant never reaches a
// handler.
//
// # Reply
//
// Replies have two layers. The outer layer reports whether the transport
// succeeded:
//
//	[Magic][Version][Status]
//	  StatusOK             -> [Result][...]
//	  StatusTransportError -> [ErrorMessage]
//
// The inner layer reports the outcome of the operation itself:
//
//	  ResultOK      -> [Payload (len-prefixed)]
//	  ResultFailure -> [Failure]
//
// A Failure is expected application data (for example "name unavailable");
// an ErrorMessage is an infrastructure problem whose detail never leaves the
// server.
//
// # Encoding
//
//   - Varint: unsigned integers, protobuf-style
//   - ZigZag: signed integers as unsigned varints
//   - Length-prefixed: strings and byte slices
//   - Big-endian: fixed-width integers and IEEE 754 floats
//
// # Content type
//
// Requests must present ContentType. CheckContentType is meant to run before
// the body is read so an unexpected format fails fast without parser
// diagnostics.
package protocol
