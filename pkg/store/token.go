package store

import (
	"crypto/rand"
	"fmt"
)

// TokenLength is the length of login codes and session identifiers.
const TokenLength = 21

const tokenAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// newToken returns a random URL-safe token of TokenLength characters.
// The alphabet has 64 symbols, so masking a random byte is unbiased.
func newToken() string {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]&63]
	}
	return string(b)
}
