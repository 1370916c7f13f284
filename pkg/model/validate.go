package model

import (
	"strings"
	"unicode/utf8"
)

// Name length bounds.
const (
	NameMinLength = 3
	NameMaxLength = 20
)

// Body length bounds for posts and comments.
const (
	PostMaxLength    = 500
	CommentMaxLength = 280
)

// CheckState is the outcome of a single validation rule.
type CheckState uint8

const (
	CheckUnknown CheckState = iota
	CheckValid
	CheckInvalid
)

// String returns the wire spelling of the state.
func (s CheckState) String() string {
	switch s {
	case CheckValid:
		return "valid"
	case CheckInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

func parseCheckState(s string) CheckState {
	switch s {
	case "valid":
		return CheckValid
	case "invalid":
		return CheckInvalid
	default:
		return CheckUnknown
	}
}

func checkOf(ok bool) CheckState {
	if ok {
		return CheckValid
	}
	return CheckInvalid
}

// NameCheck reports each signup name rule separately so a client can tell
// the user which one failed. Available stays CheckUnknown until storage has
// been consulted.
type NameCheck struct {
	Alphanumeric CheckState
	MinLength    CheckState
	MaxLength    CheckState
	Available    CheckState
}

// ValidateName checks the rules that do not need storage.
func ValidateName(name string) NameCheck {
	alnum := name != ""
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			alnum = false
			break
		}
	}
	n := utf8.RuneCountInString(name)
	return NameCheck{
		Alphanumeric: checkOf(alnum),
		MinLength:    checkOf(n >= NameMinLength),
		MaxLength:    checkOf(n <= NameMaxLength),
	}
}

// Valid reports whether all storage-independent rules pass.
func (c NameCheck) Valid() bool {
	return c.Alphanumeric == CheckValid &&
		c.MinLength == CheckValid &&
		c.MaxLength == CheckValid
}

// Fields flattens the check for transport inside a failure.
func (c NameCheck) Fields() map[string]string {
	return map[string]string{
		"alphanumeric": c.Alphanumeric.String(),
		"min_length":   c.MinLength.String(),
		"max_length":   c.MaxLength.String(),
		"available":    c.Available.String(),
	}
}

// NameCheckFromFields is the inverse of NameCheck.Fields.
func NameCheckFromFields(fields map[string]string) NameCheck {
	return NameCheck{
		Alphanumeric: parseCheckState(fields["alphanumeric"]),
		MinLength:    parseCheckState(fields["min_length"]),
		MaxLength:    parseCheckState(fields["max_length"]),
		Available:    parseCheckState(fields["available"]),
	}
}

// NormalizeBody trims surrounding whitespace and reports whether the result
// is non-empty and within max characters.
func NormalizeBody(body string, max int) (string, bool) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > max || !utf8.ValidString(body) {
		return body, false
	}
	return body, true
}
