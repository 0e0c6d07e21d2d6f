// Package validate holds the pure, stateless field validators shared by the
// store and the HTTP-filter strategies. Every function either returns nil or
// a *FieldError naming the offending field and reason — callers decide how
// to present that to an operator.
package validate

import (
	"fmt"
	"net"
	"strings"
)

// FieldError names the field that failed validation and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

const nameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_."

// Name validates a resource identifier: 1..253 chars, alphanumeric plus
// '-', '_', '.'.
func Name(field, s string) error {
	if s == "" {
		return fieldErr(field, "must not be empty")
	}
	if len(s) > 253 {
		return fieldErr(field, "must be at most 253 characters")
	}
	for _, r := range s {
		if !strings.ContainsRune(nameChars, r) {
			return fieldErr(field, fmt.Sprintf("contains invalid character %q", r))
		}
	}
	return nil
}

// Path validates a route path: non-empty, starts with '/', no "..", no
// "//", no control characters.
func Path(field, s string) error {
	if s == "" || s[0] != '/' {
		return fieldErr(field, "must start with '/'")
	}
	if strings.Contains(s, "..") {
		return fieldErr(field, "must not contain '..'")
	}
	if strings.Contains(s, "//") {
		return fieldErr(field, "must not contain '//'")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return fieldErr(field, "must not contain control characters")
		}
	}
	return nil
}

// Host validates an upstream host: 1..253 chars, must parse as an IP or a
// hostname whose labels don't start/end with '-'.
func Host(field, s string) error {
	if s == "" {
		return fieldErr(field, "must not be empty")
	}
	if len(s) > 253 {
		return fieldErr(field, "must be at most 253 characters")
	}
	if net.ParseIP(s) != nil {
		return nil
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" {
			return fieldErr(field, "must not contain empty labels")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fieldErr(field, "labels must not start or end with '-'")
		}
		for _, r := range label {
			if !strings.ContainsRune(nameChars, r) || r == '_' {
				return fieldErr(field, fmt.Sprintf("contains invalid character %q", r))
			}
		}
	}
	return nil
}

// Port validates a TCP port is within 1..65535.
func Port(field string, p int) error {
	if p < 1 || p > 65535 {
		return fieldErr(field, "must be between 1 and 65535")
	}
	return nil
}

// HTTPMethod checks s (compared case-insensitively) is a member of allowed.
func HTTPMethod(field, s string, allowed []string) error {
	up := strings.ToUpper(s)
	for _, a := range allowed {
		if strings.ToUpper(a) == up {
			return nil
		}
	}
	return fieldErr(field, fmt.Sprintf("%q is not an allowed HTTP method", s))
}

// HeaderName validates an HTTP header name: 1..100 chars, alphanumeric
// plus '-', '_', '.', no control characters.
func HeaderName(field, s string) error {
	if s == "" {
		return fieldErr(field, "must not be empty")
	}
	if len(s) > 100 {
		return fieldErr(field, "must be at most 100 characters")
	}
	for _, r := range s {
		if !strings.ContainsRune(nameChars, r) {
			return fieldErr(field, fmt.Sprintf("contains invalid character %q", r))
		}
	}
	return nil
}

// HeaderValue validates an HTTP header value: 0..8192 chars, forbids
// control characters except horizontal tab.
func HeaderValue(field, s string) error {
	if len(s) > 8192 {
		return fieldErr(field, "must be at most 8192 characters")
	}
	for _, r := range s {
		if r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return fieldErr(field, "must not contain control characters")
		}
	}
	return nil
}

// JWTSecret validates a JWT signing secret: at least 32 characters,
// rejects secrets containing "secret" or "password" (case-insensitive),
// and rejects single-character-repeated strings.
func JWTSecret(field, s string) error {
	if len(s) < 32 {
		return fieldErr(field, "must be at least 32 characters")
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "secret") || strings.Contains(lower, "password") {
		return fieldErr(field, "must not contain the substring \"secret\" or \"password\"")
	}
	if isSingleCharRepeated(s) {
		return fieldErr(field, "must not be a single character repeated")
	}
	return nil
}

func isSingleCharRepeated(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

// luaDenyTokens are substrings that, if present, flag a string as
// Lua-unsafe: likely to escape its long-bracket literal or execute code
// when interpolated into a generated Lua script.
var luaDenyTokens = []string{
	"os.execute", "io.popen", "loadstring", "load(", "dofile", "loadfile",
	"debug.", "package.", "require(", "_g[", "getfenv", "setfenv",
	"\nend", "\nfunction", "\nlocal", "\nif", "\nfor", "\nwhile", "\nrepeat", "\ndo", "\nreturn",
	"]]", "[[", "--]]", "]]--", "/*", "*/",
}

// LuaSafe rejects any string containing a fixed deny-list of Lua tokens,
// long-bracket/comment escape sequences, NUL bytes, or more than two
// control characters total. Applied to every string interpolated into a
// generated Lua script or used as an Envoy matcher value.
func LuaSafe(field, s string) error {
	lower := strings.ToLower(s)
	for _, tok := range luaDenyTokens {
		if strings.Contains(lower, tok) {
			return fieldErr(field, fmt.Sprintf("contains disallowed Lua token %q", tok))
		}
	}
	if strings.ContainsRune(s, 0) {
		return fieldErr(field, "must not contain NUL bytes")
	}
	controlCount := 0
	for _, r := range s {
		if r < 0x20 {
			controlCount++
		}
	}
	if controlCount > 2 {
		return fieldErr(field, "contains too many control characters")
	}
	return nil
}
