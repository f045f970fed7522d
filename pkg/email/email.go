package email

import (
	"net/mail"
	"strings"
)

// Normalize trims whitespace and lowercases an address for comparison.
// Duplicate-registration checks must compare normalized addresses so casing
// differences cannot bypass the one-registration-per-email policy.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Valid reports whether addr is a syntactically valid, bare email address.
// Display-name forms ("Jane <jane@example.com>") are rejected because the
// registration form collects the address on its own.
func Valid(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return false
	}
	return parsed.Address == addr
}
