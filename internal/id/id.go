package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prefixes for the entity ids handed out by this package.
const (
	PrefixSession  = "ses"
	PrefixLine     = "lin"
	PrefixMovement = "mov"
)

// New returns a prefixed id like "ses_8f3a1c...".
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// NewSession returns a new import-session id.
func NewSession() string { return New(PrefixSession) }

// NewLine returns a new statement-line id.
func NewLine() string { return New(PrefixLine) }

// NewMovement returns a new ledger-movement id.
func NewMovement() string { return New(PrefixMovement) }

// Parse splits a prefixed id into prefix and UUID, validating both parts.
func Parse(s string) (prefix string, raw uuid.UUID, err error) {
	i := strings.IndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", uuid.Nil, fmt.Errorf("invalid id format: %q", s)
	}
	raw, err = uuid.Parse(s[i+1:])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return s[:i], raw, nil
}

// HasPrefix reports whether s is a well-formed id with the given prefix.
func HasPrefix(s, prefix string) bool {
	p, _, err := Parse(s)
	return err == nil && p == prefix
}

// Short returns the prefix plus the first 8 hex characters of the UUID
// part, for display. Returns the input unchanged if it is not a
// well-formed id.
func Short(s string) string {
	if _, _, err := Parse(s); err != nil {
		return s
	}
	i := strings.IndexByte(s, '_')
	return s[:i+9]
}
