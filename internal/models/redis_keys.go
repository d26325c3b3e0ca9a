package models

import "strings"

// Key layout for short link entries
const (
	// DefaultKeyPrefix is prepended to every key written by the service
	DefaultKeyPrefix = "su:"

	// reversePathSegment separates path-keyed reverse entries from code-keyed forward entries
	reversePathSegment = "path:"
)

// KeyLayout builds store keys for forward (code -> path) and reverse (path -> code) mappings
type KeyLayout struct {
	Prefix string
}

// NewKeyLayout creates a KeyLayout, falling back to DefaultKeyPrefix when prefix is empty
func NewKeyLayout(prefix string) KeyLayout {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return KeyLayout{Prefix: prefix}
}

// Forward returns the key holding the path for code
func (k KeyLayout) Forward(code string) string {
	return k.Prefix + code
}

// Reverse returns the key holding the code currently assigned to path
func (k KeyLayout) Reverse(path string) string {
	return k.Prefix + reversePathSegment + path
}
