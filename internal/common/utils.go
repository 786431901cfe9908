package common

import "strings"

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used for passwords read from the terminal once they are no longer needed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// NormalizeEmail trims surrounding whitespace. Case is preserved: lookups are
// case-sensitive exact matches.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
