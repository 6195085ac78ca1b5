package util

import "strings"

// Coalesce returns the first non-zero value, or the zero value if all are zero.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// MaskSecret hides all but the first visiblePrefix characters of s.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}

// ObjectPath turns a router wildcard capture ("/dir/a.txt") into an object
// key ("dir/a.txt"). Only the leading slash is removed; the rest of the key
// is passed through untouched.
func ObjectPath(wildcard string) string {
	return strings.TrimPrefix(wildcard, "/")
}
