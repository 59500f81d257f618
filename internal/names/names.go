// Package names compares human-facing names the way the host does:
// case-insensitively, after Unicode normalization, so "Muros", "MUROS"
// and a decomposed "Muros" all refer to the same thing.
package names

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key returns the comparison key for s: NFC-normalized and case-folded.
// A Caser is not safe for concurrent use, so one is built per call.
func Key(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Equal reports whether a and b name the same thing ignoring case.
func Equal(a, b string) bool {
	if a == b {
		return true
	}
	return Key(a) == Key(b)
}

// Set is a case-insensitive membership set built once from a list.
type Set map[string]struct{}

// NewSet builds a Set from names.
func NewSet(names []string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[Key(n)] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[Key(name)]
	return ok
}
