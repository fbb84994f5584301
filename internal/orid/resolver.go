// Package orid derives the project identifier tying a file to its parent
// project. Resolution precedence: a token in the file name, then the nearest
// ancestor directory carrying one, else absent.
package orid

import (
	"path/filepath"
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`(?i)ORID\d{4}`)

// FromString extracts an ORID token from an arbitrary string. Matching
// requires a full token boundary: a candidate embedded in a longer
// alphanumeric run (e.g. ORID00365) is not a match.
func FromString(s string) (string, bool) {
	for _, loc := range tokenRe.FindAllStringIndex(s, -1) {
		if loc[0] > 0 && isAlnum(s[loc[0]-1]) {
			continue
		}
		if loc[1] < len(s) && isAlnum(s[loc[1]]) {
			continue
		}
		return strings.ToUpper(s[loc[0]:loc[1]]), true
	}
	return "", false
}

// Resolve walks the path for an identifier: file name first, then each
// ancestor directory name upward without bound.
func Resolve(path string) (string, bool) {
	if id, ok := FromString(filepath.Base(path)); ok {
		return id, true
	}
	dir := filepath.Dir(path)
	for {
		base := filepath.Base(dir)
		if base == "." || base == string(filepath.Separator) || base == "" {
			return "", false
		}
		if id, ok := FromString(base); ok {
			return id, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
