// Package handle derives unique, human-readable handles from a user's name
// pair. The registry serializes calls, so Allocate only has to be correct
// against the snapshot of taken handles it is given.
package handle

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxLen is the cap applied to the base handle before collision suffixing,
// counted in characters, not bytes. A numeric suffix may push the final
// handle past this length.
const MaxLen = 20

// Allocate builds a handle from the lowercased concatenation of first and
// last name, truncated to MaxLen characters. If that base is already taken,
// the smallest non-negative integer suffix producing a free handle is
// appended (base, base0, base1, ...).
func Allocate(first, last string, taken map[string]struct{}) string {
	base := strings.ToLower(first + last)
	if utf8.RuneCountInString(base) > MaxLen {
		base = string([]rune(base)[:MaxLen])
	}
	if _, exists := taken[base]; !exists {
		return base
	}
	for n := 0; ; n++ {
		candidate := base + strconv.Itoa(n)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}
