// Package filename turns user-supplied names into safe file names.
package filename

import (
	"regexp"
	"strings"
)

const defaultMaxLen = 120

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]`)
	dashRuns    = regexp.MustCompile(`[-_]{2,}`)
)

// Sanitize replaces path separators, whitespace and characters that are
// illegal on common filesystems with dashes. Leading and trailing dashes
// and dots are removed so the result never names a hidden file or climbs
// out of its directory. maxLen <= 0 means 120 bytes.
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(name), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-.")
	}
	return s
}
