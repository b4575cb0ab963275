package utils

import (
	"strings"
	"unicode"
)

const MaxShortLinkLength = 50

// Slugify lowercases the name, keeps unicode letters and digits and collapses
// everything else into single hyphens. Cyrillic recipe names keep their
// letters, matching the short-link charset accepted by the resolver.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len([]rune(slug)) > MaxShortLinkLength {
		slug = strings.Trim(string([]rune(slug)[:MaxShortLinkLength]), "-")
	}
	return slug
}
