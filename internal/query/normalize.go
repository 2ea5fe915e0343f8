package query

import (
	"regexp"
	"strings"
)

// placeholderRe matches any brace section, including empty braces, so
// "{id}", "{user-id}" and "{}" all normalize to the same wildcard.
var placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)

// cleanQueryPath prepares the raw path portion of a query for matching:
// a leading scheme://host segment is stripped, everything from the first '?'
// is dropped, and any path segment consisting solely of digits becomes the
// wildcard placeholder (a pasted "/users/123" should match "/users/{id}").
func cleanQueryPath(q string) string {
	if i := strings.Index(q, "://"); i >= 0 {
		rest := q[i+3:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			q = rest[slash:]
		} else {
			q = ""
		}
	}

	if i := strings.IndexByte(q, '?'); i >= 0 {
		q = q[:i]
	}

	segments := strings.Split(q, "/")
	for i, seg := range segments {
		if isAllDigits(seg) {
			segments[i] = "{*}"
		}
	}
	return strings.Join(segments, "/")
}

// normalizePlaceholders maps every brace section to "{*}" and treats a
// doubled slash as a missing segment, i.e. a wildcard. Both the query and
// the stored route path run through this before comparison - the two sides
// must normalize identically.
func normalizePlaceholders(s string) string {
	s = placeholderRe.ReplaceAllString(s, "{*}")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/{*}/")
	}
	return s
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
