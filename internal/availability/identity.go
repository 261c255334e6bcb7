package availability

import "strings"

// identitySeparators are tried in order; the first one present wins.
var identitySeparators = []string{"—", "–", "-"}

// ExtractIdentity returns the person named at the front of a calendar
// title such as "Jane Doe – Algorithms Lecture". The title is cut at the
// first em-dash, or failing that the first en-dash, or failing that the
// first hyphen. Titles without any separator are returned whole, trimmed.
func ExtractIdentity(title string) string {
	for _, sep := range identitySeparators {
		if left, _, found := strings.Cut(title, sep); found {
			return strings.TrimSpace(left)
		}
	}
	return strings.TrimSpace(title)
}

// identityMatches reports whether a and b name the same person: either
// contains the other, ignoring case. Empty names never match.
func identityMatches(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
