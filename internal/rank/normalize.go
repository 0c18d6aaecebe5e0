package rank

import "strings"

// NormalizeDomain canonicalizes a URL or bare domain into a comparable form:
// lower-cased, without scheme, without a leading "www." and without
// surrounding whitespace. It never fails; empty input yields "".
//
// Prefixes are stripped until the value stops changing so that
// NormalizeDomain(NormalizeDomain(x)) == NormalizeDomain(x) for every x.
func NormalizeDomain(raw string) string {
	s := strings.ToLower(raw)
	for {
		prev := s
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "http://") {
			s = s[len("http://"):]
		} else if strings.HasPrefix(s, "https://") {
			s = s[len("https://"):]
		}
		s = strings.TrimPrefix(s, "www.")
		if s == prev {
			return s
		}
	}
}

// hostPart returns the portion of a normalized URL before the first "/".
func hostPart(normalized string) string {
	if i := strings.IndexByte(normalized, '/'); i >= 0 {
		return normalized[:i]
	}
	return normalized
}
