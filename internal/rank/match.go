package rank

import "strings"

// MatchTier identifies which rule matched a result URL to a target domain.
type MatchTier int

// Match tiers in evaluation order. NoMatch is the zero value.
const (
	NoMatch MatchTier = iota
	TierExact
	TierSubdomain
	TierHostContains
	TierURLContains
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubdomain:
		return "subdomain"
	case TierHostContains:
		return "host_contains"
	case TierURLContains:
		return "url_contains"
	default:
		return "none"
	}
}

// Matches reports whether resultURL belongs to targetDomain.
func Matches(resultURL, targetDomain string) bool {
	return MatchTierOf(resultURL, targetDomain) != NoMatch
}

// MatchTierOf evaluates the match rules in order and returns the first one
// that succeeds. The last tier looks at the whole URL, so a target that only
// appears in a path or query string still counts as a match.
func MatchTierOf(resultURL, targetDomain string) MatchTier {
	if resultURL == "" || targetDomain == "" {
		return NoMatch
	}

	result := NormalizeDomain(resultURL)
	normalizedTarget := NormalizeDomain(targetDomain)
	if result == "" || normalizedTarget == "" {
		return NoMatch
	}
	host := hostPart(result)
	target := hostPart(normalizedTarget)
	if target == "" {
		// Target starts with "/": nothing host-like to compare, fall through
		// to the whole-URL rule with the full value.
		target = normalizedTarget
	}

	switch {
	case host == target:
		return TierExact
	case strings.HasSuffix(host, "."+target):
		return TierSubdomain
	case strings.Contains(host, target):
		return TierHostContains
	case strings.Contains(result, target):
		return TierURLContains
	}
	return NoMatch
}
