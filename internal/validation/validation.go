package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"rankwatch/internal/rank"
)

// Length limits for user input.
const (
	MaxKeywordLength  = 200
	MaxDomainLength   = 253
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit, in bytes
)

// hostPattern matches a host name label sequence, with an optional port.
var hostPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]*[a-z0-9])?(:[0-9]{1,5})?$`)

// NormalizeKeyword trims a search keyword and collapses inner whitespace.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(keyword), " ")
}

// ValidateKeyword checks a normalized search keyword.
func ValidateKeyword(keyword string) (bool, string) {
	if keyword == "" {
		return false, "Keyword is required"
	}
	if utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return false, "Keyword is too long"
	}
	for _, r := range keyword {
		if unicode.IsControl(r) {
			return false, "Keyword contains invalid characters"
		}
	}
	return true, ""
}

// ValidateDomain checks a domain as entered by the user and returns its
// normalized form.
func ValidateDomain(raw string) (string, bool, string) {
	normalized := rank.NormalizeDomain(raw)
	if normalized == "" {
		return "", false, "Domain is required"
	}
	if len(normalized) > MaxDomainLength {
		return "", false, "Domain is too long"
	}

	host, _, _ := strings.Cut(normalized, "/")
	if !hostPattern.MatchString(host) {
		return "", false, "Domain must be a host name such as example.com"
	}
	if !strings.Contains(host, ".") && !strings.HasPrefix(host, "localhost") {
		return "", false, "Domain must be a host name such as example.com"
	}
	return normalized, true, ""
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) (bool, string) {
	if email == "" {
		return false, "Email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false, "Invalid email address"
	}
	return true, ""
}

// ValidatePassword enforces the password length limits.
func ValidatePassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password must be at most 72 bytes"
	}
	return true, ""
}
