package goodreads

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var profileURLRegex = regexp.MustCompile(
	`(?i)^https?://(?:www\.)?goodreads\.com/user/show/(\d+)(-[\w-]+)?(?:\?.*)?$`,
)

var bookURLRegex = regexp.MustCompile(
	`(?i)^https?://(?:www\.)?goodreads\.com/book/show/\d+`,
)

// ValidateProfileURL checks a URL against the canonical profile shape
// https://www.goodreads.com/user/show/<id>[-slug][?query] and normalizes it
// to the https/www form, preserving the query string. It never fails on
// malformed input; invalid URLs come back as (false, "", "").
func ValidateProfileURL(raw string) (ok bool, normalized string, userID string) {
	raw = strings.TrimSpace(raw)
	match := profileURLRegex.FindStringSubmatch(raw)
	if match == nil {
		return false, "", ""
	}
	userID = match[1]

	parsed, err := url.Parse(raw)
	if err != nil {
		return false, "", ""
	}
	normalized = "https://www.goodreads.com" + parsed.Path
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	return true, normalized, userID
}

// ExtractUserID pulls the numeric owner id out of a profile URL.
func ExtractUserID(raw string) (string, error) {
	ok, _, userID := ValidateProfileURL(raw)
	if !ok {
		return "", fmt.Errorf(
			"%w: expected https://www.goodreads.com/user/show/USER_ID-username, got %q",
			ErrInvalidURL, raw,
		)
	}
	return userID, nil
}

// IsBookURL reports whether a URL points at a book detail page rather than
// a profile.
func IsBookURL(raw string) bool {
	return bookURLRegex.MatchString(strings.TrimSpace(raw))
}

// usernameFromProfileURL recovers the slug part of a profile URL as a
// fallback username, e.g. "tim-brown" from .../user/show/172435467-tim-brown.
func usernameFromProfileURL(profileURL string) string {
	match := profileURLRegex.FindStringSubmatch(strings.TrimSpace(profileURL))
	if match == nil || match[2] == "" {
		return "unknown"
	}
	return strings.TrimPrefix(match[2], "-")
}
