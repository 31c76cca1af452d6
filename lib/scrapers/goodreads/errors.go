package goodreads

import "errors"

// Terminal error kinds. Anything wrapping one of these aborts the whole
// scrape; per-row and per-book problems are logged and skipped instead.
var (
	// ErrInvalidURL is returned for URLs that do not match the profile
	// URL shape, and for 404 responses on pages derived from one.
	ErrInvalidURL = errors.New("invalid goodreads profile url")

	// ErrPrivateProfile is returned when the profile page carries
	// private-profile markers. Distinct from network failure: the HTTP
	// exchange itself succeeded.
	ErrPrivateProfile = errors.New("profile is private")

	// ErrRateLimited is returned on a 429 response. It is never retried
	// internally; the caller should widen the rate-limit delay and re-run
	// instead of hammering a server that is already pushing back.
	ErrRateLimited = errors.New("rate limited by goodreads")

	// ErrNotFound is returned on a 404 response.
	ErrNotFound = errors.New("page not found")

	// ErrNetwork covers connection failures, timeouts, retry-exhausted
	// 5xx responses and unexpected 4xx statuses.
	ErrNetwork = errors.New("network error")
)
