package feed

import "errors"

// Feed failures that survive the client's internal retry budget.
var (
	// ErrFeedUnavailable covers network failures and provider 5xx.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedTimeout covers a per-call deadline expiring.
	ErrFeedTimeout = errors.New("feed timeout")
	// ErrFeedRateLimited covers provider 429 responses.
	ErrFeedRateLimited = errors.New("feed rate limited")
)
