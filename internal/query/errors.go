package query

import "errors"

// Typed failures for the transport boundary to translate into response
// codes. A skipped sync trigger is not represented here; that is a
// reported no-op, not an error.
var (
	// ErrNotFound means the query target is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery means the filter/sort input is malformed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrServiceUnavailable means the catalog store could not be read.
	ErrServiceUnavailable = errors.New("service unavailable")
)
