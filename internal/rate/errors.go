package rate

import "errors"

var (
	// ErrRateLimited is returned by CheckLogin while the (username, ip) pair is locked out.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps failures of the attempt log queries.
	ErrStoreUnavailable = errors.New("attempt store unavailable")
)
