package champion

import "errors"

// Sentinel kinds for upstream errors.
var (
	ErrUpstream = errors.New("upstream error")
)
