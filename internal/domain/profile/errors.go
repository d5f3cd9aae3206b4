package profile

import "errors"

// Sentinel kinds for profile errors.
var (
	ErrInvalidState      = errors.New("invalid profile state")
	ErrSurvivalDiscarded = errors.New("survival function discarded")
	ErrUnknownRole       = errors.New("unknown role")
)
