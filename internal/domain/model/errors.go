package model

import "errors"

// Sentinel kinds for record validation.
var (
	ErrInvalidRecord = errors.New("invalid matchup record")
)
