package repository

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidLimit = errors.New("invalid ranking limit")
	ErrInvalidValue = errors.New("invalid ranking value")
	ErrNoBoard      = errors.New("no such ranking")
	ErrTierMismatch = errors.New("board key outside tier")
)
