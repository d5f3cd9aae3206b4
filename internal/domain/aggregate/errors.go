package aggregate

import "github.com/okian/matchrisk/internal/domain/numeric"

// Sentinel kinds for aggregation. They alias the numeric package so callers
// only need to import this one.
var (
	ErrNoRootInBracket    = numeric.ErrNoRootInBracket
	ErrIntegrationFailure = numeric.ErrIntegrationFailure
)
