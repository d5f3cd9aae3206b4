package numeric

import "errors"

// Sentinel kinds for numerical failures.
var (
	ErrIntegrationFailure = errors.New("integration did not converge")
	ErrNoRootInBracket    = errors.New("no root in bracket")
	ErrRootNotConverged   = errors.New("root finder did not converge")
)
