package cohort

import "errors"

// Sentinel kinds for cohort errors.
var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrStatsNotComputed = errors.New("stats not computed")
	ErrUnknownEntity    = errors.New("unknown entity")
)
