package api

import (
	"errors"
	"net/http"

	"github.com/okian/matchrisk/internal/adapters/repository"
	"github.com/okian/matchrisk/internal/adapters/storage"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/profile"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoCohort   = errors.New("no cohort loaded for tier")
)

// statusOf maps domain errors to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, cohort.ErrUnknownMetric),
		errors.Is(err, profile.ErrUnknownRole),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, cohort.ErrStatsNotComputed):
		return http.StatusConflict, "stats_not_computed"
	case errors.Is(err, ErrNoCohort),
		errors.Is(err, repository.ErrNoBoard),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, cohort.ErrUnknownEntity),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}
