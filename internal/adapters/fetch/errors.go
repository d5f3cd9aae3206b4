package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for fetch errors.
var (
	ErrFetchFailure = errors.New("fetch failure")
)

// FetchFailure reports every key of a batch that could not be fetched. The
// partial results of the batch are discarded.
type FetchFailure struct {
	RunID string
	Tier  string
	// Keys is sorted.
	Keys []string
	Errs map[string]error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("%s: run %s tier %s: %d key(s) failed: %s",
		ErrFetchFailure, f.RunID, f.Tier, len(f.Keys), strings.Join(f.Keys, ","))
}

// Is matches ErrFetchFailure.
func (f *FetchFailure) Is(target error) bool {
	return target == ErrFetchFailure
}

// Unwrap exposes the per-key causes.
func (f *FetchFailure) Unwrap() []error {
	out := make([]error, 0, len(f.Keys))
	for _, k := range f.Keys {
		out = append(out, f.Errs[k])
	}
	return out
}
