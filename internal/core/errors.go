package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDateRow indicates the current run's date dimension row was not
	// loaded before fact reconciliation. Fatal to the run.
	ErrMissingDateRow = errors.New("date dimension row missing for current run")

	// ErrUnresolvedReference indicates a fact row references a dimension entity
	// with no metrics entry. Signals an internal consistency bug; fatal to the run.
	ErrUnresolvedReference = errors.New("fact references entity without metrics")
)

// UpstreamError wraps a failed catalog service call. Callers treat it as
// "no data for this call": a failed page fetch stops pagination for that
// playlist, a failed batch lookup aborts that batch.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err originated from a catalog service call.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
