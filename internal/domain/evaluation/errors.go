package evaluation

import "errors"

// Sentinel kinds for evaluation errors.
var (
	ErrLengthMismatch  = errors.New("predicted and actual length mismatch")
	ErrNoEvaluableRows = errors.New("no evaluable rows")
)
