package transform

import "errors"

// Sentinel kinds for transform errors.
var (
	ErrInvalidDecay   = errors.New("invalid adstock decay")
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrIncompleteData = errors.New("dataset has unresolved gaps")
)
