package ingest

import "errors"

// Sentinel kinds for ingestion errors. All of them surface to the caller
// as rejected input with the offending file or column named; none are
// silently coerced.
var (
	ErrNoSpendFiles      = errors.New("no spend files found")
	ErrMissingSales      = errors.New("sales file not found")
	ErrEmptyFile         = errors.New("file has no data rows")
	ErrBadFileShape      = errors.New("file must have exactly 2 columns")
	ErrUnparsableDate    = errors.New("date column must be parsable")
	ErrNonNumericValue   = errors.New("value column must be numeric")
	ErrDuplicateDate     = errors.New("duplicate date in file")
	ErrNotEnoughRows     = errors.New("not enough rows of data")
	ErrNotEnoughChannels = errors.New("not enough spend channels")
	ErrAllMissing        = errors.New("column has no usable values")
	ErrCleaningFailed    = errors.New("cleaning left invalid values")
)
