package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrArtifactDecode   = errors.New("artifact decode failed")
	ErrDatasetNotFound  = errors.New("dataset not found")
)
