package api

import "errors"

// Sentinel kinds for upload handling.
var (
	ErrNoFiles     = errors.New("multipart form contains no files")
	ErrBadFileName = errors.New("upload has an unusable file name")
)
