package audit

import "errors"

var (
	// ErrStorageNotAvailable means the logger was already closed.
	ErrStorageNotAvailable = errors.New("audit: storage not available")
)
