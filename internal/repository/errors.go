package repository

import "errors"

// ErrStaleVersion is returned when a versioned row changed since it was read.
var ErrStaleVersion = errors.New("stale version")
