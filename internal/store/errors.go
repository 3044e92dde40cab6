package store

import "errors"

// ErrNotFound is returned when a backend holds no document.
var ErrNotFound = errors.New("not found")
