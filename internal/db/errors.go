package db

import "errors"

// ErrAreaNotFound is returned when no named area matches a lookup.
var ErrAreaNotFound = errors.New("area not found")
