// Package apperr holds error values shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a requested post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotReady is returned while no corpus has been loaded yet.
	ErrNotReady = errors.New("content not loaded")
	// ErrUnavailable is returned when an optional component is not configured.
	ErrUnavailable = errors.New("unavailable")
)
