package core

import "errors"

// Common errors.
var (
	// ErrNotFound signals a missing board record.
	ErrNotFound = errors.New("record not found")

	// ErrClosed signals an operation against a closed store or repository.
	ErrClosed = errors.New("store is closed")

	// ErrInvalidTransition signals an illegal reminder lifecycle step.
	ErrInvalidTransition = errors.New("invalid reminder status transition")
)
