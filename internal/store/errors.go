package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a unique key (id, symbol, portfolio owner) is already taken.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrInvalidInput = errors.New("invalid input")
)
