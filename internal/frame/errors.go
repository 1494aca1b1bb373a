package frame

import "errors"

// Common errors returned by the frame package.
var (
	// ErrColumnNotFound is returned when a column name is not found.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrLengthMismatch is returned when column lengths disagree.
	ErrLengthMismatch = errors.New("column length mismatch")

	// ErrTypeMismatch is returned when a column has the wrong type for an operation.
	ErrTypeMismatch = errors.New("column type mismatch")
)
