package loader

import "errors"

var (
	// ErrUnsupportedFormat is returned when a file's format cannot be
	// determined or is not one the loader reads.
	ErrUnsupportedFormat = errors.New("unsupported data format")

	// ErrEmptySheet is returned when a spreadsheet has no header row.
	ErrEmptySheet = errors.New("sheet has no header row")
)
