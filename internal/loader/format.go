package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format represents the on-disk encoding of a dataset.
type Format int

const (
	FormatUnknown Format = iota
	FormatArrow
	FormatParquet
	FormatCSV
	FormatXLSX
)

// String returns the configuration name of the format.
func (f Format) String() string {
	switch f {
	case FormatArrow:
		return "arrow"
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat converts a configuration name into a Format. An empty name
// yields FormatUnknown, meaning "detect from the file extension".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return FormatUnknown, nil
	case "arrow", "ipc", "feather":
		return FormatArrow, nil
	case "parquet":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// DetectFormat determines the format of a file from its extension.
func DetectFormat(filePath string) Format {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".arrow", ".ipc", ".feather":
		return FormatArrow
	case ".parquet", ".pq":
		return FormatParquet
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}
