package loader

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "gpsummary/internal/errors"
)

// Argument names reported by invalid-argument errors.
const (
	ArgDataDir  = "data_dir"
	ArgDataFile = "data_file"
)

// Location identifies the dataset to load: a directory and a file name
// within it. An empty or blank directory means the working directory.
type Location struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// Path returns the full path of the data file.
func (l Location) Path() string {
	if strings.TrimSpace(l.Dir) == "" {
		return l.File
	}
	return filepath.Join(l.Dir, l.File)
}

// Validate checks that both parts of the location are text and that a
// file is named. The returned error names the argument at fault.
func (l Location) Validate() error {
	dirOK := isText(l.Dir)
	fileOK := isText(l.File) && l.File != ""

	switch {
	case dirOK && fileOK:
		return nil
	case !dirOK && fileOK:
		return apperrors.NewInvalidArgumentError(ArgDataDir,
			"the 'data_dir' argument entered was not a usable string")
	case dirOK && !fileOK:
		return apperrors.NewInvalidArgumentError(ArgDataFile,
			"the 'data_file' argument entered was not a usable string")
	default:
		return apperrors.NewInvalidArgumentError(ArgDataDir+","+ArgDataFile,
			"there was an error with the 'data_dir' and 'data_file' arguments")
	}
}

// isText reports whether s is valid UTF-8 without NUL bytes.
func isText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
