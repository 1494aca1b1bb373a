package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	apperrors "gpsummary/internal/errors"
)

// Default dataset location, relative to the working directory.
const (
	DefaultDir  = "data"
	DefaultFile = "practices.arrow"
)

// DefaultLocation returns the location used when none is configured.
func DefaultLocation() Location {
	return Location{Dir: DefaultDir, File: DefaultFile}
}

// Loader reads a GP practice dataset from disk and applies the loading
// rules (see Clean).
type Loader struct {
	logger   *slog.Logger
	mem      memory.Allocator
	format   Format
	sheet    string
	csvChunk int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithAllocator sets the Arrow allocator used while decoding.
func WithAllocator(mem memory.Allocator) Option {
	return func(l *Loader) {
		if mem != nil {
			l.mem = mem
		}
	}
}

// WithFormat forces a file format instead of detecting it from the
// extension. FormatUnknown restores detection.
func WithFormat(f Format) Option {
	return func(l *Loader) { l.format = f }
}

// WithSheet selects the worksheet read from XLSX files.
func WithSheet(name string) Option {
	return func(l *Loader) { l.sheet = name }
}

// WithCSVChunk sets the number of CSV rows decoded per batch. Values <= 0
// read the whole file in one batch.
func WithCSVChunk(rows int) Option {
	return func(l *Loader) { l.csvChunk = rows }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger: slog.Default(),
		mem:    memory.NewGoAllocator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the dataset at loc with a default Loader.
func Load(ctx context.Context, loc Location) (arrow.RecordBatch, error) {
	return New().Load(ctx, loc)
}

// Load validates loc, reads the file it names and returns the cleaned
// record. The caller must Release it.
func (l *Loader) Load(ctx context.Context, loc Location) (arrow.RecordBatch, error) {
	table, _, err := l.LoadWithStats(ctx, loc)
	return table, err
}

// LoadWithStats is Load but also returns the cleaning counts.
func (l *Loader) LoadWithStats(ctx context.Context, loc Location) (arrow.RecordBatch, Stats, error) {
	if err := loc.Validate(); err != nil {
		return nil, Stats{}, err
	}

	path := loc.Path()
	format := l.format
	if format == FormatUnknown {
		format = DetectFormat(path)
	}
	if format == FormatUnknown {
		return nil, Stats{}, apperrors.NewParsingError(
			fmt.Sprintf("cannot determine the format of %s", path), ErrUnsupportedFormat)
	}

	start := time.Now()
	raw, err := l.read(ctx, path, format)
	if err != nil {
		return nil, Stats{}, err
	}

	defer raw.Release()

	table, stats, err := Clean(ctx, raw)
	if err != nil {
		return nil, stats, err
	}

	l.logger.InfoContext(ctx, "Loaded practice data",
		slog.String("path", path),
		slog.String("format", format.String()),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_dropped_null", stats.DroppedNull),
		slog.Int("rows_dropped_zero", stats.DroppedZero),
		slog.Int("rows", stats.RowsKept),
		slog.Int64("columns", table.NumCols()),
		slog.Duration("duration", time.Since(start)),
	)
	return table, stats, nil
}

func (l *Loader) read(ctx context.Context, path string, format Format) (arrow.RecordBatch, error) {
	l.logger.DebugContext(ctx, "Reading data file",
		slog.String("path", path),
		slog.String("format", format.String()))

	if format == FormatXLSX {
		if _, err := os.Stat(path); err != nil {
			return nil, storageError(path, err)
		}
		rec, err := readXLSX(ctx, path, l.sheet, l.mem)
		if err != nil {
			return nil, parsingError(path, err)
		}
		return rec, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, storageError(path, err)
	}
	defer f.Close()

	var rec arrow.RecordBatch
	switch format {
	case FormatArrow:
		rec, err = readIPC(ctx, f, l.mem)
	case FormatParquet:
		rec, err = readParquet(ctx, f, l.mem)
	case FormatCSV:
		rec, err = readCSV(ctx, f, l.mem, l.csvChunk)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, parsingError(path, err)
	}
	return rec, nil
}

func storageError(path string, err error) error {
	msg := fmt.Sprintf("failed to open %s", path)
	if errors.Is(err, fs.ErrNotExist) {
		msg = fmt.Sprintf("data file %s does not exist", path)
	}
	return apperrors.NewStorageError(msg, err).WithContext("path", path)
}

func parsingError(path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewParsingError(fmt.Sprintf("failed to decode %s", path), err).
		WithContext("path", path)
}
