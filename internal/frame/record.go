package frame

import (
	"context"
	"fmt"
	"regexp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
)

// New builds a record from columns of equal length with distinct names.
// A record with no columns has zero rows.
func New(cols ...Column) (arrow.RecordBatch, error) {
	return newRecord(nil, cols)
}

func newRecord(meta *arrow.Metadata, cols []Column) (arrow.RecordBatch, error) {
	fields := make([]arrow.Field, len(cols))
	arrs := make([]arrow.Array, len(cols))
	seen := make(map[string]struct{}, len(cols))
	rows := 0
	for i, col := range cols {
		if col.Array == nil {
			return nil, fmt.Errorf("column %d (%q) has no values", i, col.Name)
		}
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrLengthMismatch, col.Name, col.Len(), rows)
		}
		if _, dup := seen[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = struct{}{}
		fields[i] = col.Field()
		arrs[i] = col.Array
	}
	return array.NewRecordBatch(arrow.NewSchema(fields, meta), arrs, int64(rows)), nil
}

// Columns returns the columns of rec in schema order. The arrays are
// borrowed from rec.
func Columns(rec arrow.RecordBatch) []Column {
	cols := make([]Column, rec.NumCols())
	for i := range cols {
		cols[i] = Column{Name: rec.ColumnName(i), Array: rec.Column(i)}
	}
	return cols
}

// Lookup returns the named column or ErrColumnNotFound. The array is
// borrowed from rec.
func Lookup(rec arrow.RecordBatch, name string) (Column, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return Column{Name: name, Array: rec.Column(idx[0])}, nil
}

// Numeric returns the named column, failing when it is not numeric.
func Numeric(rec arrow.RecordBatch, name string) (Column, error) {
	col, err := Lookup(rec, name)
	if err != nil {
		return Column{}, err
	}
	if !IsNumeric(col.DataType()) {
		return Column{}, fmt.Errorf("%w: column %q is %s, expected a numeric column",
			ErrTypeMismatch, name, col.DataType())
	}
	return col, nil
}

// Matching returns every column whose name matches pattern, in schema
// order. No match yields an empty slice.
func Matching(rec arrow.RecordBatch, pattern *regexp.Regexp) []Column {
	var out []Column
	for i, field := range rec.Schema().Fields() {
		if pattern.MatchString(field.Name) {
			out = append(out, Column{Name: field.Name, Array: rec.Column(i)})
		}
	}
	return out
}

// WithColumns returns a new record with cols appended after the existing
// columns. Existing columns are never replaced: a name clash is an error.
func WithColumns(rec arrow.RecordBatch, cols ...Column) (arrow.RecordBatch, error) {
	all := append(Columns(rec), cols...)
	meta := rec.Schema().Metadata()
	return newRecord(&meta, all)
}

// Replace returns a new record where every column whose name matches
// pattern holds the array returned by fn. Names and order are preserved.
// fn returns a new reference; Replace releases it.
func Replace(rec arrow.RecordBatch, pattern *regexp.Regexp, fn func(Column) (arrow.Array, error)) (arrow.RecordBatch, error) {
	cols := Columns(rec)
	var owned []arrow.Array
	defer func() {
		for _, arr := range owned {
			arr.Release()
		}
	}()
	for i, col := range cols {
		if !pattern.MatchString(col.Name) {
			continue
		}
		arr, err := fn(col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		owned = append(owned, arr)
		cols[i].Array = arr
	}
	meta := rec.Schema().Metadata()
	return newRecord(&meta, cols)
}

// Filter returns a new record holding the rows where keep is true. Rows
// where keep is null are dropped.
func Filter(ctx context.Context, rec arrow.RecordBatch, keep *array.Boolean) (arrow.RecordBatch, error) {
	if keep.Len() != int(rec.NumRows()) {
		return nil, fmt.Errorf("%w: filter mask has %d entries, record has %d rows",
			ErrLengthMismatch, keep.Len(), rec.NumRows())
	}
	if CountTrue(keep) == keep.Len() {
		rec.Retain()
		return rec, nil
	}
	return compute.FilterRecordBatch(ctx, rec, keep, compute.DefaultFilterOptions())
}

// CountTrue returns the number of non-null true values in mask.
func CountTrue(mask *array.Boolean) int {
	n := 0
	for i := 0; i < mask.Len(); i++ {
		if mask.IsValid(i) && mask.Value(i) {
			n++
		}
	}
	return n
}
