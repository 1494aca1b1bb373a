package frame

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FromRecords combines record batches sharing schema into one record. See
// FromTable for the column types produced.
func FromRecords(ctx context.Context, schema *arrow.Schema, recs []arrow.RecordBatch, mem memory.Allocator) (arrow.RecordBatch, error) {
	tbl := array.NewTableFromRecords(schema, recs)
	defer tbl.Release()
	return FromTable(ctx, tbl, mem)
}

// FromTable concatenates the chunks of every column of tbl into a single
// record. Numeric, boolean and string columns keep their type, dictionary
// columns are decoded to their value type, float16 becomes float64, and
// every other type is kept as its text representation.
func FromTable(ctx context.Context, tbl arrow.Table, mem memory.Allocator) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	cols := make([]Column, 0, tbl.NumCols())
	defer func() { Release(cols...) }()

	for i := 0; i < int(tbl.NumCols()); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := tbl.Column(i)
		whole, err := concat(col.Data().Chunks(), col.DataType(), mem)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
		norm, err := normalize(ctx, whole, mem)
		whole.Release()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
		cols = append(cols, Column{Name: col.Name(), Array: norm})
	}

	meta := tbl.Schema().Metadata()
	return newRecord(&meta, cols)
}

func concat(chunks []arrow.Array, dt arrow.DataType, mem memory.Allocator) (arrow.Array, error) {
	switch len(chunks) {
	case 0:
		return array.MakeArrayOfNull(mem, dt, 0), nil
	case 1:
		chunks[0].Retain()
		return chunks[0], nil
	default:
		return array.Concatenate(chunks, mem)
	}
}

func normalize(ctx context.Context, arr arrow.Array, mem memory.Allocator) (arrow.Array, error) {
	dt := arr.DataType()
	switch {
	case IsNumeric(dt), IsText(dt), dt.ID() == arrow.BOOL:
		arr.Retain()
		return arr, nil
	case dt.ID() == arrow.DICTIONARY:
		values, err := compute.CastArray(ctx, arr,
			compute.SafeCastOptions(dt.(*arrow.DictionaryType).ValueType))
		if err != nil {
			return nil, fmt.Errorf("decode dictionary: %w", err)
		}
		defer values.Release()
		return normalize(ctx, values, mem)
	}

	if half, ok := arr.(*array.Float16); ok {
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < half.Len(); i++ {
			if half.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(float64(half.Value(i).Float32()))
			}
		}
		return b.NewArray(), nil
	}

	// string views, dates, timestamps and the rest
	b := array.NewStringBuilder(mem)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
		} else {
			b.Append(arr.ValueStr(i))
		}
	}
	return b.NewArray(), nil
}
