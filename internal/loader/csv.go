package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"gpsummary/internal/frame"
)

// csvNulls are the cell values read as null.
var csvNulls = []string{"", "NA", "null"}

// readCSV reads a headed CSV file, inferring column types. With chunk <= 0
// the whole file is read as one batch so types are inferred from every row.
func readCSV(ctx context.Context, r io.Reader, mem memory.Allocator, chunk int) (arrow.RecordBatch, error) {
	if chunk <= 0 {
		chunk = -1
	}
	cr := csv.NewInferringReader(r,
		csv.WithHeader(true),
		csv.WithNullReader(true, csvNulls...),
		csv.WithChunk(chunk),
		csv.WithAllocator(mem),
	)
	defer cr.Release()

	var (
		schema *arrow.Schema
		recs   []arrow.RecordBatch
	)
	defer func() { releaseAll(recs) }()
	for cr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := cr.RecordBatch()
		if schema == nil {
			schema = rec.Schema()
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := cr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if schema == nil {
		schema = cr.Schema()
	}
	if schema == nil {
		return frame.New()
	}
	return frame.FromRecords(ctx, schema, recs, mem)
}
