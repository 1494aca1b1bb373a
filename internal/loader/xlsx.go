package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/xuri/excelize/v2"

	"gpsummary/internal/frame"
)

// readXLSX reads a worksheet whose first row holds the column names. An
// empty sheet name selects the first sheet of the workbook.
func readXLSX(ctx context.Context, path, sheet string, mem memory.Allocator) (arrow.RecordBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, ErrEmptySheet)
	}

	header := rows[0]
	body := rows[1:]
	cols := make([]frame.Column, 0, len(header))
	defer func() { frame.Release(cols...) }()
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("sheet %q: column %d has no name", sheet, j+1)
		}
		cells := make([]string, len(body))
		for i, row := range body {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}
		cols = append(cols, frame.Column{Name: name, Array: cellArray(cells, mem)})
	}
	return frame.New(cols...)
}

// cellType picks the narrowest type every non-empty cell parses as.
func cellType(cells []string) arrow.DataType {
	dt := arrow.DataType(arrow.PrimitiveTypes.Int64)
	for _, c := range cells {
		if c == "" {
			continue
		}
		if dt.ID() == arrow.INT64 {
			if _, err := strconv.ParseInt(c, 10, 64); err == nil {
				continue
			}
			dt = arrow.PrimitiveTypes.Float64
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return arrow.BinaryTypes.String
		}
	}
	return dt
}

// cellArray converts worksheet cells into an array of their inferred type.
// Empty cells are null.
func cellArray(cells []string, mem memory.Allocator) arrow.Array {
	b := array.NewBuilder(mem, cellType(cells))
	defer b.Release()
	for _, c := range cells {
		if c == "" {
			b.AppendNull()
			continue
		}
		switch vb := b.(type) {
		case *array.Int64Builder:
			v, _ := strconv.ParseInt(c, 10, 64)
			vb.Append(v)
		case *array.Float64Builder:
			v, _ := strconv.ParseFloat(c, 64)
			vb.Append(v)
		case *array.StringBuilder:
			vb.Append(c)
		}
	}
	return b.NewArray()
}
