package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gpsummary/internal/frame"
)

// Practices returns three clean practices: one urban, one rural and one
// with an unrecognised classification. The record is released when the
// test ends.
func Practices(t testing.TB) arrow.RecordBatch {
	t.Helper()

	str := func(name string, v ...string) frame.Column { return frame.Strings(name, v, nil) }
	ints := func(name string, v ...int64) frame.Column { return frame.Int64s(name, v, nil) }
	floats := func(name string, v ...float64) frame.Column { return frame.Float64s(name, v, nil) }

	cols := []frame.Column{
		str("practice_code", "A81001", "A81002", "A81003"),
		str("ruc2", "Urban", "Rural", "Unknown"),
		ints("total_patients", 1000, 600, 200),
		ints("total_male", 480, 300, 90),
		ints("total_female", 520, 300, 110),
		floats("gp_fte", 2.5, 1.5, 0.5),
		ints("nurse_hc", 3, 1, 1),
		floats("admin_fte", 4.5, 2.5, 1.0),
		floats("total_gp_fte", 2.5, 1.5, 0.5),
		ints("total_nurses_hc", 3, 1, 1),
		floats("total_admin_fte", 4.5, 2.5, 1.0),
		ints("total_0to4", 50, 30, 10),
		ints("total_5to14", 100, 60, 20),
		ints("total_15to44", 400, 200, 60),
		ints("total_45to64", 250, 160, 60),
		ints("total_65to74", 100, 80, 30),
		ints("total_75to84", 70, 50, 15),
		ints("total_85plus", 30, 20, 5),
	}
	defer frame.Release(cols...)

	rec, err := frame.New(cols...)
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

// WriteArrowFile writes rec as an Arrow IPC file and returns its path.
func WriteArrowFile(t testing.TB, dir, name string, rec arrow.RecordBatch) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return path
}

// WriteArrowStream writes rec in the Arrow IPC stream format.
func WriteArrowStream(t testing.TB, dir, name string, rec arrow.RecordBatch) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(rec.Schema()))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return path
}

// WriteParquet writes rec as a Parquet file.
func WriteParquet(t testing.TB, dir, name string, rec arrow.RecordBatch) string {
	t.Helper()
	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.RecordBatch{rec})
	defer tbl.Release()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, pqarrow.WriteTable(tbl, f, 1024,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
	return path
}

// WriteCSV writes rec as a headed CSV file. Nulls are written as empty
// cells.
func WriteCSV(t testing.TB, dir, name string, rec arrow.RecordBatch) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Flush())
	return path
}

// WriteXLSX writes rec to the named sheet of a new workbook.
func WriteXLSX(t testing.TB, dir, name, sheet string, rec arrow.RecordBatch) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}

	cols := frame.Columns(rec)
	header := make([]interface{}, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

	for i := 0; i < int(rec.NumRows()); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			if c.IsNull(i) {
				continue
			}
			switch arr := c.Array.(type) {
			case *array.Float64:
				row[j] = arr.Value(i)
			case *array.Int64:
				row[j] = arr.Value(i)
			default:
				row[j] = arr.ValueStr(i)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}
