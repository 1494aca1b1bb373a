package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"gpsummary/internal/frame"
)

// ColumnSummary describes the values of one derived column.
type ColumnSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Nulls  int    `json:"nulls"`
	// NonFinite counts ±Inf and NaN values, excluded from the statistics.
	NonFinite int `json:"non_finite"`
	// Mean, Min and Max are nil when the column has no finite value.
	Mean *float64 `json:"mean,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// LogValue implements slog.LogValuer. Absent statistics are left out.
func (s ColumnSummary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("count", s.Count),
		slog.Int("nulls", s.Nulls),
		slog.Int("non_finite", s.NonFinite),
	}
	for _, stat := range []struct {
		key string
		v   *float64
	}{{"mean", s.Mean}, {"min", s.Min}, {"max", s.Max}} {
		if stat.v != nil {
			attrs = append(attrs, slog.Float64(stat.key, *stat.v))
		}
	}
	return slog.GroupValue(attrs...)
}

// Summarize computes a ColumnSummary for each named numeric column present
// in rec. Missing and text columns are skipped.
func Summarize(ctx context.Context, rec arrow.RecordBatch, columns []string) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(columns))
	for _, name := range columns {
		col, err := frame.Numeric(rec, name)
		if err != nil {
			continue
		}
		values, err := frame.Float64(ctx, col)
		if err != nil {
			continue
		}
		out = append(out, summarizeColumn(name, values.(*array.Float64)))
		values.Release()
	}
	return out
}

func summarizeColumn(name string, values *array.Float64) ColumnSummary {
	s := ColumnSummary{Column: name, Count: values.Len()}

	var sum float64
	minV, maxV := math.Inf(1), math.Inf(-1)
	finite := 0
	for i := 0; i < values.Len(); i++ {
		if values.IsNull(i) {
			s.Nulls++
			continue
		}
		v := values.Value(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.NonFinite++
			continue
		}
		finite++
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	if finite > 0 {
		mean := sum / float64(finite)
		s.Mean, s.Min, s.Max = &mean, &minV, &maxV
	}
	return s
}
