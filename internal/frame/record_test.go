package frame

import (
	"context"
	"regexp"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, cols ...Column) arrow.RecordBatch {
	t.Helper()
	rec, err := New(cols...)
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

func names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func mask(values ...bool) *array.Boolean {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewBooleanArray()
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		columns func() []Column
		wantErr error
		rows    int64
	}{
		{
			name:    "empty record",
			columns: func() []Column { return nil },
			rows:    0,
		},
		{
			name: "equal lengths",
			columns: func() []Column {
				return []Column{
					Float64s("gp_fte", []float64{1, 2}, nil),
					Strings("ruc2", []string{"Urban", "Rural"}, nil),
				}
			},
			rows: 2,
		},
		{
			name: "length mismatch",
			columns: func() []Column {
				return []Column{
					Float64s("a", []float64{1, 2}, nil),
					Float64s("b", []float64{1}, nil),
				}
			},
			wantErr: ErrLengthMismatch,
		},
		{
			name: "duplicate names",
			columns: func() []Column {
				return []Column{
					Float64s("a", []float64{1}, nil),
					Int64s("a", []int64{1}, nil),
				}
			},
			wantErr: ErrDuplicateColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tt.columns()
			defer Release(cols...)

			rec, err := New(cols...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer rec.Release()
			assert.Equal(t, tt.rows, rec.NumRows())
			assert.Equal(t, int64(len(cols)), rec.NumCols())
		})
	}
}

func TestLookup(t *testing.T) {
	rec := mustNew(t,
		Int64s("total_patients", []int64{10}, nil),
		Strings("ruc2", []string{"Urban"}, nil),
	)

	col, err := Lookup(rec, "total_patients")
	require.NoError(t, err)
	assert.Equal(t, "total_patients", col.Name)
	assert.Equal(t, arrow.INT64, col.DataType().ID())

	_, err = Lookup(rec, "missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = Numeric(rec, "ruc2")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Numeric(rec, "total_patients")
	assert.NoError(t, err)
}

func TestMatching(t *testing.T) {
	rec := mustNew(t,
		Float64s("gp_fte", []float64{1}, nil),
		Int64s("total_patients", []int64{10}, nil),
		Int64s("nurse_hc", []int64{2}, nil),
		Float64s("total_gp_fte", []float64{1}, nil),
	)

	staff := Matching(rec, regexp.MustCompile(`^.*_(fte|hc)$`))
	if diff := cmp.Diff([]string{"gp_fte", "nurse_hc", "total_gp_fte"}, names(staff)); diff != "" {
		t.Errorf("Matching() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Matching(rec, regexp.MustCompile(`^nothing$`)))
}

func TestWithColumns(t *testing.T) {
	rec := mustNew(t, Int64s("total_patients", []int64{10, 20}, nil))

	extra := Float64s("ratio", []float64{0.5, 0.25}, nil)
	defer extra.Release()

	out, err := WithColumns(rec, extra)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, int64(2), out.NumCols())
	assert.Same(t, rec.Column(0), out.Column(0))
	assert.Equal(t, int64(1), rec.NumCols(), "input record is unchanged")

	_, err = WithColumns(out, extra)
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	short := Float64s("short", []float64{1}, nil)
	defer short.Release()
	_, err = WithColumns(rec, short)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReplace_FillNull(t *testing.T) {
	ctx := context.Background()
	rec := mustNew(t,
		Float64s("gp_fte", []float64{1.5, 0}, []bool{true, false}),
		Int64s("nurse_hc", []int64{0, 3}, []bool{false, true}),
		Int64s("total_patients", []int64{0, 3}, []bool{false, true}),
	)

	out, err := Replace(rec, regexp.MustCompile(`_(fte|hc)$`), func(c Column) (arrow.Array, error) {
		return FillNull(ctx, c)
	})
	require.NoError(t, err)
	defer out.Release()

	gp := out.Column(0).(*array.Float64)
	assert.Zero(t, gp.NullN())
	assert.Equal(t, []float64{1.5, 0}, gp.Float64Values())

	nurse := out.Column(1).(*array.Int64)
	assert.Zero(t, nurse.NullN())
	assert.Equal(t, []int64{0, 3}, nurse.Int64Values())

	assert.Equal(t, 1, out.Column(2).NullN(), "unmatched columns keep their nulls")
	assert.Same(t, rec.Column(2), out.Column(2))
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	rec := mustNew(t,
		Int64s("total_patients", []int64{10, 20, 30}, nil),
		Strings("ruc2", []string{"Urban", "Rural", "Urban"}, []bool{true, true, false}),
	)

	keepAll := mask(true, true, true)
	defer keepAll.Release()
	same, err := Filter(ctx, rec, keepAll)
	require.NoError(t, err)
	defer same.Release()
	assert.Same(t, rec, same)

	some := mask(true, false, true)
	defer some.Release()
	out, err := Filter(ctx, rec, some)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, int64(2), out.NumRows())
	assert.Equal(t, []int64{10, 30}, out.Column(0).(*array.Int64).Int64Values())
	ruc := out.Column(1).(*array.String)
	assert.Equal(t, "Urban", ruc.Value(0))
	assert.True(t, ruc.IsNull(1))

	short := mask(true)
	defer short.Release()
	_, err = Filter(ctx, rec, short)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
