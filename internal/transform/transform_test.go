package transform

import (
	"context"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "gpsummary/internal/errors"
	"gpsummary/internal/frame"
	"gpsummary/internal/shared/testutil"
	"gpsummary/pkg/contracts/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// col builds a column from a slice of float64, int64 or string values.
func col(t *testing.T, name string, values any) frame.Column {
	t.Helper()
	switch v := values.(type) {
	case []float64:
		return frame.Float64s(name, v, nil)
	case []int64:
		return frame.Int64s(name, v, nil)
	case []string:
		return frame.Strings(name, v, nil)
	default:
		t.Fatalf("unsupported values %T", values)
		return frame.Column{}
	}
}

// record builds a record that is released when the test ends.
func record(t *testing.T, cols ...frame.Column) arrow.RecordBatch {
	t.Helper()
	defer frame.Release(cols...)
	rec, err := frame.New(cols...)
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

// run applies fn and releases its result when the test ends.
func run(t *testing.T, fn Func, in arrow.RecordBatch) (arrow.RecordBatch, error) {
	t.Helper()
	out, err := fn(context.Background(), in)
	if out != nil {
		t.Cleanup(out.Release)
	}
	return out, err
}

func values(t *testing.T, rec arrow.RecordBatch, name string) []float64 {
	t.Helper()
	c, err := frame.Numeric(rec, name)
	require.NoError(t, err)
	arr, err := frame.Float64(context.Background(), c)
	require.NoError(t, err)
	defer arr.Release()
	return append([]float64(nil), arr.(*array.Float64).Float64Values()...)
}

func names(rec arrow.RecordBatch) []string {
	out := make([]string, rec.NumCols())
	for i := range out {
		out[i] = rec.ColumnName(i)
	}
	return out
}

func TestSteps_RejectNilTable(t *testing.T) {
	for _, step := range Steps() {
		t.Run(step.Name, func(t *testing.T) {
			out, err := run(t, step.Fn, nil)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, apperrors.IsInvalidArgument(err))
			assert.Equal(t, ArgData, apperrors.Argument(err))
			assert.Contains(t, err.Error(), "the 'data' argument is not a table")
		})
	}
}

func TestSteps_AppendOnly(t *testing.T) {
	in := testutil.Practices(t)

	for _, step := range Steps() {
		t.Run(step.Name, func(t *testing.T) {
			out, err := run(t, step.Fn, in)
			require.NoError(t, err)

			assert.Equal(t, in.NumRows(), out.NumRows())
			require.Equal(t, in.NumCols()+int64(len(step.Columns)), out.NumCols())
			for i := 0; i < int(in.NumCols()); i++ {
				assert.Same(t, in.Column(i), out.Column(i), "column %s replaced", in.ColumnName(i))
			}
			if diff := cmp.Diff(step.Columns, names(out)[in.NumCols():]); diff != "" {
				t.Errorf("appended columns mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, int64(18), in.NumCols(), "input table changed")
		})
	}
}

func TestScaleRuralUrbanClasses(t *testing.T) {
	ruc2 := frame.Strings("ruc2",
		[]string{"Urban", "Rural", "Suburban", "", "urban"},
		[]bool{true, true, true, false, true})

	out, err := run(t, ScaleRuralUrbanClasses, record(t, ruc2))
	require.NoError(t, err)

	c, err := frame.Lookup(out, domain.ColumnRUC)
	require.NoError(t, err)
	require.Equal(t, arrow.INT64, c.DataType().ID())
	ruc := c.Array.(*array.Int64)

	tests := []struct {
		row  int
		want int64
		null bool
	}{
		{row: 0, want: 1},
		{row: 1, want: 2},
		{row: 2, null: true},
		{row: 3, null: true},
		{row: 4, null: true},
	}
	for _, tt := range tests {
		if tt.null {
			assert.True(t, ruc.IsNull(tt.row), "row %d", tt.row)
			continue
		}
		assert.False(t, ruc.IsNull(tt.row), "row %d", tt.row)
		assert.Equal(t, tt.want, ruc.Value(tt.row), "row %d", tt.row)
	}
}

func TestScaleRuralUrbanClasses_LargeString(t *testing.T) {
	b := array.NewLargeStringBuilder(memory.DefaultAllocator)
	b.AppendValues([]string{"Rural", "Urban"}, nil)
	ruc2 := frame.Column{Name: "ruc2", Array: b.NewArray()}
	b.Release()

	out, err := run(t, ScaleRuralUrbanClasses, record(t, ruc2))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, values(t, out, domain.ColumnRUC))
}

func TestSumStaffTotals(t *testing.T) {
	tests := []struct {
		name string
		in   arrow.RecordBatch
		want map[string][]float64
	}{
		{
			name: "gp fte and nurse headcount",
			in: record(t,
				col(t, "gp_fte", []float64{2.0}),
				col(t, "nurse_hc", []int64{3}),
			),
			want: map[string][]float64{
				domain.ColumnTotalStaff:  {5.0},
				domain.ColumnTotalGPs:    {0},
				domain.ColumnTotalNurses: {0},
				domain.ColumnTotalAdmins: {0},
			},
		},
		{
			name: "role totals",
			in: record(t,
				col(t, "total_gp_fte", []float64{1.5, 2}),
				col(t, "total_gp_extg", []float64{0.5, 1}),
				col(t, "total_nurses_hc", []int64{4, 0}),
				col(t, "total_admin_fte", []float64{3, 3}),
				col(t, "total_admin_hc", []int64{1, 2}),
			),
			want: map[string][]float64{
				domain.ColumnTotalStaff:  {9.5, 7},
				domain.ColumnTotalGPs:    {2, 3},
				domain.ColumnTotalNurses: {4, 0},
				domain.ColumnTotalAdmins: {4, 5},
			},
		},
		{
			name: "no staff columns",
			in:   record(t, col(t, "total_patients", []int64{10})),
			want: map[string][]float64{
				domain.ColumnTotalStaff: {0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, SumStaffTotals, tt.in)
			require.NoError(t, err)
			for name, want := range tt.want {
				assert.Equal(t, want, values(t, out, name), name)
			}
		})
	}
}

func TestCalculatePatientsPerStaff(t *testing.T) {
	in := record(t,
		col(t, "total_patients", []int64{1000, 0}),
		col(t, "gp_fte", []float64{4, 0}),
		col(t, "nurse_hc", []int64{6, 0}),
		col(t, "total_nurses_hc", []int64{0, 0}),
	)

	out, err := run(t, CalculatePatientsPerStaff, in)
	require.NoError(t, err)

	perStaff := values(t, out, domain.ColumnPatientsPerStaff)
	assert.Equal(t, 100.0, perStaff[0])
	assert.True(t, math.IsNaN(perStaff[1]), "0/0 is NaN")

	perGP := values(t, out, domain.ColumnPatientsPerGP)
	assert.True(t, math.IsInf(perGP[0], 1), "no GP columns gives +Inf")

	perNurse := values(t, out, domain.ColumnPatientsPerNurse)
	assert.True(t, math.IsInf(perNurse[0], 1))

	assert.NotContains(t, names(out), domain.ColumnTotalStaff,
		"staff totals are recomputed, not appended")
}

func TestCalculatePatientProportions(t *testing.T) {
	in := record(t,
		col(t, "total_patients", []int64{100}),
		col(t, "total_male", []int64{40}),
		col(t, "total_female", []int64{60}),
		col(t, "male_0to4", []int64{5}),
		col(t, "female_0to4", []int64{5}),
		col(t, "male_5to14", []int64{10}),
		col(t, "male_15to44", []int64{30}),
		col(t, "female_45to64", []int64{25}),
		col(t, "male_65to74", []int64{10}),
		col(t, "female_75to84", []int64{10}),
		col(t, "female_85plus", []int64{5}),
	)

	out, err := run(t, CalculatePatientProportions, in)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.4}, values(t, out, domain.ColumnPropMale))
	assert.Equal(t, []float64{0.6}, values(t, out, domain.ColumnPropFemale))
	assert.InDelta(t, 0.2, values(t, out, domain.ColumnProp0to14)[0], 1e-12)
	assert.InDelta(t, 0.55, values(t, out, domain.ColumnProp15to64)[0], 1e-12)
	assert.InDelta(t, 0.25, values(t, out, domain.ColumnProp65Plus)[0], 1e-12)
}

func TestApproximatePatientSummaryStats(t *testing.T) {
	tests := []struct {
		name string
		in   arrow.RecordBatch
		want float64
	}{
		{
			name: "single band",
			in: record(t,
				col(t, "total_patients", []int64{250}),
				col(t, "x_0to4", []int64{250}),
			),
			want: 2.0,
		},
		{
			name: "bands split by sex",
			in: record(t,
				col(t, "total_patients", []int64{4}),
				col(t, "male_85plus", []int64{1}),
				col(t, "female_85plus", []int64{1}),
				col(t, "male_5to14", []int64{2}),
			),
			want: (90*2 + 9*2) / 4.0,
		},
		{
			name: "no band columns",
			in:   record(t, col(t, "total_patients", []int64{10})),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, ApproximatePatientSummaryStats, tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, values(t, out, domain.ColumnApproxMeanAge)[0], 1e-12)
		})
	}
}

func TestSteps_InvalidData(t *testing.T) {
	tests := []struct {
		name   string
		step   Func
		in     arrow.RecordBatch
		wantIs error
	}{
		{
			name:   "missing ruc2",
			step:   ScaleRuralUrbanClasses,
			in:     record(t, col(t, "total_patients", []int64{1})),
			wantIs: frame.ErrColumnNotFound,
		},
		{
			name:   "text staff column",
			step:   SumStaffTotals,
			in:     record(t, col(t, "gp_fte", []string{"two"})),
			wantIs: frame.ErrTypeMismatch,
		},
		{
			name:   "missing total_patients",
			step:   CalculatePatientsPerStaff,
			in:     record(t, col(t, "gp_fte", []float64{1})),
			wantIs: frame.ErrColumnNotFound,
		},
		{
			name:   "text total_male",
			step:   CalculatePatientProportions,
			in:     record(t, col(t, "total_patients", []int64{1}), col(t, "total_male", []string{"1"}), col(t, "total_female", []int64{1})),
			wantIs: frame.ErrTypeMismatch,
		},
		{
			name:   "step applied twice",
			step:   func(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
				return Apply(ctx, rec, Steps()[1], Steps()[1])
			},
			in:     record(t, col(t, "gp_fte", []float64{1})),
			wantIs: frame.ErrDuplicateColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.step, tt.in)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, apperrors.IsInvalidArgument(err), "got %v", err)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestSteps_Order(t *testing.T) {
	var names, columns []string
	for _, s := range Steps() {
		names = append(names, s.Name)
		columns = append(columns, s.Columns...)
	}
	assert.Equal(t, []string{
		"scale_rural_urban_classes",
		"sum_staff_totals",
		"calculate_patients_per_staff",
		"calculate_patient_proportions",
		"approximate_patient_summary_stats",
	}, names)
	assert.Equal(t, domain.DerivedColumns, columns)
}

func TestApply_SingleRow(t *testing.T) {
	in := record(t,
		col(t, "ruc2", []string{"Urban"}),
		col(t, "total_patients", []int64{100}),
		col(t, "total_male", []int64{45}),
		col(t, "total_female", []int64{55}),
		col(t, "gp_fte", []float64{1.5}),
		col(t, "total_gp_fte", []float64{1.5}),
		col(t, "total_nurses_hc", []int64{2}),
		col(t, "total_admin_hc", []int64{3}),
		col(t, "total_0to4", []int64{10}),
		col(t, "total_15to44", []int64{60}),
		col(t, "total_85plus", []int64{30}),
	)

	out, err := Apply(context.Background(), in, Steps()...)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, int64(1), out.NumRows())

	for _, name := range domain.DerivedColumns {
		c, err := frame.Numeric(out, name)
		require.NoError(t, err, name)
		assert.False(t, c.IsNull(0), "%s is null", name)
		v := values(t, out, name)[0]
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s is not finite", name)
	}

	assert.InDelta(t, (10*2+60*30+30*90)/100.0, values(t, out, domain.ColumnApproxMeanAge)[0], 1e-12)
	assert.Equal(t, []float64{100 / 8.0}, values(t, out, domain.ColumnPatientsPerStaff))
}

func TestApply_Practices(t *testing.T) {
	out, err := Apply(context.Background(), testutil.Practices(t), Steps()...)
	require.NoError(t, err)
	defer out.Release()

	tests := []struct {
		column string
		want   []float64
	}{
		{domain.ColumnTotalStaff, []float64{20, 10, 5}},
		{domain.ColumnTotalGPs, []float64{2.5, 1.5, 0.5}},
		{domain.ColumnPatientsPerStaff, []float64{50, 60, 40}},
		{domain.ColumnPatientsPerGP, []float64{400, 400, 400}},
		{domain.ColumnPatientsPerAdmin, []float64{1000 / 4.5, 240, 200}},
		{domain.ColumnPropMale, []float64{0.48, 0.5, 0.45}},
		{domain.ColumnProp0to14, []float64{0.15, 0.15, 0.15}},
		{domain.ColumnProp65Plus, []float64{0.2, 0.25, 0.25}},
		{domain.ColumnApproxMeanAge, []float64{42.05, 26800 / 600.0, 45.25}},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.want, values(t, out, tt.column), 1e-9)
		})
	}

	c, err := frame.Lookup(out, domain.ColumnRUC)
	require.NoError(t, err)
	ruc := c.Array.(*array.Int64)
	assert.Equal(t, int64(1), ruc.Value(0))
	assert.Equal(t, int64(2), ruc.Value(1))
	assert.True(t, ruc.IsNull(2))
}

func TestApply_StopsAtFirstError(t *testing.T) {
	calls := 0
	count := Step{Name: "count", Fn: func(_ context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
		calls++
		if rec != nil {
			rec.Retain()
		}
		return rec, nil
	}}

	ctx := context.Background()
	_, err := Apply(ctx, nil, count, Steps()[0], count)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step scale_rural_urban_classes")
	assert.Equal(t, 1, calls)

	in := testutil.Practices(t)
	out, err := Apply(ctx, in)
	require.NoError(t, err)
	defer out.Release()
	assert.Same(t, in, out)
}
