package transform

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Func is a single transformation. It never modifies or releases its input,
// only appends columns, and returns a new record the caller releases.
type Func func(context.Context, arrow.RecordBatch) (arrow.RecordBatch, error)

// Step is a named transformation.
type Step struct {
	Name string
	Fn   Func
	// Columns lists the columns the step appends, in order.
	Columns []string
}

// Steps returns the transformation steps in the order they must run.
func Steps() []Step {
	return []Step{
		{Name: "scale_rural_urban_classes", Fn: ScaleRuralUrbanClasses, Columns: columnsRUC},
		{Name: "sum_staff_totals", Fn: SumStaffTotals, Columns: columnsStaffTotals},
		{Name: "calculate_patients_per_staff", Fn: CalculatePatientsPerStaff, Columns: columnsPatientsPer},
		{Name: "calculate_patient_proportions", Fn: CalculatePatientProportions, Columns: columnsProportions},
		{Name: "approximate_patient_summary_stats", Fn: ApproximatePatientSummaryStats, Columns: columnsSummary},
	}
}

// Apply runs steps in order, stopping at the first failure. With no steps
// the input is returned retained.
func Apply(ctx context.Context, rec arrow.RecordBatch, steps ...Step) (arrow.RecordBatch, error) {
	if rec != nil {
		rec.Retain()
	}
	for _, s := range steps {
		out, err := s.Fn(ctx, rec)
		if rec != nil {
			rec.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		rec = out
	}
	return rec, nil
}
