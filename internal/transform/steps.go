package transform

import (
	"context"
	"regexp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"gpsummary/internal/frame"
	"gpsummary/pkg/contracts/domain"
)

const patientsColumn = domain.ColumnTotalPatients

// Columns appended by each step.
var (
	columnsRUC         = []string{domain.ColumnRUC}
	columnsStaffTotals = []string{domain.ColumnTotalStaff, domain.ColumnTotalGPs, domain.ColumnTotalNurses, domain.ColumnTotalAdmins}
	columnsPatientsPer = []string{domain.ColumnPatientsPerStaff, domain.ColumnPatientsPerGP, domain.ColumnPatientsPerNurse, domain.ColumnPatientsPerAdmin}
	columnsProportions = []string{domain.ColumnPropMale, domain.ColumnPropFemale, domain.ColumnProp0to14, domain.ColumnProp15to64, domain.ColumnProp65Plus}
	columnsSummary     = []string{domain.ColumnApproxMeanAge}
)

// Broad age groups used for the age proportions.
var (
	ages0to14  = bands("0to4", "5to14")
	ages15to64 = bands("15to44", "45to64")
	ages65Plus = bands("65to74", "75to84", "85plus")
)

func bands(suffixes ...string) *regexp.Regexp {
	list := make([]domain.AgeBand, len(suffixes))
	for i, s := range suffixes {
		b, ok := domain.Band(s)
		if !ok {
			panic("transform: unknown age band " + s)
		}
		list[i] = b
	}
	return domain.BandPattern(list...)
}

// ScaleRuralUrbanClasses adds "ruc", the integer code of the "ruc2"
// classification: Urban is 1, Rural is 2 and any other value is null.
func ScaleRuralUrbanClasses(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	return derive(ctx, rec, derivation{name: domain.ColumnRUC, fn: func(_ context.Context, rec arrow.RecordBatch) (frame.Column, error) {
		ruc2, err := frame.Lookup(rec, domain.ColumnRUC2)
		if err != nil {
			return frame.Column{}, err
		}
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		b.Reserve(ruc2.Len())
		for i := 0; i < ruc2.Len(); i++ {
			if ruc2.IsNull(i) {
				b.AppendNull()
				continue
			}
			switch ruc2.ValueStr(i) {
			case domain.RUCUrban:
				b.Append(domain.RUCCodeUrban)
			case domain.RUCRural:
				b.Append(domain.RUCCodeRural)
			default:
				b.AppendNull()
			}
		}
		return frame.Column{Name: domain.ColumnRUC, Array: b.NewArray()}, nil
	}})
}

// SumStaffTotals adds the staff group totals: every staff-count column,
// and the GP, nurse and admin role totals.
func SumStaffTotals(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	sum := func(name string, group *regexp.Regexp) derivation {
		return derivation{name: name, fn: func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error) {
			return sumOf(ctx, rec, name, group)
		}}
	}
	return derive(ctx, rec,
		sum(domain.ColumnTotalStaff, domain.StaffPattern),
		sum(domain.ColumnTotalGPs, domain.GPTotalPattern),
		sum(domain.ColumnTotalNurses, domain.NursesTotalPattern),
		sum(domain.ColumnTotalAdmins, domain.AdminTotalPattern),
	)
}

// CalculatePatientsPerStaff adds total_patients divided by each staff group
// total. The totals are recomputed from the staff columns.
func CalculatePatientsPerStaff(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	return derive(ctx, rec,
		patientsPer(domain.ColumnPatientsPerStaff, domain.StaffPattern),
		patientsPer(domain.ColumnPatientsPerGP, domain.GPTotalPattern),
		patientsPer(domain.ColumnPatientsPerNurse, domain.NursesTotalPattern),
		patientsPer(domain.ColumnPatientsPerAdmin, domain.AdminTotalPattern),
	)
}

// CalculatePatientProportions adds the share of patients by sex and by
// broad age group.
func CalculatePatientProportions(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	column := func(name, source string) derivation {
		return derivation{name: name, fn: func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error) {
			num, err := frame.Numeric(rec, source)
			if err != nil {
				return frame.Column{}, err
			}
			num.Retain()
			return perPatient(ctx, rec, name, num)
		}}
	}
	ageGroup := func(name string, group *regexp.Regexp) derivation {
		return derivation{name: name, fn: func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error) {
			num, err := sumOf(ctx, rec, name, group)
			if err != nil {
				return frame.Column{}, err
			}
			return perPatient(ctx, rec, name, num)
		}}
	}
	return derive(ctx, rec,
		column(domain.ColumnPropMale, domain.ColumnTotalMale),
		column(domain.ColumnPropFemale, domain.ColumnTotalFemale),
		ageGroup(domain.ColumnProp0to14, ages0to14),
		ageGroup(domain.ColumnProp15to64, ages15to64),
		ageGroup(domain.ColumnProp65Plus, ages65Plus),
	)
}

// ApproximatePatientSummaryStats adds approx_mean_age, the mean patient age
// estimated from the age band counts and each band's representative age.
func ApproximatePatientSummaryStats(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	return derive(ctx, rec, derivation{name: domain.ColumnApproxMeanAge, fn: func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error) {
		var (
			cols    []frame.Column
			weights []float64
		)
		for _, band := range domain.AgeBands {
			for _, c := range frame.Matching(rec, band.Pattern()) {
				cols = append(cols, c)
				weights = append(weights, band.Weight)
			}
		}
		total, err := frame.WeightedSum(ctx, domain.ColumnApproxMeanAge, int(rec.NumRows()), cols, weights)
		if err != nil {
			return frame.Column{}, err
		}
		return perPatient(ctx, rec, domain.ColumnApproxMeanAge, total)
	}})
}
