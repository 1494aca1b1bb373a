// Package transform derives the GP practice summary columns.
//
// Each step takes an Arrow record and returns a new record, which the
// caller releases, with columns appended. Existing columns are never
// changed, removed or reordered. Steps() lists them in the order they must
// run:
//
//	scale_rural_urban_classes          ruc
//	sum_staff_totals                   total_staff, total_gps, total_nurses, total_admins
//	calculate_patients_per_staff       pts_per_staff, pts_per_gp, pts_per_nurse, pts_per_admin
//	calculate_patient_proportions      prop_male, prop_female, prop_0to14, prop_15to64, prop_65plus
//	approximate_patient_summary_stats  approx_mean_age
//
// Columns are selected by name pattern, so a group with no matching
// columns sums to zero. Divisions follow IEEE-754: a zero denominator gives
// ±Inf or NaN. The columns of one step are computed concurrently.
package transform
