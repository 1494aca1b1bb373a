package domain

import "regexp"

// Input columns of the GP practice dataset.
const (
	ColumnRUC2          = "ruc2"
	ColumnTotalPatients = "total_patients"
	ColumnTotalMale     = "total_male"
	ColumnTotalFemale   = "total_female"
)

// Rural/urban classification values found in ColumnRUC2.
const (
	RUCUrban = "Urban"
	RUCRural = "Rural"
)

// Codes written to ColumnRUC for each classification.
const (
	RUCCodeUrban int64 = 1
	RUCCodeRural int64 = 2
)

// Derived columns, in the order the transformation steps append them.
const (
	ColumnRUC = "ruc"

	ColumnTotalStaff  = "total_staff"
	ColumnTotalGPs    = "total_gps"
	ColumnTotalNurses = "total_nurses"
	ColumnTotalAdmins = "total_admins"

	ColumnPatientsPerStaff = "pts_per_staff"
	ColumnPatientsPerGP    = "pts_per_gp"
	ColumnPatientsPerNurse = "pts_per_nurse"
	ColumnPatientsPerAdmin = "pts_per_admin"

	ColumnPropMale   = "prop_male"
	ColumnPropFemale = "prop_female"
	ColumnProp0to14  = "prop_0to14"
	ColumnProp15to64 = "prop_15to64"
	ColumnProp65Plus = "prop_65plus"

	ColumnApproxMeanAge = "approx_mean_age"
)

// DerivedColumns lists every column the pipeline appends, in order.
var DerivedColumns = []string{
	ColumnRUC,
	ColumnTotalStaff, ColumnTotalGPs, ColumnTotalNurses, ColumnTotalAdmins,
	ColumnPatientsPerStaff, ColumnPatientsPerGP, ColumnPatientsPerNurse, ColumnPatientsPerAdmin,
	ColumnPropMale, ColumnPropFemale, ColumnProp0to14, ColumnProp15to64, ColumnProp65Plus,
	ColumnApproxMeanAge,
}

// Column group patterns. A group may match any number of columns,
// including none.
var (
	// StaffPattern matches full-time-equivalent and headcount staff columns.
	StaffPattern = regexp.MustCompile(`^.*_(fte|hc)$`)

	// GPTotalPattern matches role-aggregated GP totals, e.g. total_gp_fte.
	GPTotalPattern = regexp.MustCompile(`^(total_gp)_.*$`)

	// NursesTotalPattern matches role-aggregated nurse totals.
	NursesTotalPattern = regexp.MustCompile(`^(total_nurses)_.*$`)

	// AdminTotalPattern matches role-aggregated admin totals.
	AdminTotalPattern = regexp.MustCompile(`^(total_admin)_.*$`)
)

// AgeBand is a patient age bucket. Columns ending in "_"+Suffix hold
// patient counts for the band, possibly split by sex.
type AgeBand struct {
	Suffix string
	// Weight is the representative age used for the approximate mean.
	Weight float64
}

// Pattern returns the regular expression selecting the band's columns.
func (b AgeBand) Pattern() *regexp.Regexp {
	return BandPattern(b)
}

// AgeBands lists the bands from youngest to oldest.
var AgeBands = []AgeBand{
	{Suffix: "0to4", Weight: 2},
	{Suffix: "5to14", Weight: 9},
	{Suffix: "15to44", Weight: 30},
	{Suffix: "45to64", Weight: 55},
	{Suffix: "65to74", Weight: 70},
	{Suffix: "75to84", Weight: 80},
	{Suffix: "85plus", Weight: 90},
}

// BandPattern returns a regular expression matching columns of any of the
// given bands.
func BandPattern(bands ...AgeBand) *regexp.Regexp {
	expr := `^.*_(`
	for i, b := range bands {
		if i > 0 {
			expr += "|"
		}
		expr += regexp.QuoteMeta(b.Suffix)
	}
	return regexp.MustCompile(expr + `)$`)
}

// Band looks up an age band by suffix.
func Band(suffix string) (AgeBand, bool) {
	for _, b := range AgeBands {
		if b.Suffix == suffix {
			return b, true
		}
	}
	return AgeBand{}, false
}
