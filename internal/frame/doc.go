// Package frame holds the record-batch helpers the pipeline works with.
//
// A dataset is a single arrow.RecordBatch. Records are never modified in
// place: Filter, Replace and WithColumns return new records that share
// every column they did not touch. The arithmetic is done by the
// arrow/compute kernels.
//
// # Ownership
//
// Every function returning an arrow.RecordBatch or arrow.Array returns a
// new reference that the caller must Release. Inputs are retained as
// needed and never released.
//
// # Column selection
//
// Derived metrics are defined over groups of columns picked by name, such
// as every staff-count column ending in "_fte" or "_hc". Matching returns
// those columns in schema order:
//
//	staff := frame.Matching(rec, regexp.MustCompile(`^.*_(fte|hc)$`))
//	total, err := frame.SumHorizontal(ctx, "total_staff", int(rec.NumRows()), staff)
//
// An empty match is not an error; the horizontal reductions treat it as a
// row of zeros.
package frame
