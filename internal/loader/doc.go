// Package loader reads the GP practice dataset and applies the loading
// rules before any transformation runs.
//
// The dataset location is a directory and a file name. Both must be usable
// text; otherwise Load returns an invalid-argument error naming the faulty
// argument. The file format is chosen from the extension (.arrow, .ipc,
// .feather, .parquet, .csv, .xlsx) unless forced with WithFormat.
//
// After reading, Clean replaces nulls in staff-count columns (names ending
// in _fte or _hc) with zero, drops rows with a null anywhere else, and drops
// rows where total_patients or any staff-count column is zero.
//
//	table, err := loader.New(loader.WithLogger(logger)).Load(ctx, loader.DefaultLocation())
package loader
