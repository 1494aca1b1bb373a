package loader

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	apperrors "gpsummary/internal/errors"
	"gpsummary/internal/frame"
	"gpsummary/pkg/contracts/domain"
)

// Stats counts the rows seen and removed while cleaning a table.
type Stats struct {
	RowsRead    int
	DroppedNull int
	DroppedZero int
	RowsKept    int
}

// Clean applies the loading rules to a freshly read record:
//
//   - nulls in staff-count columns become zero;
//   - rows with a null in any other column are dropped;
//   - rows where total_patients or any staff-count column is zero are dropped.
//
// The input is not released; the caller owns the returned record.
func Clean(ctx context.Context, rec arrow.RecordBatch) (arrow.RecordBatch, Stats, error) {
	stats := Stats{RowsRead: int(rec.NumRows())}

	if _, err := frame.Numeric(rec, domain.ColumnTotalPatients); err != nil {
		return nil, stats, apperrors.WrapInvalidArgument("data",
			fmt.Sprintf("the data has no numeric %q column", domain.ColumnTotalPatients), err)
	}

	filled, err := frame.Replace(rec, domain.StaffPattern, func(c frame.Column) (arrow.Array, error) {
		return frame.FillNull(ctx, c)
	})
	if err != nil {
		return nil, stats, apperrors.WrapInvalidArgument("data", "staff columns must be numeric", err)
	}
	defer filled.Release()

	complete, err := dropRows(ctx, filled, func(rows int) (*array.Boolean, error) {
		return frame.AnyNull(ctx, rows, frame.Columns(filled))
	})
	if err != nil {
		return nil, stats, err
	}
	defer complete.Release()
	stats.DroppedNull = int(filled.NumRows() - complete.NumRows())

	patients, err := frame.Lookup(complete, domain.ColumnTotalPatients)
	if err != nil {
		return nil, stats, err
	}
	checked := append([]frame.Column{patients}, frame.Matching(complete, domain.StaffPattern)...)
	kept, err := dropRows(ctx, complete, func(rows int) (*array.Boolean, error) {
		return frame.AnyZero(ctx, rows, checked)
	})
	if err != nil {
		return nil, stats, err
	}
	stats.DroppedZero = int(complete.NumRows() - kept.NumRows())
	stats.RowsKept = int(kept.NumRows())

	return kept, stats, nil
}

// dropRows removes the rows flagged by the mask that match returns.
func dropRows(ctx context.Context, rec arrow.RecordBatch, match func(rows int) (*array.Boolean, error)) (arrow.RecordBatch, error) {
	drop, err := match(int(rec.NumRows()))
	if err != nil {
		return nil, apperrors.WrapInvalidArgument("data", "the data cannot be cleaned", err)
	}
	defer drop.Release()

	keep, err := frame.Not(ctx, drop)
	if err != nil {
		return nil, err
	}
	defer keep.Release()

	return frame.Filter(ctx, rec, keep)
}
