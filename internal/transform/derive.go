package transform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	apperrors "gpsummary/internal/errors"
	"gpsummary/internal/frame"
)

// ArgData names the table argument in invalid-argument errors.
const ArgData = "data"

// derivation computes one new column from the input record.
type derivation struct {
	name string
	fn   func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error)
}

// derive computes every derivation concurrently and appends the results in
// declaration order.
func derive(ctx context.Context, rec arrow.RecordBatch, ds ...derivation) (arrow.RecordBatch, error) {
	if rec == nil {
		return nil, apperrors.NewInvalidArgumentError(ArgData, "the 'data' argument is not a table")
	}

	cols := make([]frame.Column, len(ds))
	defer func() {
		for _, c := range cols {
			if c.Array != nil {
				c.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, d := range ds {
		g.Go(func() error {
			col, err := d.fn(gctx, rec)
			if err != nil {
				return fmt.Errorf("derive %s: %w", d.name, err)
			}
			col.Name = d.name
			cols[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, invalidData(err)
	}

	out, err := frame.WithColumns(rec, cols...)
	if err != nil {
		return nil, invalidData(err)
	}
	return out, nil
}

// invalidData reports a record unusable by a step. Errors that are not
// about the record's shape are returned unchanged.
func invalidData(err error) error {
	switch {
	case apperrors.IsInvalidArgument(err):
		return err
	case errors.Is(err, frame.ErrColumnNotFound),
		errors.Is(err, frame.ErrTypeMismatch),
		errors.Is(err, frame.ErrDuplicateColumn),
		errors.Is(err, frame.ErrLengthMismatch):
		return apperrors.WrapInvalidArgument(ArgData, "the 'data' argument cannot be transformed", err)
	default:
		return err
	}
}

// sumOf sums the columns matching pattern.
func sumOf(ctx context.Context, rec arrow.RecordBatch, name string, pattern *regexp.Regexp) (frame.Column, error) {
	return frame.SumHorizontal(ctx, name, int(rec.NumRows()), frame.Matching(rec, pattern))
}

// perPatient divides num by total_patients and releases num.
func perPatient(ctx context.Context, rec arrow.RecordBatch, name string, num frame.Column) (frame.Column, error) {
	defer num.Release()
	patients, err := frame.Numeric(rec, patientsColumn)
	if err != nil {
		return frame.Column{}, err
	}
	return frame.Divide(ctx, name, num, patients)
}

// patientsPer divides total_patients by the sum of the columns matching
// pattern.
func patientsPer(name string, pattern *regexp.Regexp) derivation {
	return derivation{name: name, fn: func(ctx context.Context, rec arrow.RecordBatch) (frame.Column, error) {
		patients, err := frame.Numeric(rec, patientsColumn)
		if err != nil {
			return frame.Column{}, err
		}
		staff, err := sumOf(ctx, rec, name, pattern)
		if err != nil {
			return frame.Column{}, err
		}
		defer staff.Release()
		return frame.Divide(ctx, name, patients, staff)
	}}
}
