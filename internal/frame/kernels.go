package frame

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Float64 returns the values of a numeric column as a float64 array.
func Float64(ctx context.Context, col Column) (arrow.Array, error) {
	if !IsNumeric(col.DataType()) {
		return nil, fmt.Errorf("%w: column %q is %s, expected a numeric column",
			ErrTypeMismatch, col.Name, col.DataType())
	}
	if col.DataType().ID() == arrow.FLOAT64 {
		col.Retain()
		return col.Array, nil
	}
	return compute.CastArray(ctx, col.Array, compute.UnsafeCastOptions(arrow.PrimitiveTypes.Float64))
}

// FillNull returns the values of a numeric column with every null replaced
// by zero. The column type is kept.
func FillNull(ctx context.Context, col Column) (arrow.Array, error) {
	if !IsNumeric(col.DataType()) {
		return nil, fmt.Errorf("%w: cannot fill %s column %q", ErrTypeMismatch, col.DataType(), col.Name)
	}
	if col.NullN() == 0 {
		col.Retain()
		return col.Array, nil
	}
	filled, err := zeroFilled(ctx, col)
	if err != nil {
		return nil, err
	}
	if col.DataType().ID() == arrow.FLOAT64 {
		return filled, nil
	}
	defer filled.Release()
	return compute.CastArray(ctx, filled, compute.UnsafeCastOptions(col.DataType()))
}

// zeroFilled returns the column as float64 with nulls read as zero.
func zeroFilled(ctx context.Context, col Column) (arrow.Array, error) {
	f, err := Float64(ctx, col)
	if err != nil {
		return nil, err
	}
	if f.NullN() == 0 {
		return f, nil
	}
	defer f.Release()

	src := f.(*array.Float64)
	values := make([]float64, src.Len())
	for i := range values {
		if src.IsValid(i) {
			values[i] = src.Value(i)
		}
	}
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray(), nil
}

// SumHorizontal returns the row-wise sum of cols as a float64 column.
// Nulls count as zero, so the result is never null; with no input columns
// every row sums to zero.
func SumHorizontal(ctx context.Context, name string, rows int, cols []Column) (Column, error) {
	return WeightedSum(ctx, name, rows, cols, nil)
}

// WeightedSum returns Σ weights[k]*cols[k] row by row. Nulls contribute
// nothing. A nil weights slice weights every column by one.
func WeightedSum(ctx context.Context, name string, rows int, cols []Column, weights []float64) (Column, error) {
	if weights != nil && len(weights) != len(cols) {
		return Column{}, fmt.Errorf("%w: %d columns and %d weights", ErrLengthMismatch, len(cols), len(weights))
	}

	acc := zeros(rows)
	for k, col := range cols {
		if col.Len() != rows {
			acc.Release()
			return Column{}, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrLengthMismatch, col.Name, col.Len(), rows)
		}
		term, err := zeroFilled(ctx, col)
		if err != nil {
			acc.Release()
			return Column{}, err
		}
		if weights != nil {
			scaled, err := callScalar(ctx, "multiply_unchecked", term, weights[k])
			term.Release()
			if err != nil {
				acc.Release()
				return Column{}, err
			}
			term = scaled
		}
		next, err := call(ctx, "add_unchecked", acc, term)
		acc.Release()
		term.Release()
		if err != nil {
			return Column{}, err
		}
		acc = next
	}
	return Column{Name: name, Array: acc}, nil
}

// Divide returns numerator / denominator row by row as a float64 column.
// A null on either side yields null. Division follows IEEE-754, so a zero
// denominator produces ±Inf or NaN rather than an error.
func Divide(ctx context.Context, name string, numerator, denominator Column) (Column, error) {
	if numerator.Len() != denominator.Len() {
		return Column{}, fmt.Errorf("%w: %q has %d rows, %q has %d", ErrLengthMismatch,
			numerator.Name, numerator.Len(), denominator.Name, denominator.Len())
	}
	num, err := Float64(ctx, numerator)
	if err != nil {
		return Column{}, err
	}
	defer num.Release()
	den, err := Float64(ctx, denominator)
	if err != nil {
		return Column{}, err
	}
	defer den.Release()

	out, err := call(ctx, "divide_unchecked", num, den)
	if err != nil {
		return Column{}, err
	}
	return Column{Name: name, Array: out}, nil
}

// AnyNull returns a mask that is true on rows where any of cols is null.
func AnyNull(ctx context.Context, rows int, cols []Column) (*array.Boolean, error) {
	return anyOf(ctx, rows, cols, func(col Column) (arrow.Array, error) {
		return call(ctx, "is_null", col.Array)
	})
}

// AnyZero returns a mask that is true on rows where any of the numeric cols
// equals zero. A null value gives a null mask entry unless another column
// is zero on that row.
func AnyZero(ctx context.Context, rows int, cols []Column) (*array.Boolean, error) {
	return anyOf(ctx, rows, cols, func(col Column) (arrow.Array, error) {
		f, err := Float64(ctx, col)
		if err != nil {
			return nil, err
		}
		defer f.Release()
		return callScalar(ctx, "equal", f, float64(0))
	})
}

// Not returns the logical negation of mask.
func Not(ctx context.Context, mask *array.Boolean) (*array.Boolean, error) {
	out, err := call(ctx, "not", mask)
	if err != nil {
		return nil, err
	}
	return out.(*array.Boolean), nil
}

func anyOf(ctx context.Context, rows int, cols []Column, test func(Column) (arrow.Array, error)) (*array.Boolean, error) {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	b.AppendValues(make([]bool, rows), nil)
	acc := arrow.Array(b.NewArray())
	b.Release()

	for _, col := range cols {
		if col.Len() != rows {
			acc.Release()
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrLengthMismatch, col.Name, col.Len(), rows)
		}
		hit, err := test(col)
		if err != nil {
			acc.Release()
			return nil, err
		}
		next, err := call(ctx, "or_kleene", acc, hit)
		acc.Release()
		hit.Release()
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc.(*array.Boolean), nil
}

func zeros(rows int) arrow.Array {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(make([]float64, rows), nil)
	return b.NewArray()
}

// call runs a compute function over arrays and returns the array result.
func call(ctx context.Context, fn string, args ...arrow.Array) (arrow.Array, error) {
	datums := make([]compute.Datum, len(args))
	for i, arg := range args {
		datums[i] = compute.NewDatum(arg)
	}
	return exec(ctx, fn, datums)
}

// callScalar runs a binary compute function with a scalar right operand.
func callScalar(ctx context.Context, fn string, arg arrow.Array, value any) (arrow.Array, error) {
	return exec(ctx, fn, []compute.Datum{compute.NewDatum(arg), compute.NewDatum(value)})
}

func exec(ctx context.Context, fn string, datums []compute.Datum) (arrow.Array, error) {
	defer func() {
		for _, d := range datums {
			d.Release()
		}
	}()
	out, err := compute.CallFunction(ctx, fn, nil, datums...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer out.Release()
	arr, ok := out.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected %s result", fn, out.Kind())
	}
	return arr.MakeArray(), nil
}
