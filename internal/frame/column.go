package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is an Arrow array together with its name.
type Column struct {
	arrow.Array
	Name string
}

// Field returns the nullable schema field describing the column.
func (c Column) Field() arrow.Field {
	return arrow.Field{Name: c.Name, Type: c.DataType(), Nullable: true}
}

// IsNumeric reports whether dt is an integer or floating point type.
func IsNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

// IsText reports whether dt holds UTF-8 strings.
func IsText(dt arrow.DataType) bool {
	return dt.ID() == arrow.STRING || dt.ID() == arrow.LARGE_STRING
}

// Float64s builds a float64 column. valid may be nil when no value is null.
func Float64s(name string, values []float64, valid []bool) Column {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, valid)
	return Column{Name: name, Array: b.NewArray()}
}

// Int64s builds an int64 column. valid may be nil when no value is null.
func Int64s(name string, values []int64, valid []bool) Column {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, valid)
	return Column{Name: name, Array: b.NewArray()}
}

// Strings builds a string column. valid may be nil when no value is null.
func Strings(name string, values []string, valid []bool) Column {
	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, valid)
	return Column{Name: name, Array: b.NewArray()}
}

// Release releases every column.
func Release(cols ...Column) {
	for _, c := range cols {
		if c.Array != nil {
			c.Release()
		}
	}
}
