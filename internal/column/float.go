package column

import (
	"math"

	"arkdb/internal/arena"
)

// FloatColumn stores IEEE-754 32-bit floats as the raw bit pattern in an
// IntColumn leaf (width caps at 64 per spec.md §4.2, so a 32-bit pattern
// always fits without widening beyond its natural size).
type FloatColumn struct {
	ints *IntColumn
}

// NewFloatColumn creates an empty float column.
func NewFloatColumn(ar arena.Arena) (*FloatColumn, error) {
	ints, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &FloatColumn{ints: ints}, nil
}

// AttachFloatColumn wraps an existing on-disk float column.
func AttachFloatColumn(ar arena.Arena, ref Ref) (*FloatColumn, error) {
	ints, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &FloatColumn{ints: ints}, nil
}

func (c *FloatColumn) Ref() Ref { return c.ints.Ref() }
func (c *FloatColumn) Len() int { return c.ints.Len() }

func (c *FloatColumn) Get(i int) float32 {
	return math.Float32frombits(uint32(c.ints.GetRaw(i)))
}

func (c *FloatColumn) Set(i int, v float32) error {
	return c.ints.Set(i, int64(math.Float32bits(v)))
}

func (c *FloatColumn) Insert(i int, v float32) error {
	return c.ints.Insert(i, int64(math.Float32bits(v)))
}

func (c *FloatColumn) Add(v float32) error { return c.ints.Add(int64(math.Float32bits(v))) }

func (c *FloatColumn) Remove(i int) error       { return c.ints.Remove(i) }
func (c *FloatColumn) MoveLastOver(i int) error { return c.ints.MoveLastOver(i) }
func (c *FloatColumn) SwapRows(i, j int) error  { return c.ints.SwapRows(i, j) }
func (c *FloatColumn) Clear() error             { return c.ints.Clear() }

// DoubleColumn stores IEEE-754 64-bit floats the same way, at full
// 64-bit width.
type DoubleColumn struct {
	ints *IntColumn
}

// NewDoubleColumn creates an empty double column.
func NewDoubleColumn(ar arena.Arena) (*DoubleColumn, error) {
	ints, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &DoubleColumn{ints: ints}, nil
}

// AttachDoubleColumn wraps an existing on-disk double column.
func AttachDoubleColumn(ar arena.Arena, ref Ref) (*DoubleColumn, error) {
	ints, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &DoubleColumn{ints: ints}, nil
}

func (c *DoubleColumn) Ref() Ref { return c.ints.Ref() }
func (c *DoubleColumn) Len() int { return c.ints.Len() }

func (c *DoubleColumn) Get(i int) float64 {
	return math.Float64frombits(c.ints.GetRaw(i))
}

func (c *DoubleColumn) Set(i int, v float64) error {
	return c.ints.Set(i, int64(math.Float64bits(v)))
}

func (c *DoubleColumn) Insert(i int, v float64) error {
	return c.ints.Insert(i, int64(math.Float64bits(v)))
}

func (c *DoubleColumn) Add(v float64) error { return c.ints.Add(int64(math.Float64bits(v))) }

func (c *DoubleColumn) Remove(i int) error       { return c.ints.Remove(i) }
func (c *DoubleColumn) MoveLastOver(i int) error { return c.ints.MoveLastOver(i) }
func (c *DoubleColumn) SwapRows(i, j int) error  { return c.ints.SwapRows(i, j) }
func (c *DoubleColumn) Clear() error             { return c.ints.Clear() }
