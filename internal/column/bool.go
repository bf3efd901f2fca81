package column

import "arkdb/internal/arena"

// BoolColumn is a 1-bit-wide IntColumn: spec.md §4.3 lists Bool among
// the types that reuse the bit-packed integer column directly.
type BoolColumn struct {
	ints *IntColumn
}

// NewBoolColumn creates an empty boolean column.
func NewBoolColumn(ar arena.Arena) (*BoolColumn, error) {
	ints, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &BoolColumn{ints: ints}, nil
}

// AttachBoolColumn wraps an existing on-disk boolean column.
func AttachBoolColumn(ar arena.Arena, ref Ref) (*BoolColumn, error) {
	ints, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &BoolColumn{ints: ints}, nil
}

// Ref returns the column's current root ref.
func (c *BoolColumn) Ref() Ref { return c.ints.Ref() }

// Len returns the row count.
func (c *BoolColumn) Len() int { return c.ints.Len() }

// Get returns the boolean at row i.
func (c *BoolColumn) Get(i int) bool { return c.ints.GetRaw(i) != 0 }

// Set overwrites row i.
func (c *BoolColumn) Set(i int, v bool) error { return c.ints.Set(i, boolToInt(v)) }

// Insert inserts v at row i.
func (c *BoolColumn) Insert(i int, v bool) error { return c.ints.Insert(i, boolToInt(v)) }

// Add appends v as a new last row.
func (c *BoolColumn) Add(v bool) error { return c.ints.Add(boolToInt(v)) }

// Remove erases row i, preserving order.
func (c *BoolColumn) Remove(i int) error { return c.ints.Remove(i) }

// MoveLastOver copies the last row into slot i and truncates by one.
func (c *BoolColumn) MoveLastOver(i int) error { return c.ints.MoveLastOver(i) }

// SwapRows exchanges rows i and j.
func (c *BoolColumn) SwapRows(i, j int) error { return c.ints.SwapRows(i, j) }

// Clear truncates the column to zero rows.
func (c *BoolColumn) Clear() error { return c.ints.Clear() }

// Count returns the number of rows equal to v.
func (c *BoolColumn) Count(v bool) int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.Get(i) == v {
			n++
		}
	}
	return n
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
