// Package column implements the typed column layer (C3): each column is
// an Array-tree (internal/bitarray) plus a type-specific interpretation
// of its payload. Bool, Timestamp-seconds, enum keys, row-index result
// sets and reference lists are all realized on top of IntColumn, the
// bit-packed integer column.
package column

import (
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
)

// Ref aliases the arena ref type so callers don't need to import
// internal/arena directly for column plumbing.
type Ref = arena.Ref

// IntColumn is the bit-packed integer column described in spec.md §4.3.
// It is also the storage for Bool, Timestamp-seconds, enum keys and
// row-index/reference lists.
type IntColumn struct {
	ar   arena.Arena
	tree *bitarray.BTree
}

// NewIntColumn creates an empty integer column.
func NewIntColumn(ar arena.Arena) (*IntColumn, error) {
	t, err := bitarray.NewBTree(ar, bitarray.DefaultNodeMax)
	if err != nil {
		return nil, fmt.Errorf("column: new int column: %w", err)
	}
	return &IntColumn{ar: ar, tree: t}, nil
}

// AttachIntColumn wraps an existing on-disk integer column.
func AttachIntColumn(ar arena.Arena, ref Ref) (*IntColumn, error) {
	t, err := bitarray.AttachBTree(ar, ref, bitarray.DefaultNodeMax)
	if err != nil {
		return nil, fmt.Errorf("column: attach int column: %w", err)
	}
	return &IntColumn{ar: ar, tree: t}, nil
}

// Ref returns the column's current root ref.
func (c *IntColumn) Ref() Ref { return c.tree.Ref() }

// Len returns the row count.
func (c *IntColumn) Len() int { return c.tree.Len() }

// Get returns the signed value at row i, sign-extended from the stored
// width of the leaf that owns it.
func (c *IntColumn) Get(i int) int64 {
	return c.tree.GetSigned(i)
}

// GetRaw returns the raw unsigned bit pattern at row i, used by callers
// (Bool, enum keys) that don't want sign extension.
func (c *IntColumn) GetRaw(i int) uint64 {
	return c.tree.Get(i)
}

// Set overwrites row i.
func (c *IntColumn) Set(i int, v int64) error {
	return c.tree.Set(i, bitarray.EncodeSigned(v))
}

// Insert inserts v at row i, shifting subsequent rows down.
func (c *IntColumn) Insert(i int, v int64) error {
	return c.tree.Insert(i, bitarray.EncodeSigned(v))
}

// Add appends v as a new last row.
func (c *IntColumn) Add(v int64) error {
	return c.Insert(c.Len(), v)
}

// Remove erases row i, preserving order (O(n)).
func (c *IntColumn) Remove(i int) error {
	_, err := c.tree.Erase(i)
	return err
}

// MoveLastOver copies the last row's value into slot i and truncates by
// one, per spec.md §4.3 "row relocation". It is a no-op (just a
// truncate) when i is already the last row.
func (c *IntColumn) MoveLastOver(i int) error {
	last := c.Len() - 1
	if last < 0 {
		return fmt.Errorf("column: move_last_over on empty column")
	}
	if i != last {
		v := c.tree.Get(last)
		if err := c.tree.Set(i, v); err != nil {
			return err
		}
	}
	_, err := c.tree.Erase(last)
	return err
}

// SwapRows exchanges rows i and j, preserving total size.
func (c *IntColumn) SwapRows(i, j int) error {
	if i == j {
		return nil
	}
	vi, vj := c.tree.Get(i), c.tree.Get(j)
	if err := c.tree.Set(i, vj); err != nil {
		return err
	}
	return c.tree.Set(j, vi)
}

// Clear truncates the column to zero rows.
func (c *IntColumn) Clear() error {
	t, err := bitarray.NewBTree(c.ar, bitarray.DefaultNodeMax)
	if err != nil {
		return err
	}
	c.tree = t
	return nil
}

// Sum, MinMax, Count, FindFirst, FindAll delegate to the root leaf/tree
// only for the common case of a single-leaf column; callers needing the
// full B-tree-aware aggregate walk every leaf via Get, which is correct
// for any tree shape (just not vectorised above the leaf boundary).
func (c *IntColumn) Sum() int64 {
	var total int64
	for i := 0; i < c.Len(); i++ {
		total += c.Get(i)
	}
	return total
}

// MinMax returns the signed min/max over the whole column.
func (c *IntColumn) MinMax() (min, max int64, ok bool) {
	n := c.Len()
	if n == 0 {
		return 0, 0, false
	}
	min, max = c.Get(0), c.Get(0)
	for i := 1; i < n; i++ {
		v := c.Get(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

// Count returns the number of rows equal to v.
func (c *IntColumn) Count(v int64) int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.Get(i) == v {
			n++
		}
	}
	return n
}

// FindFirst returns the first row index equal to v, or -1.
func (c *IntColumn) FindFirst(v int64) int {
	for i := 0; i < c.Len(); i++ {
		if c.Get(i) == v {
			return i
		}
	}
	return -1
}

// FindAll appends every row index equal to v to out, in ascending order.
func (c *IntColumn) FindAll(v int64, out []int) []int {
	for i := 0; i < c.Len(); i++ {
		if c.Get(i) == v {
			out = append(out, i)
		}
	}
	return out
}
