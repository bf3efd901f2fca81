package column

import "arkdb/internal/arena"

// SubtableColumn holds, per row, either 0 (empty/absent, spec.md §4.5)
// or a ref to an embedded Table's root Array. internal/column cannot
// import internal/table (table imports column for its own columns), so
// this type only manages the refs; internal/table is responsible for
// constructing/attaching the table.Table a given ref points to and for
// writing the ref back here once built.
type SubtableColumn struct {
	refs *IntColumn
}

// NewSubtableColumn creates an empty subtable column.
func NewSubtableColumn(ar arena.Arena) (*SubtableColumn, error) {
	refs, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &SubtableColumn{refs: refs}, nil
}

// AttachSubtableColumn wraps an existing on-disk subtable column.
func AttachSubtableColumn(ar arena.Arena, ref Ref) (*SubtableColumn, error) {
	refs, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &SubtableColumn{refs: refs}, nil
}

func (c *SubtableColumn) Ref() Ref { return c.refs.Ref() }
func (c *SubtableColumn) Len() int { return c.refs.Len() }

// Get returns the subtable ref at row i, or 0 if empty/absent.
func (c *SubtableColumn) Get(i int) Ref { return Ref(c.refs.GetRaw(i)) }

// Set overwrites the subtable ref at row i.
func (c *SubtableColumn) Set(i int, ref Ref) error { return c.refs.Set(i, int64(ref)) }

// Insert inserts an empty (ref 0) row at i.
func (c *SubtableColumn) Insert(i int) error { return c.refs.Insert(i, 0) }
func (c *SubtableColumn) Add() error         { return c.Insert(c.Len()) }

func (c *SubtableColumn) Remove(i int) error       { return c.refs.Remove(i) }
func (c *SubtableColumn) MoveLastOver(i int) error { return c.refs.MoveLastOver(i) }
func (c *SubtableColumn) SwapRows(i, j int) error  { return c.refs.SwapRows(i, j) }
func (c *SubtableColumn) Clear() error             { return c.refs.Clear() }
