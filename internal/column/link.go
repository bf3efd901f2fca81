package column

import (
	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
)

// NullRow is the sentinel stored in a LinkColumn for "no target row",
// per spec.md §4.3 "a row index into a target table (or a sentinel
// null)".
const NullRow int64 = -1

// TargetNotifier is the parent-pointer discipline of spec.md §9
// realized as a callback rather than a direct reference to
// internal/table.Table: internal/column cannot import internal/table
// (table imports column), so table.Table registers one of these on
// every Link/LinkList column it owns, and column calls it back when a
// target row needs to be dropped or renumbered — e.g. after its own
// MoveLastOver. The real bookkeeping (iterating the column to patch
// affected cells) lives in internal/table, which has both the column
// and the knowledge of which table the refs point into.
type TargetNotifier interface {
	// RowRemoved is called after row `removed` in the target table was
	// dropped (via move-last-over or erase); `movedFrom` is the row that
	// now occupies `removed`'s old slot, or -1 if nothing moved there
	// (i.e. `removed` was the last row and simply vanished).
	RowRemoved(removed, movedFrom int)
}

// LinkColumn holds, per row, a row index into a target table or
// NullRow.
type LinkColumn struct {
	ints     *IntColumn
	notifier TargetNotifier
}

// NewLinkColumn creates an empty link column.
func NewLinkColumn(ar arena.Arena) (*LinkColumn, error) {
	ints, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &LinkColumn{ints: ints}, nil
}

// AttachLinkColumn wraps an existing on-disk link column.
func AttachLinkColumn(ar arena.Arena, ref Ref) (*LinkColumn, error) {
	ints, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &LinkColumn{ints: ints}, nil
}

// SetTargetNotifier registers the callback table.Table uses to patch
// this column when the target table's rows move.
func (c *LinkColumn) SetTargetNotifier(n TargetNotifier) { c.notifier = n }

func (c *LinkColumn) Ref() Ref { return c.ints.Ref() }
func (c *LinkColumn) Len() int { return c.ints.Len() }

// Get returns the target row index, or -1 for null.
func (c *LinkColumn) Get(i int) int64 { return c.ints.Get(i) }

func (c *LinkColumn) Set(i int, target int64) error    { return c.ints.Set(i, target) }
func (c *LinkColumn) Insert(i int, target int64) error { return c.ints.Insert(i, target) }
func (c *LinkColumn) Add(target int64) error           { return c.ints.Add(target) }
func (c *LinkColumn) Remove(i int) error                { return c.ints.Remove(i) }
func (c *LinkColumn) MoveLastOver(i int) error          { return c.ints.MoveLastOver(i) }
func (c *LinkColumn) SwapRows(i, j int) error           { return c.ints.SwapRows(i, j) }
func (c *LinkColumn) Clear() error                      { return c.ints.Clear() }

// OnTargetRowRemoved nullifies every incoming link pointing at the
// removed target row, and renumbers links pointing at movedFrom (the row
// the target table's move-last-over relocated into removed's slot).
func (c *LinkColumn) OnTargetRowRemoved(removed, movedFrom int) error {
	for i := 0; i < c.Len(); i++ {
		v := c.Get(i)
		switch {
		case v == int64(removed):
			if err := c.Set(i, NullRow); err != nil {
				return err
			}
		case movedFrom >= 0 && v == int64(movedFrom):
			if err := c.Set(i, int64(removed)); err != nil {
				return err
			}
		}
	}
	return nil
}

// LinkListColumn holds, per row, a ref to an integer Array of target row
// indices (spec.md §4.3).
type LinkListColumn struct {
	ar       arena.Arena
	lists    *IntColumn // per-row ref to a bitarray.Array of target rows, or 0
	notifier TargetNotifier
}

// NewLinkListColumn creates an empty link-list column.
func NewLinkListColumn(ar arena.Arena) (*LinkListColumn, error) {
	lists, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &LinkListColumn{ar: ar, lists: lists}, nil
}

// AttachLinkListColumn wraps an existing on-disk link-list column.
func AttachLinkListColumn(ar arena.Arena, ref Ref) (*LinkListColumn, error) {
	lists, err := AttachIntColumn(ar, ref)
	if err != nil {
		return nil, err
	}
	return &LinkListColumn{ar: ar, lists: lists}, nil
}

func (c *LinkListColumn) SetTargetNotifier(n TargetNotifier) { c.notifier = n }

func (c *LinkListColumn) Ref() Ref { return c.lists.Ref() }
func (c *LinkListColumn) Len() int { return c.lists.Len() }

func (c *LinkListColumn) listAt(i int) (*bitarray.Array, error) {
	ref := Ref(c.lists.GetRaw(i))
	if ref == 0 {
		return bitarray.New(c.ar, false, false)
	}
	return bitarray.Attach(c.ar, ref)
}

// Targets returns the full list of target row indices for row i.
func (c *LinkListColumn) Targets(i int) ([]int64, error) {
	list, err := c.listAt(i)
	if err != nil {
		return nil, err
	}
	out := make([]int64, list.Len())
	for k := range out {
		out[k] = int64(list.Get(k))
	}
	return out, nil
}

// AppendTarget adds target to row i's list.
func (c *LinkListColumn) AppendTarget(i int, target int64) error {
	list, err := c.listAt(i)
	if err != nil {
		return err
	}
	if err := list.Add(uint64(target)); err != nil {
		return err
	}
	return c.lists.Set(i, int64(list.Ref()))
}

// RemoveTarget removes the k-th target from row i's list.
func (c *LinkListColumn) RemoveTarget(i, k int) error {
	list, err := c.listAt(i)
	if err != nil {
		return err
	}
	if err := list.Erase(k); err != nil {
		return err
	}
	return c.lists.Set(i, int64(list.Ref()))
}

func (c *LinkListColumn) Insert(i int) error { return c.lists.Insert(i, 0) }
func (c *LinkListColumn) Add() error         { return c.Insert(c.Len()) }
func (c *LinkListColumn) Remove(i int) error { return c.lists.Remove(i) }

func (c *LinkListColumn) MoveLastOver(i int) error { return c.lists.MoveLastOver(i) }
func (c *LinkListColumn) SwapRows(i, j int) error  { return c.lists.SwapRows(i, j) }
func (c *LinkListColumn) Clear() error             { return c.lists.Clear() }

// OnTargetRowRemoved compacts every incoming link-list entry pointing at
// the removed target row, and renumbers entries pointing at movedFrom.
func (c *LinkListColumn) OnTargetRowRemoved(removed, movedFrom int) error {
	for i := 0; i < c.Len(); i++ {
		list, err := c.listAt(i)
		if err != nil {
			return err
		}
		dirty := false
		for k := 0; k < list.Len(); {
			v := int64(list.Get(k))
			switch {
			case v == int64(removed):
				if err := list.Erase(k); err != nil {
					return err
				}
				dirty = true
				continue
			case movedFrom >= 0 && v == int64(movedFrom):
				if err := list.Set(k, uint64(removed)); err != nil {
					return err
				}
				dirty = true
			}
			k++
		}
		if dirty {
			if err := c.lists.Set(i, int64(list.Ref())); err != nil {
				return err
			}
		}
	}
	return nil
}
