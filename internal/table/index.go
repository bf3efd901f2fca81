package table

import (
	"fmt"

	"arkdb/internal/strix"
)

// AddIndex builds a search index over an existing Int, String or Enum
// column by scanning its current rows, per spec.md §4.4's "accelerating
// equality/prefix queries per column". internal/query's indexed-
// equality strategy consults Index to seed its candidate set instead
// of scanning every row.
func (t *Table) AddIndex(name string) error {
	i := t.ColumnIndex(name)
	if i < 0 {
		return fmt.Errorf("table: add index: no such column %q", name)
	}
	spec := t.specs[i]
	ix, err := strix.NewIndex(t.ar)
	if err != nil {
		return fmt.Errorf("table: add index %q: %w", name, err)
	}
	switch spec.Type {
	case Int:
		c := t.cols[i].(intOps).c
		for r := 0; r < c.Len(); r++ {
			if err := ix.Insert(strix.KeyBytesInt(c.Get(r)), r); err != nil {
				return fmt.Errorf("table: add index %q: %w", name, err)
			}
		}
	case String, Enum:
		for r := 0; r < t.NumRows(); r++ {
			s := t.GetString(name, r)
			if err := ix.Insert(strix.KeyBytesString(s), r); err != nil {
				return fmt.Errorf("table: add index %q: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("table: add index %q: unsupported column type %q", name, spec.Type)
	}
	if t.indexes == nil {
		t.indexes = map[string]*strix.Index{}
	}
	t.indexes[name] = ix
	return nil
}

// Index returns the search index over the named column, if AddIndex
// has been called for it.
func (t *Table) Index(name string) (*strix.Index, bool) {
	ix, ok := t.indexes[name]
	return ix, ok
}
