// Package table implements the typed-schema row store (C5) of spec.md
// §4.5: a Table binds a fixed sequence of named, typed columns (built on
// internal/column) and keeps them advancing in lock-step as rows are
// added, removed, or relocated.
package table

import (
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/column"
	"arkdb/internal/strix"
)

// ColumnType names one of the column kinds spec.md §4.3 describes.
type ColumnType string

const (
	Int       ColumnType = "int"
	Bool      ColumnType = "bool"
	Float     ColumnType = "float"
	Double    ColumnType = "double"
	String    ColumnType = "string"
	Enum      ColumnType = "enum"
	Binary    ColumnType = "binary"
	Mixed     ColumnType = "mixed"
	Timestamp ColumnType = "timestamp"
	Subtable  ColumnType = "subtable"
	Link      ColumnType = "link"
	LinkList  ColumnType = "linklist"
)

// ColumnSpec describes one column of a table. Target names the table a
// Link/LinkList column points into; Subspec names the column layout of
// an embedded Subtable column. Both are resolved by internal/group,
// which is the only component with a global view of table names.
type ColumnSpec struct {
	Name    string
	Type    ColumnType
	Target  string
	Subspec []ColumnSpec
}

// Ref is the arena ref type, aliased for callers that only touch table
// plumbing.
type Ref = arena.Ref

// Table is a row store: an ordered set of named, typed columns, all of
// equal length, per spec.md §4.5's invariant "all columns have equal
// length equal to the table's row count".
type Table struct {
	ar    arena.Arena
	specs []ColumnSpec
	cols  []columnOps
	index map[string]int // column name -> position in cols/specs

	// linkObservers are TargetNotifier callbacks registered by other
	// tables' Link/LinkList columns that point at this table; MoveLastOver
	// and Remove fire them so incoming links stay consistent, per
	// spec.md §9's accessor/parent-pointer discipline.
	linkObservers []column.TargetNotifier

	// indexes holds the search index built for a column by AddIndex, if
	// any. internal/query's indexed-equality strategy consults this.
	indexes map[string]*strix.Index
}

// New creates an empty table (zero rows) with the given column layout.
func New(ar arena.Arena, specs []ColumnSpec) (*Table, error) {
	t := &Table{ar: ar, index: map[string]int{}}
	for _, spec := range specs {
		if err := t.AddColumn(spec); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows reports the table's current row count (the common length of
// every column).
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// Specs returns the table's column layout, in column order.
func (t *Table) Specs() []ColumnSpec { return append([]ColumnSpec(nil), t.specs...) }

// ColumnIndex returns the position of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// AddLinkObserver registers a TargetNotifier to be invoked whenever a row
// in this table is removed or relocated by MoveLastOver.
func (t *Table) AddLinkObserver(n column.TargetNotifier) {
	t.linkObservers = append(t.linkObservers, n)
}

func (t *Table) notifyRowRemoved(removed, movedFrom int) {
	for _, obs := range t.linkObservers {
		obs.RowRemoved(removed, movedFrom)
	}
}

// AddColumn appends a new column to the table, backfilled with its
// zero value for every existing row, per spec.md §4.5's add_column.
func (t *Table) AddColumn(spec ColumnSpec) error {
	if _, exists := t.index[spec.Name]; exists {
		return fmt.Errorf("table: column %q already exists", spec.Name)
	}
	ops, err := newColumnOps(t.ar, spec.Type)
	if err != nil {
		return fmt.Errorf("table: add column %q: %w", spec.Name, err)
	}
	rows := t.NumRows()
	for i := 0; i < rows; i++ {
		if err := ops.insertEmpty(i); err != nil {
			return fmt.Errorf("table: backfill column %q: %w", spec.Name, err)
		}
	}
	t.index[spec.Name] = len(t.cols)
	t.cols = append(t.cols, ops)
	t.specs = append(t.specs, spec)
	return nil
}

// RemoveColumn drops the named column entirely.
func (t *Table) RemoveColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table: no such column %q", name)
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	t.specs = append(t.specs[:i], t.specs[i+1:]...)
	delete(t.index, name)
	delete(t.indexes, name)
	for name, idx := range t.index {
		if idx > i {
			t.index[name] = idx - 1
		}
	}
	return nil
}

// AddEmptyRows appends n empty rows to every column, per spec.md §4.5's
// add_empty_row(n).
func (t *Table) AddEmptyRows(n int) error {
	for k := 0; k < n; k++ {
		if err := t.InsertRow(t.NumRows()); err != nil {
			return err
		}
	}
	return nil
}

// InsertRow inserts one empty row at position i across every column.
func (t *Table) InsertRow(i int) error {
	for _, c := range t.cols {
		if err := c.insertEmpty(i); err != nil {
			return err
		}
	}
	return nil
}

// indexKeyAt returns the canonical search-index key for column i's
// current value at row, for the column types AddIndex supports
// (Int/String/Enum). Callers only invoke this for columns known to be
// indexed, which AddIndex restricts to those three types.
func (t *Table) indexKeyAt(i, row int) []byte {
	switch t.specs[i].Type {
	case Int:
		return strix.KeyBytesInt(t.cols[i].(intOps).c.Get(row))
	default: // String, Enum
		return strix.KeyBytesString(t.GetString(t.specs[i].Name, row))
	}
}

// indexedNames lists every column currently carrying a search index.
func (t *Table) indexedNames() []string {
	if len(t.indexes) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.indexes))
	for name := range t.indexes {
		names = append(names, name)
	}
	return names
}

// Remove erases row i from every column, preserving the order of the
// remaining rows (O(n) per spec.md §4.5's remove). Every row after i
// shifts down by one, so any search index is rebuilt by a full rescan
// rather than patched row by row — no worse than the O(n) the column
// shift already costs.
func (t *Table) Remove(i int) error {
	names := t.indexedNames()
	for _, c := range t.cols {
		if err := c.Remove(i); err != nil {
			return err
		}
	}
	for _, name := range names {
		if err := t.AddIndex(name); err != nil {
			return err
		}
	}
	t.notifyRowRemoved(i, -1)
	return nil
}

// MoveLastOver erases row i by copying the last row into its slot and
// truncating by one, per spec.md §4.5's move_last_over (O(1), but
// reorders rows). Any search index is patched in place: row i's old
// entry is dropped, and (when i isn't already the last row) the moved
// row's entry is renumbered from last to i, per spec.md's testable
// index-coherence scenario.
func (t *Table) MoveLastOver(i int) error {
	last := t.NumRows() - 1
	if last < 0 {
		return fmt.Errorf("table: move_last_over on empty table")
	}
	movedFrom := -1
	if i != last {
		movedFrom = last
	}

	type indexPatch struct {
		name         string
		droppedKey   []byte
		relocatedKey []byte
	}
	var patches []indexPatch
	for _, name := range t.indexedNames() {
		ci := t.index[name]
		p := indexPatch{name: name, droppedKey: t.indexKeyAt(ci, i)}
		if i != last {
			p.relocatedKey = t.indexKeyAt(ci, last)
		}
		patches = append(patches, p)
	}

	for _, c := range t.cols {
		if err := c.MoveLastOver(i); err != nil {
			return err
		}
	}

	for _, p := range patches {
		ix := t.indexes[p.name]
		if err := ix.Remove(p.droppedKey, i); err != nil {
			return err
		}
		if i != last {
			if err := ix.Remove(p.relocatedKey, last); err != nil {
				return err
			}
			if err := ix.Insert(p.relocatedKey, i); err != nil {
				return err
			}
		}
	}

	t.notifyRowRemoved(i, movedFrom)
	return nil
}

// SwapRows exchanges the contents of rows i and j across every column,
// patching any search index by swapping which row each value's entry
// points at.
func (t *Table) SwapRows(i, j int) error {
	if i == j {
		return nil
	}

	type indexPatch struct {
		name   string
		keyAtI []byte
		keyAtJ []byte
	}
	var patches []indexPatch
	for _, name := range t.indexedNames() {
		ci := t.index[name]
		patches = append(patches, indexPatch{name: name, keyAtI: t.indexKeyAt(ci, i), keyAtJ: t.indexKeyAt(ci, j)})
	}

	for _, c := range t.cols {
		if err := c.SwapRows(i, j); err != nil {
			return err
		}
	}

	for _, p := range patches {
		ix := t.indexes[p.name]
		if err := ix.Remove(p.keyAtI, i); err != nil {
			return err
		}
		if err := ix.Remove(p.keyAtJ, j); err != nil {
			return err
		}
		if err := ix.Insert(p.keyAtJ, i); err != nil {
			return err
		}
		if err := ix.Insert(p.keyAtI, j); err != nil {
			return err
		}
	}
	return nil
}

// Clear truncates every column to zero rows.
func (t *Table) Clear() error {
	for _, c := range t.cols {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Optimize converts any String column (short or long mode) whose distinct-value count
// is less than half its row count into an enumerated column, per
// spec.md §4.5's optimize and the threshold column.FromStringColumn
// documents but defers to its caller.
func (t *Table) Optimize() error {
	for i, spec := range t.specs {
		if spec.Type != String {
			continue
		}
		sc, ok := t.cols[i].(stringOps)
		if !ok {
			continue
		}
		rows := sc.c.Len()
		if rows == 0 {
			continue
		}
		distinct := map[string]struct{}{}
		for r := 0; r < rows; r++ {
			distinct[sc.c.Get(r)] = struct{}{}
		}
		if len(distinct)*2 >= rows {
			continue
		}
		enum, err := column.FromStringColumn(t.ar, sc.c)
		if err != nil {
			return fmt.Errorf("table: optimize column %q: %w", spec.Name, err)
		}
		t.cols[i] = enumOps{c: enum}
		t.specs[i].Type = Enum
	}
	return nil
}

// newColumnOps builds a fresh, empty column of the requested type. Link,
// LinkList and Subtable columns are left target-less here; internal/group
// wires their TargetNotifier/subtable attachment once it knows the
// destination table.
func newColumnOps(ar arena.Arena, typ ColumnType) (columnOps, error) {
	switch typ {
	case Int:
		c, err := column.NewIntColumn(ar)
		return intOps{c}, err
	case Bool:
		c, err := column.NewBoolColumn(ar)
		return boolOps{c}, err
	case Float:
		c, err := column.NewFloatColumn(ar)
		return floatOps{c}, err
	case Double:
		c, err := column.NewDoubleColumn(ar)
		return doubleOps{c}, err
	case Timestamp:
		c, err := column.NewTimestampColumn(ar)
		return timestampOps{c}, err
	case String:
		c, err := column.NewStringColumn(ar)
		return stringOps{c}, err
	case Enum:
		c, err := column.NewEnumColumn(ar)
		return enumOps{c}, err
	case Binary:
		c, err := column.NewBinaryColumn(ar)
		return binaryOps{c}, err
	case Mixed:
		c, err := column.NewMixedColumn(ar)
		return mixedOps{c}, err
	case Subtable:
		c, err := column.NewSubtableColumn(ar)
		return subtableOps{c}, err
	case Link:
		c, err := column.NewLinkColumn(ar)
		return linkOps{c}, err
	case LinkList:
		c, err := column.NewLinkListColumn(ar)
		return linkListOps{c}, err
	default:
		return nil, fmt.Errorf("table: unknown column type %q", typ)
	}
}
