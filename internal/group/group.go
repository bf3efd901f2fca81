// Package group implements the Group (C6) of spec.md §4.6: a named
// collection of tables plus the top-level free-space record that forms
// the unit of commit.
package group

import (
	"encoding/json"
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
	"arkdb/internal/column"
	"arkdb/internal/table"
)

// tableSchema is the on-disk encoding of a table.ColumnSpec list, since
// spec.md's column-spec subtree is represented here as a JSON blob
// rather than a native Array tree (see DESIGN.md's C6 entry for why).
type tableSchema struct {
	Columns []table.ColumnSpec `json:"columns"`
}

// Group is a fixed-layout root holding spec.md §4.6's slots: a
// table-names column, a table-refs column (one ref per table's flattened
// column-ref list), the free-* columns, the current file length, and
// the current version number.
type Group struct {
	ar arena.Arena

	names   *column.StringColumn // long mode, forced, one row per table
	schemas *column.BinaryColumn // JSON tableSchema blob, one row per table
	refs    *column.IntColumn    // ref to each table's flattened ref-list Array

	// refs is written through IntColumn's signed Set and read back through
	// GetRaw. That's safe here only because a Ref is never negative:
	// EncodeSigned(v) for v >= 0 picks the same minimal width Set would
	// have chosen for the raw value and never asserts a sign bit, so it
	// reduces to storing v's own bits untouched.

	freePos *column.IntColumn
	freeLen *column.IntColumn
	freeVer *column.IntColumn

	fileLength uint64
	version    uint64

	tables map[string]*table.Table
	index  map[string]int // table name -> row in names/schemas/refs
}

// New creates an empty group (no tables, version 0).
func New(ar arena.Arena) (*Group, error) {
	names, err := column.NewStringColumn(ar)
	if err != nil {
		return nil, err
	}
	// Forced into long mode up front so the root Array's ref layout is
	// stable (two refs) regardless of how short table names happen to be.
	if err := names.ForceLong(); err != nil {
		return nil, err
	}
	schemas, err := column.NewBinaryColumn(ar)
	if err != nil {
		return nil, err
	}
	refs, err := column.NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	freePos, err := column.NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	freeLen, err := column.NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	freeVer, err := column.NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &Group{
		ar: ar, names: names, schemas: schemas, refs: refs,
		freePos: freePos, freeLen: freeLen, freeVer: freeVer,
		tables: map[string]*table.Table{}, index: map[string]int{},
	}, nil
}

// GetTable returns an already-open table by name, or nil.
func (g *Group) GetTable(name string) *table.Table { return g.tables[name] }

// TableNames returns every table name currently in the group.
func (g *Group) TableNames() []string {
	out := make([]string, g.names.Len())
	for i := range out {
		out[i] = g.names.Get(i)
	}
	return out
}

// AddTable creates a new table with the given column layout, per
// spec.md §4.6's add_table.
func (g *Group) AddTable(name string, specs []table.ColumnSpec) (*table.Table, error) {
	if _, exists := g.index[name]; exists {
		return nil, fmt.Errorf("group: table %q already exists", name)
	}
	t, err := table.New(g.ar, specs)
	if err != nil {
		return nil, fmt.Errorf("group: add table %q: %w", name, err)
	}
	if err := g.names.Add(name); err != nil {
		return nil, err
	}
	blob, err := json.Marshal(tableSchema{Columns: specs})
	if err != nil {
		return nil, fmt.Errorf("group: encode schema for %q: %w", name, err)
	}
	if err := g.schemas.Add(blob); err != nil {
		return nil, err
	}
	if err := g.refs.Add(0); err != nil { // patched in at Commit
		return nil, err
	}
	g.index[name] = g.names.Len() - 1
	g.tables[name] = t
	g.wireLinks(name, t, specs)
	return t, nil
}

// wireLinks registers a TargetNotifier on every Link/LinkList column of t
// that targets an already-open table, and on every already-open table's
// Link/LinkList columns that target t — so row removal in either
// direction keeps the other side's links consistent, per spec.md §9.
func (g *Group) wireLinks(name string, t *table.Table, specs []table.ColumnSpec) {
	for _, spec := range specs {
		if spec.Type != table.Link && spec.Type != table.LinkList {
			continue
		}
		target, ok := g.tables[spec.Target]
		if !ok {
			continue
		}
		target.AddLinkObserver(linkNotifier{owner: t, spec: spec})
	}
	for otherName, other := range g.tables {
		if otherName == name {
			continue
		}
		for _, spec := range other.Specs() {
			if (spec.Type == table.Link || spec.Type == table.LinkList) && spec.Target == name {
				t.AddLinkObserver(linkNotifier{owner: other, spec: spec})
			}
		}
	}
}

// linkNotifier adapts a (table, column) pair into a column.TargetNotifier
// that scans that one column for references to a removed/relocated row.
type linkNotifier struct {
	owner *table.Table
	spec  table.ColumnSpec
}

func (n linkNotifier) RowRemoved(removed, movedFrom int) {
	var err error
	if n.spec.Type == table.Link {
		err = n.owner.LinkColumnByName(n.spec.Name).OnTargetRowRemoved(removed, movedFrom)
	} else {
		err = n.owner.LinkListColumnByName(n.spec.Name).OnTargetRowRemoved(removed, movedFrom)
	}
	if err != nil {
		panic(fmt.Sprintf("group: propagating row removal to column %q: %v", n.spec.Name, err))
	}
}

// RemoveTable drops a table entirely. Any Link/LinkList column elsewhere
// in the group that still targets it is left to fail loudly on next
// access; spec.md's Non-goals exclude cross-table referential-integrity
// enforcement on table drop.
func (g *Group) RemoveTable(name string) error {
	i, ok := g.index[name]
	if !ok {
		return fmt.Errorf("group: no such table %q", name)
	}
	if err := g.names.Remove(i); err != nil {
		return err
	}
	if err := g.schemas.Remove(i); err != nil {
		return err
	}
	if err := g.refs.Remove(i); err != nil {
		return err
	}
	delete(g.tables, name)
	delete(g.index, name)
	for other, idx := range g.index {
		if idx > i {
			g.index[other] = idx - 1
		}
	}
	return nil
}

// FileLength and Version report the group's last-committed file length
// and version number.
func (g *Group) FileLength() uint64 { return g.fileLength }
func (g *Group) Version() uint64    { return g.version }

// flattenRefs serializes a table's per-column ref lists into one
// has_refs Array: [numColumns, (numRefs, ref...)...].
func flattenRefs(ar arena.Arena, refs [][]table.Ref) (bitarray.Ref, error) {
	a, err := bitarray.New(ar, false, true)
	if err != nil {
		return 0, err
	}
	if err := a.Add(uint64(len(refs))); err != nil {
		return 0, err
	}
	for _, colRefs := range refs {
		if err := a.Add(uint64(len(colRefs))); err != nil {
			return 0, err
		}
		for _, r := range colRefs {
			if err := a.Add(uint64(r)); err != nil {
				return 0, err
			}
		}
	}
	return a.Ref(), nil
}

func unflattenRefs(ar arena.Arena, ref bitarray.Ref) ([][]table.Ref, error) {
	a, err := bitarray.Attach(ar, ref)
	if err != nil {
		return nil, err
	}
	pos := 0
	numCols := int(a.Get(pos))
	pos++
	out := make([][]table.Ref, numCols)
	for c := 0; c < numCols; c++ {
		n := int(a.Get(pos))
		pos++
		colRefs := make([]table.Ref, n)
		for k := 0; k < n; k++ {
			colRefs[k] = table.Ref(a.Get(pos))
			pos++
		}
		out[c] = colRefs
	}
	return out, nil
}
