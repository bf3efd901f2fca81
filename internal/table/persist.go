package table

import (
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/column"
)

// ColumnRefs returns, for each column in spec order, the list of arena
// refs that make up its on-disk storage (one for a plain IntColumn, two
// for a Timestamp or Binary column, three for a String column (a
// long-mode flag plus its short- or long-mode refs), four for an Enum or
// Mixed column). internal/group persists these alongside the column's
// ColumnSpec so a table can be reattached across process restarts.
func (t *Table) ColumnRefs() [][]Ref {
	out := make([][]Ref, len(t.cols))
	for i, spec := range t.specs {
		out[i] = refsFor(spec.Type, t.cols[i])
	}
	return out
}

func refsFor(typ ColumnType, ops columnOps) []Ref {
	switch typ {
	case Int:
		return []Ref{ops.(intOps).c.Ref()}
	case Bool:
		return []Ref{ops.(boolOps).c.Ref()}
	case Float:
		return []Ref{ops.(floatOps).c.Ref()}
	case Double:
		return []Ref{ops.(doubleOps).c.Ref()}
	case Timestamp:
		sec, ns := ops.(timestampOps).c.Refs()
		return []Ref{sec, ns}
	case String:
		c := ops.(stringOps).c
		a, b := c.Refs()
		return []Ref{boolToRef(c.IsLong()), a, b}
	case Enum:
		// Enum refs are resolved through the keys StringColumn's own
		// ref encoding, plus the values IntColumn's ref.
		c := ops.(enumOps).c
		keyRefs := c.RefsForPersist()
		return []Ref{keyRefs[0], keyRefs[1], keyRefs[2], c.ValuesRef()}
	case Binary:
		blob, offs := ops.(binaryOps).c.Refs()
		return []Ref{blob, offs}
	case Mixed:
		tags, payload, blob, offs := ops.(mixedOps).c.Refs()
		return []Ref{tags, payload, blob, offs}
	case Subtable:
		return []Ref{ops.(subtableOps).c.Ref()}
	case Link:
		return []Ref{ops.(linkOps).c.Ref()}
	case LinkList:
		return []Ref{ops.(linkListOps).c.Ref()}
	default:
		return nil
	}
}

func boolToRef(b bool) Ref {
	if b {
		return 1
	}
	return 0
}

// Attach reconstructs a table from a persisted column layout: specs
// (names, types, link targets) and the parallel ref lists ColumnRefs
// produced at the last commit.
func Attach(ar arena.Arena, specs []ColumnSpec, refs [][]Ref) (*Table, error) {
	if len(specs) != len(refs) {
		return nil, fmt.Errorf("table: attach: %d specs but %d ref sets", len(specs), len(refs))
	}
	t := &Table{ar: ar, index: map[string]int{}}
	for i, spec := range specs {
		ops, err := attachColumnOps(ar, spec.Type, refs[i])
		if err != nil {
			return nil, fmt.Errorf("table: attach column %q: %w", spec.Name, err)
		}
		t.index[spec.Name] = len(t.cols)
		t.cols = append(t.cols, ops)
		t.specs = append(t.specs, spec)
	}
	return t, nil
}

func attachColumnOps(ar arena.Arena, typ ColumnType, refs []Ref) (columnOps, error) {
	switch typ {
	case Int:
		c, err := column.AttachIntColumn(ar, refs[0])
		return intOps{c}, err
	case Bool:
		c, err := column.AttachBoolColumn(ar, refs[0])
		return boolOps{c}, err
	case Float:
		c, err := column.AttachFloatColumn(ar, refs[0])
		return floatOps{c}, err
	case Double:
		c, err := column.AttachDoubleColumn(ar, refs[0])
		return doubleOps{c}, err
	case Timestamp:
		c, err := column.AttachTimestampColumn(ar, refs[0], refs[1])
		return timestampOps{c}, err
	case String:
		c, err := attachStringColumn(ar, refs)
		return stringOps{c}, err
	case Enum:
		c, err := attachEnumColumn(ar, refs)
		return enumOps{c}, err
	case Binary:
		c, err := column.AttachBinaryColumn(ar, refs[0], refs[1])
		return binaryOps{c}, err
	case Mixed:
		c, err := column.AttachMixedColumn(ar, refs[0], refs[1], refs[2], refs[3])
		return mixedOps{c}, err
	case Subtable:
		c, err := column.AttachSubtableColumn(ar, refs[0])
		return subtableOps{c}, err
	case Link:
		c, err := column.AttachLinkColumn(ar, refs[0])
		return linkOps{c}, err
	case LinkList:
		c, err := column.AttachLinkListColumn(ar, refs[0])
		return linkListOps{c}, err
	default:
		return nil, fmt.Errorf("table: unknown column type %q", typ)
	}
}

// refs[0] is the long-mode flag (0/1) written by refsFor, since
// StringColumn's two persistence shapes (one short-mode ref, or a
// blob+offsets pair) can't be told apart from ref values alone.
func attachStringColumn(ar arena.Arena, refs []Ref) (*column.StringColumn, error) {
	if refs[0] == 1 {
		return column.AttachLongStringColumn(ar, refs[1], refs[2])
	}
	return column.AttachShortStringColumn(ar, refs[1])
}

func attachEnumColumn(ar arena.Arena, refs []Ref) (*column.EnumColumn, error) {
	keys, err := attachStringColumn(ar, refs[:3])
	if err != nil {
		return nil, err
	}
	values, err := column.AttachIntColumn(ar, refs[3])
	if err != nil {
		return nil, err
	}
	return column.AttachEnumColumn(keys, values), nil
}
