package table

import (
	"fmt"
	"time"

	"arkdb/internal/column"
	"arkdb/internal/strix"
)

// column looks up a column by name and checks its declared type,
// mirroring spec.md §7's "out-of-range indexing/precondition violation
// aborts" discipline: a type mismatch or missing column is a
// programming error, not a recoverable runtime condition.
func (t *Table) column(name string, want ColumnType) int {
	i, ok := t.index[name]
	if !ok {
		panic(fmt.Sprintf("table: no such column %q", name))
	}
	if t.specs[i].Type != want {
		panic(fmt.Sprintf("table: column %q is %s, not %s", name, t.specs[i].Type, want))
	}
	return i
}

func (t *Table) GetInt(name string, row int) int64 {
	return t.cols[t.column(name, Int)].(intOps).c.Get(row)
}

func (t *Table) SetInt(name string, row int, v int64) error {
	i := t.column(name, Int)
	c := t.cols[i].(intOps).c
	ix, indexed := t.indexes[name]
	var oldKey []byte
	if indexed {
		oldKey = strix.KeyBytesInt(c.Get(row))
	}
	if err := c.Set(row, v); err != nil {
		return err
	}
	if indexed {
		if err := ix.Remove(oldKey, row); err != nil {
			return err
		}
		if err := ix.Insert(strix.KeyBytesInt(v), row); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) GetBool(name string, row int) bool {
	return t.cols[t.column(name, Bool)].(boolOps).c.Get(row)
}

func (t *Table) SetBool(name string, row int, v bool) error {
	return t.cols[t.column(name, Bool)].(boolOps).c.Set(row, v)
}

func (t *Table) GetFloat(name string, row int) float32 {
	return t.cols[t.column(name, Float)].(floatOps).c.Get(row)
}

func (t *Table) SetFloat(name string, row int, v float32) error {
	return t.cols[t.column(name, Float)].(floatOps).c.Set(row, v)
}

func (t *Table) GetDouble(name string, row int) float64 {
	return t.cols[t.column(name, Double)].(doubleOps).c.Get(row)
}

func (t *Table) SetDouble(name string, row int, v float64) error {
	return t.cols[t.column(name, Double)].(doubleOps).c.Set(row, v)
}

func (t *Table) GetTimestamp(name string, row int) time.Time {
	return t.cols[t.column(name, Timestamp)].(timestampOps).c.Get(row)
}

func (t *Table) SetTimestamp(name string, row int, v time.Time) error {
	return t.cols[t.column(name, Timestamp)].(timestampOps).c.Set(row, v)
}

// GetString reads a String or Enum column; both present the same logical
// type to callers, per spec.md §4.5's optimize being invisible to
// accessors.
func (t *Table) GetString(name string, row int) string {
	i, ok := t.index[name]
	if !ok {
		panic(fmt.Sprintf("table: no such column %q", name))
	}
	switch t.specs[i].Type {
	case String:
		return t.cols[i].(stringOps).c.Get(row)
	case Enum:
		return t.cols[i].(enumOps).c.Get(row)
	default:
		panic(fmt.Sprintf("table: column %q is %s, not string/enum", name, t.specs[i].Type))
	}
}

func (t *Table) SetString(name string, row int, v string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table: no such column %q", name)
	}
	ix, indexed := t.indexes[name]
	var oldKey []byte
	if indexed {
		oldKey = strix.KeyBytesString(t.GetString(name, row))
	}
	switch t.specs[i].Type {
	case String:
		if err := t.cols[i].(stringOps).c.Set(row, v); err != nil {
			return err
		}
	case Enum:
		if err := t.cols[i].(enumOps).c.Set(row, v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("table: column %q is %s, not string/enum", name, t.specs[i].Type)
	}
	if indexed {
		if err := ix.Remove(oldKey, row); err != nil {
			return err
		}
		if err := ix.Insert(strix.KeyBytesString(v), row); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) GetBinary(name string, row int) []byte {
	return t.cols[t.column(name, Binary)].(binaryOps).c.Get(row)
}

func (t *Table) SetBinary(name string, row int, v []byte) error {
	return t.cols[t.column(name, Binary)].(binaryOps).c.Set(row, v)
}

func (t *Table) MixedKind(name string, row int) column.MixedKind {
	return t.cols[t.column(name, Mixed)].(mixedOps).c.Kind(row)
}

func (t *Table) SetMixedInt(name string, row int, v int64) error {
	return t.cols[t.column(name, Mixed)].(mixedOps).c.SetInt(row, v)
}

func (t *Table) SetMixedString(name string, row int, v string) error {
	return t.cols[t.column(name, Mixed)].(mixedOps).c.SetString(row, v)
}

func (t *Table) SetMixedBool(name string, row int, v bool) error {
	return t.cols[t.column(name, Mixed)].(mixedOps).c.SetBool(row, v)
}

func (t *Table) SetMixedNull(name string, row int) error {
	return t.cols[t.column(name, Mixed)].(mixedOps).c.SetNull(row)
}

// GetLink returns the target row index for row, or -1 if null.
func (t *Table) GetLink(name string, row int) int64 {
	return t.cols[t.column(name, Link)].(linkOps).c.Get(row)
}

func (t *Table) SetLink(name string, row int, target int64) error {
	return t.cols[t.column(name, Link)].(linkOps).c.Set(row, target)
}

// linkColumn exposes the concrete *column.LinkColumn for internal/group
// to register a TargetNotifier on, once it knows the destination table.
func (t *Table) linkColumn(name string) *column.LinkColumn {
	return t.cols[t.column(name, Link)].(linkOps).c
}

func (t *Table) GetLinkList(name string, row int) ([]int64, error) {
	return t.cols[t.column(name, LinkList)].(linkListOps).c.Targets(row)
}

func (t *Table) AppendLinkListTarget(name string, row int, target int64) error {
	return t.cols[t.column(name, LinkList)].(linkListOps).c.AppendTarget(row, target)
}

func (t *Table) RemoveLinkListTarget(name string, row, k int) error {
	return t.cols[t.column(name, LinkList)].(linkListOps).c.RemoveTarget(row, k)
}

func (t *Table) linkListColumn(name string) *column.LinkListColumn {
	return t.cols[t.column(name, LinkList)].(linkListOps).c
}

// LinkColumnByName and LinkListColumnByName are the hooks
// internal/group uses to register TargetNotifiers once it has resolved
// a Link/LinkList column's destination table.
func (t *Table) LinkColumnByName(name string) *column.LinkColumn         { return t.linkColumn(name) }
func (t *Table) LinkListColumnByName(name string) *column.LinkListColumn { return t.linkListColumn(name) }

func (t *Table) GetSubtableRef(name string, row int) Ref {
	return t.cols[t.column(name, Subtable)].(subtableOps).c.Get(row)
}

func (t *Table) SetSubtableRef(name string, row int, ref Ref) error {
	return t.cols[t.column(name, Subtable)].(subtableOps).c.Set(row, ref)
}
