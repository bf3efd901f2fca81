package column

import (
	"fmt"

	"arkdb/internal/arena"
)

// EnumColumn implements spec.md §4.3's enumerated-string column: a keys
// column (unique strings, insertion-ordered) and a values column (index
// into keys per row). Lookups become one indirection; ordering
// comparisons read the keys column only.
type EnumColumn struct {
	keys   *StringColumn
	values *IntColumn
}

// NewEnumColumn creates an empty enumerated-string column.
func NewEnumColumn(ar arena.Arena) (*EnumColumn, error) {
	keys, err := NewStringColumn(ar)
	if err != nil {
		return nil, err
	}
	values, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &EnumColumn{keys: keys, values: values}, nil
}

// AttachEnumColumn wraps an existing on-disk enum column from its
// component columns.
func AttachEnumColumn(keys *StringColumn, values *IntColumn) *EnumColumn {
	return &EnumColumn{keys: keys, values: values}
}

func (c *EnumColumn) Len() int { return c.values.Len() }

// Get returns the string stored at row i.
func (c *EnumColumn) Get(i int) string {
	idx := int(c.values.Get(i))
	return c.keys.Get(idx)
}

// Set overwrites row i, interning s into the keys column if new.
func (c *EnumColumn) Set(i int, s string) error {
	idx, err := c.keyIndex(s)
	if err != nil {
		return err
	}
	return c.values.Set(i, int64(idx))
}

// Insert inserts s at row i, interning it into the keys column if new.
func (c *EnumColumn) Insert(i int, s string) error {
	idx, err := c.keyIndex(s)
	if err != nil {
		return err
	}
	return c.values.Insert(i, int64(idx))
}

func (c *EnumColumn) Add(s string) error { return c.Insert(c.Len(), s) }

func (c *EnumColumn) keyIndex(s string) (int, error) {
	for i := 0; i < c.keys.Len(); i++ {
		if c.keys.Get(i) == s {
			return i, nil
		}
	}
	if err := c.keys.Add(s); err != nil {
		return 0, fmt.Errorf("column: enum intern %q: %w", s, err)
	}
	return c.keys.Len() - 1, nil
}

func (c *EnumColumn) Remove(i int) error       { return c.values.Remove(i) }
func (c *EnumColumn) MoveLastOver(i int) error { return c.values.MoveLastOver(i) }
func (c *EnumColumn) SwapRows(i, j int) error  { return c.values.SwapRows(i, j) }
func (c *EnumColumn) Clear() error             { return c.values.Clear() }

// FromStringColumn builds an EnumColumn from an existing StringColumn,
// per spec.md §4.3 "optimise() ... converts a short-string column to
// enumerated when duplicates are frequent". The threshold decision
// (len(distinct)*2 < rows) lives in table.Table.Optimize, which owns the
// choice of when to call this.
func FromStringColumn(ar arena.Arena, src *StringColumn) (*EnumColumn, error) {
	enum, err := NewEnumColumn(ar)
	if err != nil {
		return nil, err
	}
	for i := 0; i < src.Len(); i++ {
		if err := enum.Add(src.Get(i)); err != nil {
			return nil, err
		}
	}
	return enum, nil
}

// Distinct reports the number of unique keys currently interned.
func (c *EnumColumn) Distinct() int { return c.keys.Len() }

// RefsForPersist returns [isLongFlag, keysRefA, keysRefB], the keys
// column's own ref encoding; internal/table's persistence layer stores
// these for an enum column followed by ValuesRef.
func (c *EnumColumn) RefsForPersist() [3]Ref {
	isLong := Ref(0)
	if c.keys.IsLong() {
		isLong = 1
	}
	a, b := c.keys.Refs()
	return [3]Ref{isLong, a, b}
}

// ValuesRef returns the values column's ref.
func (c *EnumColumn) ValuesRef() Ref { return c.values.Ref() }
