// Package strix implements the string interner and search index (C4):
// a component owned by a column that assigns stable integer IDs to
// distinct strings, and a radix structure over those IDs (or over raw
// integer/timestamp keys) that accelerates exact-key equality lookups
// (it has no range or prefix search).
package strix

import (
	"arkdb/internal/arena"
	"arkdb/internal/column"
)

// NullID is the reserved interner ID for the null string (spec.md §4.4:
// "ID 0 is reserved for the null string").
const NullID = 0

// Interner assigns a stable, monotonically increasing integer ID to
// each distinct string. It is backed by a StringColumn (an Array tree)
// so its state participates in commit/rollback and copy-on-write like
// any other column.
type Interner struct {
	strs  *column.StringColumn // index 0 is an unused placeholder for NullID
	index map[string]int
}

// NewInterner creates an empty interner. ID 0 is pre-reserved for null.
func NewInterner(ar arena.Arena) (*Interner, error) {
	strs, err := column.NewStringColumn(ar)
	if err != nil {
		return nil, err
	}
	if err := strs.Add(""); err != nil { // occupies slot 0 == NullID
		return nil, err
	}
	return &Interner{strs: strs, index: map[string]int{}}, nil
}

// AttachInterner rebuilds the in-memory lookup index from an existing
// on-disk StringColumn.
func AttachInterner(strs *column.StringColumn) *Interner {
	idx := make(map[string]int, strs.Len())
	for i := 1; i < strs.Len(); i++ {
		idx[strs.Get(i)] = i
	}
	return &Interner{strs: strs, index: idx}
}

// Ref exposes the underlying StringColumn's storage refs.
func (in *Interner) Ref() (column.Ref, column.Ref) { return in.strs.Refs() }

// Intern returns the stable ID for s, assigning a new one if s hasn't
// been seen before. Intern("") (the null string) always returns NullID
// and is idempotent, per spec.md §4.4.
func (in *Interner) Intern(s string) (int, error) {
	if s == "" {
		return NullID, nil
	}
	if id, ok := in.index[s]; ok {
		return id, nil
	}
	if err := in.strs.Add(s); err != nil {
		return 0, err
	}
	id := in.strs.Len() - 1
	in.index[s] = id
	return id, nil
}

// Lookup returns the ID for s without inserting it.
func (in *Interner) Lookup(s string) (id int, ok bool) {
	if s == "" {
		return NullID, true
	}
	id, ok = in.index[s]
	return id, ok
}

// Get returns the string for id (the empty string for NullID).
func (in *Interner) Get(id int) string {
	if id == NullID {
		return ""
	}
	return in.strs.Get(id)
}

// Compare returns the lexicographic sign of comparing the strings for a
// and b, with null ordered strictly below every non-null string.
func (in *Interner) Compare(a, b int) int {
	if a == b {
		return 0
	}
	if a == NullID {
		return -1
	}
	if b == NullID {
		return 1
	}
	sa, sb := in.Get(a), in.Get(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// CompareString compares the raw string s against the interned value
// for id, with the same null ordering as Compare.
func (in *Interner) CompareString(s string, id int) int {
	if s == "" && id == NullID {
		return 0
	}
	if s == "" {
		return -1
	}
	if id == NullID {
		return 1
	}
	other := in.Get(id)
	switch {
	case s < other:
		return -1
	case s > other:
		return 1
	default:
		return 0
	}
}
