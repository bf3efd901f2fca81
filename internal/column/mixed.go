package column

import (
	"fmt"
	"math"

	"arkdb/internal/arena"
)

// MixedKind tags the dynamic type carried by a Mixed cell.
type MixedKind uint8

const (
	MixedNull MixedKind = iota
	MixedBool
	MixedInt
	MixedFloat
	MixedDouble
	MixedString
	MixedBinary
	MixedTimestamp
	MixedSubtable
)

// MixedColumn implements spec.md §4.3's Mixed type: "a pair: a type tag
// Array and a payload Array whose element is interpreted per-row
// according to its tag". The payload here is realized as one IntColumn
// (every kind whose value fits a 64-bit pattern — Bool/Int/Float/
// Double/Timestamp-seconds/Subtable-ref) plus a parallel StringColumn
// used only by String/Binary-tagged rows; every row occupies a slot in
// both, which trades a little storage for keeping row indices aligned
// across the two underlying columns without a third indirection array.
type MixedColumn struct {
	tags    *IntColumn
	payload *IntColumn
	strs    *StringColumn
}

// NewMixedColumn creates an empty Mixed column.
func NewMixedColumn(ar arena.Arena) (*MixedColumn, error) {
	tags, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	payload, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	strs, err := NewStringColumn(ar)
	if err != nil {
		return nil, err
	}
	// Forced into long mode up front (rather than left to upgrade lazily
	// like a plain string column) so Refs always reports a stable
	// two-ref shape for the owning table to persist.
	if err := strs.upgrade(); err != nil {
		return nil, err
	}
	return &MixedColumn{tags: tags, payload: payload, strs: strs}, nil
}

// AttachMixedColumn wraps an existing on-disk Mixed column from its
// component refs.
func AttachMixedColumn(ar arena.Arena, tagsRef, payloadRef, strsBlobRef, strsOffsetsRef Ref) (*MixedColumn, error) {
	tags, err := AttachIntColumn(ar, tagsRef)
	if err != nil {
		return nil, err
	}
	payload, err := AttachIntColumn(ar, payloadRef)
	if err != nil {
		return nil, err
	}
	strs, err := AttachLongStringColumn(ar, strsBlobRef, strsOffsetsRef)
	if err != nil {
		return nil, err
	}
	return &MixedColumn{tags: tags, payload: payload, strs: strs}, nil
}

// Refs returns (tagsRef, payloadRef, stringsBlobRef, stringsOffsetsRef).
func (c *MixedColumn) Refs() (Ref, Ref, Ref, Ref) {
	tagsRef := c.tags.Ref()
	payloadRef := c.payload.Ref()
	blobRef, offsRef := c.strs.Refs()
	return tagsRef, payloadRef, blobRef, offsRef
}

func (c *MixedColumn) Len() int { return c.tags.Len() }

// Kind returns the dynamic type tag of row i.
func (c *MixedColumn) Kind(i int) MixedKind { return MixedKind(c.tags.Get(i)) }

// Bool, Int, Float, Double, String, Subtable read row i assuming the
// caller already checked Kind; they panic otherwise, matching spec.md
// §7's "out-of-range indexing/precondition violation aborts" discipline.
func (c *MixedColumn) Bool(i int) bool        { c.mustKind(i, MixedBool); return c.payload.Get(i) != 0 }
func (c *MixedColumn) Int(i int) int64        { c.mustKind(i, MixedInt); return c.payload.Get(i) }
func (c *MixedColumn) Float(i int) float32 {
	c.mustKind(i, MixedFloat)
	return math.Float32frombits(uint32(c.payload.GetRaw(i)))
}
func (c *MixedColumn) Double(i int) float64 {
	c.mustKind(i, MixedDouble)
	return math.Float64frombits(c.payload.GetRaw(i))
}
func (c *MixedColumn) String(i int) string { c.mustKind(i, MixedString); return c.strs.Get(i) }
func (c *MixedColumn) SubtableRef(i int) Ref {
	c.mustKind(i, MixedSubtable)
	return Ref(c.payload.GetRaw(i))
}

func (c *MixedColumn) mustKind(i int, want MixedKind) {
	if got := c.Kind(i); got != want {
		panic(fmt.Sprintf("column: mixed row %d is kind %d, not %d", i, got, want))
	}
}

// SetNull, SetBool, ... overwrite row i with a concretely-typed value.
func (c *MixedColumn) SetNull(i int) error { return c.setRaw(i, MixedNull, 0, "") }
func (c *MixedColumn) SetBool(i int, v bool) error {
	return c.setRaw(i, MixedBool, boolToInt(v), "")
}
func (c *MixedColumn) SetInt(i int, v int64) error { return c.setRaw(i, MixedInt, v, "") }
func (c *MixedColumn) SetFloat(i int, v float32) error {
	return c.setRaw(i, MixedFloat, int64(math.Float32bits(v)), "")
}
func (c *MixedColumn) SetDouble(i int, v float64) error {
	return c.setRaw(i, MixedDouble, int64(math.Float64bits(v)), "")
}
func (c *MixedColumn) SetString(i int, v string) error { return c.setRaw(i, MixedString, 0, v) }
func (c *MixedColumn) SetSubtableRef(i int, ref Ref) error {
	return c.setRaw(i, MixedSubtable, int64(ref), "")
}

func (c *MixedColumn) setRaw(i int, kind MixedKind, raw int64, s string) error {
	if err := c.tags.Set(i, int64(kind)); err != nil {
		return err
	}
	if err := c.payload.Set(i, raw); err != nil {
		return err
	}
	return c.strs.Set(i, s)
}

// InsertNull inserts a null-tagged row at i; the typed Insert* variants
// follow the same shape as the Set* variants above.
func (c *MixedColumn) InsertNull(i int) error { return c.insertRaw(i, MixedNull, 0, "") }
func (c *MixedColumn) InsertBool(i int, v bool) error {
	return c.insertRaw(i, MixedBool, boolToInt(v), "")
}
func (c *MixedColumn) InsertInt(i int, v int64) error { return c.insertRaw(i, MixedInt, v, "") }
func (c *MixedColumn) InsertString(i int, v string) error {
	return c.insertRaw(i, MixedString, 0, v)
}

func (c *MixedColumn) insertRaw(i int, kind MixedKind, raw int64, s string) error {
	if err := c.tags.Insert(i, int64(kind)); err != nil {
		return err
	}
	if err := c.payload.Insert(i, raw); err != nil {
		return err
	}
	return c.strs.Insert(i, s)
}

func (c *MixedColumn) Remove(i int) error {
	if err := c.tags.Remove(i); err != nil {
		return err
	}
	if err := c.payload.Remove(i); err != nil {
		return err
	}
	return c.strs.Remove(i)
}

func (c *MixedColumn) MoveLastOver(i int) error {
	if err := c.tags.MoveLastOver(i); err != nil {
		return err
	}
	if err := c.payload.MoveLastOver(i); err != nil {
		return err
	}
	return c.strs.MoveLastOver(i)
}

func (c *MixedColumn) SwapRows(i, j int) error {
	if err := c.tags.SwapRows(i, j); err != nil {
		return err
	}
	if err := c.payload.SwapRows(i, j); err != nil {
		return err
	}
	return c.strs.SwapRows(i, j)
}

func (c *MixedColumn) Clear() error {
	if err := c.tags.Clear(); err != nil {
		return err
	}
	if err := c.payload.Clear(); err != nil {
		return err
	}
	return c.strs.Clear()
}
