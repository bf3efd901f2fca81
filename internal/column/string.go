package column

import (
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
)

// shortSlotSize is the fixed per-row byte budget of a short-string leaf:
// shortSlotData data bytes plus one trailing length byte, per spec.md
// §4.3 "length encoded in the low bits of the last byte" (realized here
// as the whole last byte, rather than stealing bits from it, since a
// full spare byte per row is cheap and keeps the packing logic simple).
const shortSlotData = 15
const shortSlotSize = shortSlotData + 1

// StringColumn implements spec.md §4.3's short/long string column: it
// starts in "short" mode (rows packed into a single byte Array with
// fixed-size, length-prefixed slots) and upgrades in place to "long"
// mode (an offsets IntColumn of cumulative byte lengths plus a blob byte
// Array) the first time a write would exceed the short slot size. The
// upgrade is invisible to callers beyond improved length tolerance.
type StringColumn struct {
	ar    arena.Arena
	long  bool
	short *bitarray.Array // width 8, shortSlotSize bytes per row
	rows  int             // valid only while short
	blob  *bitarray.Array // width 8, long mode only
	offs  *IntColumn      // cumulative byte length at end of row i, long mode only
}

// NewStringColumn creates an empty short-mode string column.
func NewStringColumn(ar arena.Arena) (*StringColumn, error) {
	a, err := bitarray.New(ar, false, false)
	if err != nil {
		return nil, fmt.Errorf("column: new string column: %w", err)
	}
	return &StringColumn{ar: ar, short: a}, nil
}

// AttachShortStringColumn wraps an existing short-mode column. The row
// count is derived from the underlying byte array's length, since
// insertShort always appends exactly shortSlotSize bytes per row.
func AttachShortStringColumn(ar arena.Arena, ref Ref) (*StringColumn, error) {
	a, err := bitarray.Attach(ar, ref)
	if err != nil {
		return nil, err
	}
	return &StringColumn{ar: ar, short: a, rows: a.Len() / shortSlotSize}, nil
}

// AttachLongStringColumn wraps an existing long-mode column from its
// component refs.
func AttachLongStringColumn(ar arena.Arena, blobRef, offsetsRef Ref) (*StringColumn, error) {
	blob, err := bitarray.Attach(ar, blobRef)
	if err != nil {
		return nil, err
	}
	offs, err := AttachIntColumn(ar, offsetsRef)
	if err != nil {
		return nil, err
	}
	return &StringColumn{ar: ar, long: true, blob: blob, offs: offs}, nil
}

// IsLong reports whether the column has upgraded to long-string mode.
func (c *StringColumn) IsLong() bool { return c.long }

// Refs returns the column's storage refs: in short mode only the first
// return value is meaningful; in long mode (blobRef, offsetsRef).
func (c *StringColumn) Refs() (Ref, Ref) {
	if c.long {
		return c.blob.Ref(), c.offs.Ref()
	}
	return c.short.Ref(), 0
}

func (c *StringColumn) Len() int {
	if c.long {
		return c.offs.Len()
	}
	return c.rows
}

// Get returns the string at row i.
func (c *StringColumn) Get(i int) string {
	if c.long {
		start := 0
		if i > 0 {
			start = int(c.offs.Get(i - 1))
		}
		end := int(c.offs.Get(i))
		buf := make([]byte, end-start)
		for k := range buf {
			buf[k] = byte(c.blob.Get(start + k))
		}
		return string(buf)
	}
	base := i * shortSlotSize
	n := int(c.short.Get(base + shortSlotData))
	buf := make([]byte, n)
	for k := 0; k < n; k++ {
		buf[k] = byte(c.short.Get(base + k))
	}
	return string(buf)
}

// Set overwrites row i, upgrading to long mode first if needed.
func (c *StringColumn) Set(i int, s string) error {
	if !c.long && len(s) > shortSlotData {
		if err := c.upgrade(); err != nil {
			return err
		}
	}
	if c.long {
		return c.setLong(i, s)
	}
	return c.setShort(i, s)
}

// Insert inserts s at row i, upgrading to long mode first if needed.
func (c *StringColumn) Insert(i int, s string) error {
	if !c.long && len(s) > shortSlotData {
		if err := c.upgrade(); err != nil {
			return err
		}
	}
	if c.long {
		return c.insertLong(i, s)
	}
	return c.insertShort(i, s)
}

func (c *StringColumn) Add(s string) error { return c.Insert(c.Len(), s) }

func (c *StringColumn) setShort(i int, s string) error {
	base := i * shortSlotSize
	for k := 0; k < shortSlotData; k++ {
		var b byte
		if k < len(s) {
			b = s[k]
		}
		if err := c.short.Set(base+k, uint64(b)); err != nil {
			return err
		}
	}
	return c.short.Set(base+shortSlotData, uint64(len(s)))
}

func (c *StringColumn) insertShort(i int, s string) error {
	base := i * shortSlotSize
	for k := 0; k < shortSlotSize; k++ {
		if err := c.short.Insert(base+k, 0); err != nil {
			return err
		}
	}
	c.rows++
	return c.setShort(i, s)
}

func (c *StringColumn) setLong(i int, s string) error {
	if err := c.Remove(i); err != nil {
		return err
	}
	return c.insertLong(i, s)
}

func (c *StringColumn) insertLong(i int, s string) error {
	start := c.blob.Len()
	for k := 0; k < len(s); k++ {
		if err := c.blob.Add(uint64(s[k])); err != nil {
			return err
		}
	}
	end := start + len(s)
	return c.offs.Insert(i, int64(end))
}

// Remove erases row i, preserving order.
func (c *StringColumn) Remove(i int) error {
	if c.long {
		start := 0
		if i > 0 {
			start = int(c.offs.Get(i - 1))
		}
		end := int(c.offs.Get(i))
		n := end - start
		for k := 0; k < n; k++ {
			if err := c.blob.Erase(start); err != nil {
				return err
			}
		}
		if err := c.offs.Remove(i); err != nil {
			return err
		}
		for j := i; j < c.offs.Len(); j++ {
			if err := c.offs.Set(j, c.offs.Get(j)-int64(n)); err != nil {
				return err
			}
		}
		return nil
	}
	base := i * shortSlotSize
	for k := 0; k < shortSlotSize; k++ {
		if err := c.short.Erase(base); err != nil {
			return err
		}
	}
	c.rows--
	return nil
}

// MoveLastOver copies the last row into slot i and truncates by one.
func (c *StringColumn) MoveLastOver(i int) error {
	last := c.Len() - 1
	if last < 0 {
		return fmt.Errorf("column: move_last_over on empty string column")
	}
	if i == last {
		return c.Remove(last)
	}
	v := c.Get(last)
	if err := c.Remove(last); err != nil {
		return err
	}
	return c.Set(i, v)
}

// SwapRows exchanges rows i and j.
func (c *StringColumn) SwapRows(i, j int) error {
	if i == j {
		return nil
	}
	vi, vj := c.Get(i), c.Get(j)
	if err := c.Set(i, vj); err != nil {
		return err
	}
	return c.Set(j, vi)
}

// Clear truncates the column to zero rows, keeping its current mode.
func (c *StringColumn) Clear() error {
	if c.long {
		blob, err := bitarray.New(c.ar, false, false)
		if err != nil {
			return err
		}
		offs, err := NewIntColumn(c.ar)
		if err != nil {
			return err
		}
		c.blob, c.offs = blob, offs
		return nil
	}
	a, err := bitarray.New(c.ar, false, false)
	if err != nil {
		return err
	}
	c.short = a
	c.rows = 0
	return nil
}

// ForceLong upgrades the column to long mode immediately, even if no
// write has yet exceeded a short slot. internal/group's table-names
// column uses this to get a stable two-ref persistence shape up front
// instead of waiting for a long write to trigger it lazily;
// NewMixedColumn gets the same shape by calling upgrade directly.
func (c *StringColumn) ForceLong() error {
	if c.long {
		return nil
	}
	return c.upgrade()
}

// upgrade rewrites a short-mode column as a long-mode column in place,
// per spec.md §4.3 "the upgrade is invisible to callers".
func (c *StringColumn) upgrade() error {
	blob, err := bitarray.New(c.ar, false, false)
	if err != nil {
		return err
	}
	offs, err := NewIntColumn(c.ar)
	if err != nil {
		return err
	}
	for i := 0; i < c.rows; i++ {
		s := c.Get(i)
		start := blob.Len()
		for k := 0; k < len(s); k++ {
			if err := blob.Add(uint64(s[k])); err != nil {
				return err
			}
		}
		if err := offs.Add(int64(start + len(s))); err != nil {
			return err
		}
	}
	c.long = true
	c.blob = blob
	c.offs = offs
	c.short = nil
	return nil
}
