package column

import (
	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
)

// BinaryColumn stores arbitrary byte blobs per row, laid out exactly
// like StringColumn's long-mode storage (a blob byte Array plus an
// offsets IntColumn of cumulative lengths) since binary data has no
// short/long distinction to preserve.
type BinaryColumn struct {
	ar   arena.Arena
	blob *bitarray.Array
	offs *IntColumn
}

// NewBinaryColumn creates an empty binary column.
func NewBinaryColumn(ar arena.Arena) (*BinaryColumn, error) {
	blob, err := bitarray.New(ar, false, false)
	if err != nil {
		return nil, err
	}
	offs, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &BinaryColumn{ar: ar, blob: blob, offs: offs}, nil
}

// AttachBinaryColumn wraps an existing on-disk binary column.
func AttachBinaryColumn(ar arena.Arena, blobRef, offsetsRef Ref) (*BinaryColumn, error) {
	blob, err := bitarray.Attach(ar, blobRef)
	if err != nil {
		return nil, err
	}
	offs, err := AttachIntColumn(ar, offsetsRef)
	if err != nil {
		return nil, err
	}
	return &BinaryColumn{ar: ar, blob: blob, offs: offs}, nil
}

// Refs returns (blobRef, offsetsRef).
func (c *BinaryColumn) Refs() (Ref, Ref) { return c.blob.Ref(), c.offs.Ref() }

func (c *BinaryColumn) Len() int { return c.offs.Len() }

// Get returns the bytes stored at row i.
func (c *BinaryColumn) Get(i int) []byte {
	start := 0
	if i > 0 {
		start = int(c.offs.Get(i - 1))
	}
	end := int(c.offs.Get(i))
	buf := make([]byte, end-start)
	for k := range buf {
		buf[k] = byte(c.blob.Get(start + k))
	}
	return buf
}

// Set overwrites row i.
func (c *BinaryColumn) Set(i int, v []byte) error {
	if err := c.Remove(i); err != nil {
		return err
	}
	return c.Insert(i, v)
}

// Insert inserts v at row i.
func (c *BinaryColumn) Insert(i int, v []byte) error {
	start := c.blob.Len()
	for _, b := range v {
		if err := c.blob.Add(uint64(b)); err != nil {
			return err
		}
	}
	return c.offs.Insert(i, int64(start+len(v)))
}

func (c *BinaryColumn) Add(v []byte) error { return c.Insert(c.Len(), v) }

// Remove erases row i, preserving order.
func (c *BinaryColumn) Remove(i int) error {
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

// MoveLastOver copies the last row into slot i and truncates by one.
func (c *BinaryColumn) MoveLastOver(i int) error {
	last := c.Len() - 1
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
func (c *BinaryColumn) SwapRows(i, j int) error {
	if i == j {
		return nil
	}
	vi, vj := c.Get(i), c.Get(j)
	if err := c.Set(i, vj); err != nil {
		return err
	}
	return c.Set(j, vi)
}

// Clear truncates the column to zero rows.
func (c *BinaryColumn) Clear() error {
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
