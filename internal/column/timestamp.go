package column

import (
	"fmt"
	"time"

	"arkdb/internal/arena"
)

// TimestampColumn stores Timestamp(seconds, nanos) per spec.md §4.3 as
// two parallel IntColumns: seconds reuses the bit-packed integer column
// directly (the common case, spec.md's "Timestamp-seconds"), nanos is
// kept alongside for sub-second precision.
type TimestampColumn struct {
	seconds *IntColumn
	nanos   *IntColumn
}

// NewTimestampColumn creates an empty timestamp column.
func NewTimestampColumn(ar arena.Arena) (*TimestampColumn, error) {
	sec, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	ns, err := NewIntColumn(ar)
	if err != nil {
		return nil, err
	}
	return &TimestampColumn{seconds: sec, nanos: ns}, nil
}

// AttachTimestampColumn wraps an existing on-disk timestamp column from
// its two component refs.
func AttachTimestampColumn(ar arena.Arena, secondsRef, nanosRef Ref) (*TimestampColumn, error) {
	sec, err := AttachIntColumn(ar, secondsRef)
	if err != nil {
		return nil, fmt.Errorf("column: attach timestamp seconds: %w", err)
	}
	ns, err := AttachIntColumn(ar, nanosRef)
	if err != nil {
		return nil, fmt.Errorf("column: attach timestamp nanos: %w", err)
	}
	return &TimestampColumn{seconds: sec, nanos: ns}, nil
}

// Refs returns the (seconds, nanos) component refs.
func (c *TimestampColumn) Refs() (Ref, Ref) { return c.seconds.Ref(), c.nanos.Ref() }

func (c *TimestampColumn) Len() int { return c.seconds.Len() }

// Get returns row i as a UTC time.Time.
func (c *TimestampColumn) Get(i int) time.Time {
	return time.Unix(c.seconds.Get(i), c.nanos.Get(i)).UTC()
}

func (c *TimestampColumn) Set(i int, t time.Time) error {
	if err := c.seconds.Set(i, t.Unix()); err != nil {
		return err
	}
	return c.nanos.Set(i, int64(t.Nanosecond()))
}

func (c *TimestampColumn) Insert(i int, t time.Time) error {
	if err := c.seconds.Insert(i, t.Unix()); err != nil {
		return err
	}
	return c.nanos.Insert(i, int64(t.Nanosecond()))
}

func (c *TimestampColumn) Add(t time.Time) error { return c.Insert(c.Len(), t) }

func (c *TimestampColumn) Remove(i int) error {
	if err := c.seconds.Remove(i); err != nil {
		return err
	}
	return c.nanos.Remove(i)
}

func (c *TimestampColumn) MoveLastOver(i int) error {
	if err := c.seconds.MoveLastOver(i); err != nil {
		return err
	}
	return c.nanos.MoveLastOver(i)
}

func (c *TimestampColumn) SwapRows(i, j int) error {
	if err := c.seconds.SwapRows(i, j); err != nil {
		return err
	}
	return c.nanos.SwapRows(i, j)
}

func (c *TimestampColumn) Clear() error {
	if err := c.seconds.Clear(); err != nil {
		return err
	}
	return c.nanos.Clear()
}
