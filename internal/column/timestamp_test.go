package column

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/arena"
)

func TestTimestampColumnAddAndGet(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)

	want := time.Date(2026, 7, 30, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, c.Add(want))
	assert.Equal(t, 1, c.Len())
	assert.True(t, want.Equal(c.Get(0)))
	assert.Equal(t, int64(123456789), int64(c.Get(0).Nanosecond()))
}

func TestTimestampColumnSetOverwrites(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(100, 0).UTC()))
	want := time.Unix(200, 500).UTC()
	require.NoError(t, c.Set(0, want))
	assert.True(t, want.Equal(c.Get(0)))
}

func TestTimestampColumnInsertShifts(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(1, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(3, 0).UTC()))
	require.NoError(t, c.Insert(1, time.Unix(2, 0).UTC()))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(1), c.Get(0).Unix())
	assert.Equal(t, int64(2), c.Get(1).Unix())
	assert.Equal(t, int64(3), c.Get(2).Unix())
}

func TestTimestampColumnRemove(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(1, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(2, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(3, 0).UTC()))
	require.NoError(t, c.Remove(1))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(1), c.Get(0).Unix())
	assert.Equal(t, int64(3), c.Get(1).Unix())
}

func TestTimestampColumnMoveLastOver(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(1, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(2, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(3, 0).UTC()))
	require.NoError(t, c.MoveLastOver(0))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(3), c.Get(0).Unix())
	assert.Equal(t, int64(2), c.Get(1).Unix())
}

func TestTimestampColumnSwapRows(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(1, 0).UTC()))
	require.NoError(t, c.Add(time.Unix(2, 0).UTC()))
	require.NoError(t, c.SwapRows(0, 1))
	assert.Equal(t, int64(2), c.Get(0).Unix())
	assert.Equal(t, int64(1), c.Get(1).Unix())
}

func TestTimestampColumnClear(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add(time.Unix(1, 0).UTC()))
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestTimestampColumnAttachRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewTimestampColumn(ar)
	require.NoError(t, err)
	want := time.Unix(42, 7).UTC()
	require.NoError(t, c.Add(want))
	secRef, nsRef := c.Refs()

	c2, err := AttachTimestampColumn(ar, secRef, nsRef)
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Len())
	assert.True(t, want.Equal(c2.Get(0)))
}
