package column

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/arena"
)

func TestStringColumnShortModeRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)

	require.NoError(t, c.Add("hi"))
	require.NoError(t, c.Add(""))
	require.NoError(t, c.Add("fifteen_chars!!"))
	assert.False(t, c.IsLong())
	assert.Equal(t, "hi", c.Get(0))
	assert.Equal(t, "", c.Get(1))
	assert.Equal(t, "fifteen_chars!!", c.Get(2))
}

func TestStringColumnUpgradesToLongOnOverflow(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("short"))

	long := strings.Repeat("x", 100)
	require.NoError(t, c.Add(long))

	assert.True(t, c.IsLong())
	assert.Equal(t, "short", c.Get(0))
	assert.Equal(t, long, c.Get(1))
}

func TestStringColumnForceLong(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("a"))
	require.NoError(t, c.Add("b"))
	require.NoError(t, c.ForceLong())
	assert.True(t, c.IsLong())
	assert.Equal(t, "a", c.Get(0))
	assert.Equal(t, "b", c.Get(1))
}

func TestStringColumnSetOverwritesAndMayUpgrade(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("short"))
	require.NoError(t, c.Set(0, strings.Repeat("y", 50)))
	assert.True(t, c.IsLong())
	assert.Equal(t, strings.Repeat("y", 50), c.Get(0))
}

func TestStringColumnRemoveShort(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("a"))
	require.NoError(t, c.Add("b"))
	require.NoError(t, c.Add("c"))
	require.NoError(t, c.Remove(1))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "a", c.Get(0))
	assert.Equal(t, "c", c.Get(1))
}

func TestStringColumnRemoveLong(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.ForceLong())
	require.NoError(t, c.Add("alpha"))
	require.NoError(t, c.Add("beta"))
	require.NoError(t, c.Add("gamma"))
	require.NoError(t, c.Remove(1))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "alpha", c.Get(0))
	assert.Equal(t, "gamma", c.Get(1))
}

func TestStringColumnMoveLastOver(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("a"))
	require.NoError(t, c.Add("b"))
	require.NoError(t, c.Add("c"))
	require.NoError(t, c.MoveLastOver(0))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "c", c.Get(0))
	assert.Equal(t, "b", c.Get(1))
}

func TestStringColumnSwapRows(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("a"))
	require.NoError(t, c.Add("b"))
	require.NoError(t, c.SwapRows(0, 1))
	assert.Equal(t, "b", c.Get(0))
	assert.Equal(t, "a", c.Get(1))
}

func TestStringColumnClearPreservesMode(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.ForceLong())
	require.NoError(t, c.Add("alpha"))
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.IsLong())
}

func TestStringColumnAttachShortRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.Add("one"))
	require.NoError(t, c.Add("two"))
	ref, _ := c.Refs()

	c2, err := AttachShortStringColumn(ar, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Len())
	assert.Equal(t, "one", c2.Get(0))
	assert.Equal(t, "two", c2.Get(1))
}

func TestStringColumnAttachLongRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	c, err := NewStringColumn(ar)
	require.NoError(t, err)
	require.NoError(t, c.ForceLong())
	require.NoError(t, c.Add("alpha"))
	require.NoError(t, c.Add("beta"))
	blobRef, offsRef := c.Refs()

	c2, err := AttachLongStringColumn(ar, blobRef, offsRef)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Len())
	assert.Equal(t, "alpha", c2.Get(0))
	assert.Equal(t, "beta", c2.Get(1))
}
