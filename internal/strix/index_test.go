package strix

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/arena"
)

func TestIndexInsertFindAllSingle(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	require.NoError(t, ix.Insert(KeyBytesInt(42), 7))
	rows, err := ix.FindAll(KeyBytesInt(42))
	require.NoError(t, err)
	assert.Equal(t, []int{7}, rows)
}

func TestIndexFindAllMissingKeyReturnsEmpty(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)
	rows, err := ix.FindAll(KeyBytesInt(1))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestIndexPromotesInlineToRowsOnSecondInsert(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	require.NoError(t, ix.Insert(KeyBytesInt(5), 1))
	require.NoError(t, ix.Insert(KeyBytesInt(5), 2))
	require.NoError(t, ix.Insert(KeyBytesInt(5), 3))

	rows, err := ix.FindAll(KeyBytesInt(5))
	require.NoError(t, err)
	sort.Ints(rows)
	assert.Equal(t, []int{1, 2, 3}, rows)
}

func TestIndexLargeMatchSetPromotesToColumn(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	for i := 0; i < columnThreshold+10; i++ {
		require.NoError(t, ix.Insert(KeyBytesInt(9), i))
	}
	rows, err := ix.FindAll(KeyBytesInt(9))
	require.NoError(t, err)
	assert.Len(t, rows, columnThreshold+10)

	count, err := ix.Count(KeyBytesInt(9))
	require.NoError(t, err)
	assert.Equal(t, columnThreshold+10, count)
}

func TestIndexMultipleDistinctKeys(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	keys := []int64{1, 100, -5, 0, 99999}
	for i, k := range keys {
		require.NoError(t, ix.Insert(KeyBytesInt(k), i))
	}
	for i, k := range keys {
		rows, err := ix.FindAll(KeyBytesInt(k))
		require.NoError(t, err)
		assert.Equal(t, []int{i}, rows)
	}
}

func TestIndexStringKeys(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	require.NoError(t, ix.Insert(KeyBytesString("alice"), 0))
	require.NoError(t, ix.Insert(KeyBytesString("bob"), 1))
	require.NoError(t, ix.Insert(KeyBytesString("alice"), 2))

	rows, err := ix.FindAll(KeyBytesString("alice"))
	require.NoError(t, err)
	sort.Ints(rows)
	assert.Equal(t, []int{0, 2}, rows)

	rows, err = ix.FindAll(KeyBytesString("bob"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rows)
}

func TestIndexKeysLongerThanFourBytesRecurseIntoSubIndex(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)

	// Two strings sharing the same first 4-byte chunk but differing
	// after it must not be confused with each other once enough entries
	// accumulate under that chunk to trigger a sub-index split.
	shared := "abcd"
	for i := 0; i < inlineThreshold+2; i++ {
		require.NoError(t, ix.Insert(KeyBytesString(shared+"1"), i))
	}
	require.NoError(t, ix.Insert(KeyBytesString(shared+"2"), 1000))

	rows1, err := ix.FindAll(KeyBytesString(shared + "1"))
	require.NoError(t, err)
	assert.Len(t, rows1, inlineThreshold+2)

	rows2, err := ix.FindAll(KeyBytesString(shared + "2"))
	require.NoError(t, err)
	assert.Equal(t, []int{1000}, rows2)
}

func TestIndexFindFirst(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)
	require.NoError(t, ix.Insert(KeyBytesInt(1), 10))
	require.NoError(t, ix.Insert(KeyBytesInt(1), 20))

	first, err := ix.FindFirst(KeyBytesInt(1))
	require.NoError(t, err)
	assert.Contains(t, []int{10, 20}, first)

	none, err := ix.FindFirst(KeyBytesInt(2))
	require.NoError(t, err)
	assert.Equal(t, -1, none)
}

func TestIndexAttachRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	ix, err := NewIndex(ar)
	require.NoError(t, err)
	require.NoError(t, ix.Insert(KeyBytesInt(1), 1))
	require.NoError(t, ix.Insert(KeyBytesInt(2), 2))
	ref := ix.Ref()

	ix2, err := AttachIndex(ar, ref)
	require.NoError(t, err)
	rows, err := ix2.FindAll(KeyBytesInt(1))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rows)
}
