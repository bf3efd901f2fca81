package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/arena"
	"arkdb/internal/strix"
)

func newTestTable(t *testing.T, specs []ColumnSpec) *Table {
	t.Helper()
	tbl, err := New(arena.NewMem(), specs)
	require.NoError(t, err)
	return tbl
}

func TestTableAddColumnBackfillsExistingRows(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "id", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))

	require.NoError(t, tbl.AddColumn(ColumnSpec{Name: "name", Type: String}))
	assert.Equal(t, 3, tbl.NumRows())
	for r := 0; r < 3; r++ {
		assert.Equal(t, "", tbl.GetString("name", r))
	}
}

func TestTableAddColumnDuplicateNameFails(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "id", Type: Int}})
	err := tbl.AddColumn(ColumnSpec{Name: "id", Type: String})
	require.Error(t, err)
}

func TestTableRemoveColumnReindexes(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{
		{Name: "a", Type: Int}, {Name: "b", Type: Int}, {Name: "c", Type: Int},
	})
	require.NoError(t, tbl.RemoveColumn("a"))
	assert.Equal(t, -1, tbl.ColumnIndex("a"))
	assert.Equal(t, 0, tbl.ColumnIndex("b"))
	assert.Equal(t, 1, tbl.ColumnIndex("c"))
}

func TestTableGetSetIntBoolFloatDoubleString(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{
		{Name: "n", Type: Int}, {Name: "active", Type: Bool},
		{Name: "f", Type: Float}, {Name: "d", Type: Double}, {Name: "s", Type: String},
	})
	require.NoError(t, tbl.AddEmptyRows(1))

	require.NoError(t, tbl.SetInt("n", 0, 42))
	require.NoError(t, tbl.SetBool("active", 0, true))
	require.NoError(t, tbl.SetFloat("f", 0, 1.5))
	require.NoError(t, tbl.SetDouble("d", 0, 2.5))
	require.NoError(t, tbl.SetString("s", 0, "hi"))

	assert.Equal(t, int64(42), tbl.GetInt("n", 0))
	assert.Equal(t, true, tbl.GetBool("active", 0))
	assert.Equal(t, float32(1.5), tbl.GetFloat("f", 0))
	assert.Equal(t, 2.5, tbl.GetDouble("d", 0))
	assert.Equal(t, "hi", tbl.GetString("s", 0))
}

func TestTableGetIntWrongColumnTypePanics(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "s", Type: String}})
	require.NoError(t, tbl.AddEmptyRows(1))
	assert.Panics(t, func() { tbl.GetInt("s", 0) })
}

func TestTableGetMissingColumnPanics(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "s", Type: String}})
	assert.Panics(t, func() { tbl.GetInt("nope", 0) })
}

func TestTableTimestampRoundTrip(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "t", Type: Timestamp}})
	require.NoError(t, tbl.AddEmptyRows(1))
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, tbl.SetTimestamp("t", 0, now))
	assert.True(t, tbl.GetTimestamp("t", 0).Equal(now))
}

func TestTableRemovePreservesOrder(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))
	require.NoError(t, tbl.SetInt("n", 0, 1))
	require.NoError(t, tbl.SetInt("n", 1, 2))
	require.NoError(t, tbl.SetInt("n", 2, 3))

	require.NoError(t, tbl.Remove(1))
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, int64(1), tbl.GetInt("n", 0))
	assert.Equal(t, int64(3), tbl.GetInt("n", 1))
}

func TestTableMoveLastOverReorders(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))
	require.NoError(t, tbl.SetInt("n", 0, 1))
	require.NoError(t, tbl.SetInt("n", 1, 2))
	require.NoError(t, tbl.SetInt("n", 2, 3))

	require.NoError(t, tbl.MoveLastOver(0))
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, int64(3), tbl.GetInt("n", 0))
	assert.Equal(t, int64(2), tbl.GetInt("n", 1))
}

func TestTableSwapRows(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(2))
	require.NoError(t, tbl.SetInt("n", 0, 1))
	require.NoError(t, tbl.SetInt("n", 1, 2))
	require.NoError(t, tbl.SwapRows(0, 1))
	assert.Equal(t, int64(2), tbl.GetInt("n", 0))
	assert.Equal(t, int64(1), tbl.GetInt("n", 1))
}

func TestTableClear(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(5))
	require.NoError(t, tbl.Clear())
	assert.Equal(t, 0, tbl.NumRows())
}

func TestTableLinkListRoundTrip(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "friends", Type: LinkList}})
	require.NoError(t, tbl.AddEmptyRows(1))
	require.NoError(t, tbl.AppendLinkListTarget("friends", 0, 1))
	require.NoError(t, tbl.AppendLinkListTarget("friends", 0, 2))

	targets, err := tbl.GetLinkList("friends", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, targets)

	require.NoError(t, tbl.RemoveLinkListTarget("friends", 0, 0))
	targets, err = tbl.GetLinkList("friends", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, targets)
}

func TestTableLinkGetSetNull(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "owner", Type: Link}})
	require.NoError(t, tbl.AddEmptyRows(1))
	require.NoError(t, tbl.SetLink("owner", 0, 3))
	assert.Equal(t, int64(3), tbl.GetLink("owner", 0))
}

func TestTableOptimizeConvertsLowCardinalityStringToEnum(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "status", Type: String}})
	require.NoError(t, tbl.AddEmptyRows(10))
	for r := 0; r < 10; r++ {
		v := "active"
		if r%5 == 0 {
			v = "inactive"
		}
		require.NoError(t, tbl.SetString("status", r, v))
	}
	require.NoError(t, tbl.Optimize())
	assert.Equal(t, Enum, tbl.Specs()[tbl.ColumnIndex("status")].Type)
	assert.Equal(t, "active", tbl.GetString("status", 1))
	assert.Equal(t, "inactive", tbl.GetString("status", 0))
}

func TestTableOptimizeLeavesHighCardinalityStringAlone(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "name", Type: String}})
	require.NoError(t, tbl.AddEmptyRows(4))
	for r := 0; r < 4; r++ {
		require.NoError(t, tbl.SetString("name", r, string(rune('a'+r))))
	}
	require.NoError(t, tbl.Optimize())
	assert.Equal(t, String, tbl.Specs()[tbl.ColumnIndex("name")].Type)
}

func TestTableAddIndexIntAndLookup(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))
	require.NoError(t, tbl.SetInt("n", 0, 10))
	require.NoError(t, tbl.SetInt("n", 1, 20))
	require.NoError(t, tbl.SetInt("n", 2, 10))

	require.NoError(t, tbl.AddIndex("n"))
	ix, ok := tbl.Index("n")
	require.True(t, ok)

	rows, err := ix.FindAll(strix.KeyBytesInt(10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2}, rows)
}

func TestTableAddIndexUnsupportedTypeFails(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "f", Type: Float}})
	err := tbl.AddIndex("f")
	require.Error(t, err)
}

func TestTableLinkObserverFiresOnRemove(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))

	var gotRemoved, gotMovedFrom int
	called := false
	tbl.AddLinkObserver(notifierFunc(func(removed, movedFrom int) {
		called = true
		gotRemoved, gotMovedFrom = removed, movedFrom
	}))

	require.NoError(t, tbl.MoveLastOver(0))
	assert.True(t, called)
	assert.Equal(t, 0, gotRemoved)
	assert.Equal(t, 2, gotMovedFrom)
}

// TestTableIndexCoherenceOnMoveLastOver is spec.md's S3 scenario: a
// string column ["A","B","A","C","A"] with an index on it must still
// agree with a linear scan after move_last_over(0) shifts the last row
// into slot 0.
func TestTableIndexCoherenceOnMoveLastOver(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "s", Type: String}})
	require.NoError(t, tbl.AddEmptyRows(5))
	vals := []string{"A", "B", "A", "C", "A"}
	for r, v := range vals {
		require.NoError(t, tbl.SetString("s", r, v))
	}
	require.NoError(t, tbl.AddIndex("s"))

	assertIndexMatchesScan := func(want []string) {
		ix, ok := tbl.Index("s")
		require.True(t, ok)
		for _, needle := range []string{"A", "B", "C"} {
			var wantRows []int
			for r, v := range want {
				if v == needle {
					wantRows = append(wantRows, r)
				}
			}
			rows, err := ix.FindAll(strix.KeyBytesString(needle))
			require.NoError(t, err)
			assert.ElementsMatch(t, wantRows, rows, "mismatch for %q", needle)

			first, err := ix.FindFirst(strix.KeyBytesString(needle))
			require.NoError(t, err)
			if len(wantRows) == 0 {
				assert.Equal(t, -1, first)
			} else {
				assert.Equal(t, wantRows[0], first)
			}

			count, err := ix.Count(strix.KeyBytesString(needle))
			require.NoError(t, err)
			assert.Equal(t, len(wantRows), count)
		}
	}

	assertIndexMatchesScan(vals)

	require.NoError(t, tbl.MoveLastOver(0))
	want := []string{"A", "B", "A", "C"}
	for r, v := range want {
		assert.Equal(t, v, tbl.GetString("s", r))
	}
	assertIndexMatchesScan(want)
}

// TestTableIndexCoherenceOnSetAndSwap checks that SetInt and SwapRows
// keep an index in sync with the column they patch, not just
// MoveLastOver/Remove.
func TestTableIndexCoherenceOnSetAndSwap(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(3))
	require.NoError(t, tbl.SetInt("n", 0, 10))
	require.NoError(t, tbl.SetInt("n", 1, 20))
	require.NoError(t, tbl.SetInt("n", 2, 30))
	require.NoError(t, tbl.AddIndex("n"))

	require.NoError(t, tbl.SetInt("n", 1, 10))
	ix, ok := tbl.Index("n")
	require.True(t, ok)
	rows, err := ix.FindAll(strix.KeyBytesInt(10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1}, rows)
	rows, err = ix.FindAll(strix.KeyBytesInt(20))
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, tbl.SwapRows(1, 2))
	rows, err = ix.FindAll(strix.KeyBytesInt(10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2}, rows)
	rows, err = ix.FindAll(strix.KeyBytesInt(30))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rows)
}

// TestTableRemoveColumnDropsIndex ensures RemoveColumn doesn't leave a
// stale entry in t.indexes pointing at a column that no longer exists.
func TestTableRemoveColumnDropsIndex(t *testing.T) {
	tbl := newTestTable(t, []ColumnSpec{{Name: "n", Type: Int}})
	require.NoError(t, tbl.AddEmptyRows(2))
	require.NoError(t, tbl.AddIndex("n"))

	require.NoError(t, tbl.RemoveColumn("n"))
	_, ok := tbl.Index("n")
	assert.False(t, ok)
}

type notifierFunc func(removed, movedFrom int)

func (f notifierFunc) RowRemoved(removed, movedFrom int) { f(removed, movedFrom) }
