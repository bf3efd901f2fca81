package arkdb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/table"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ark")
	db, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpdateCommitsVisibleToLaterView(t *testing.T) {
	db := openTestDB(t)

	err := db.Update(func(tx *Tx) error {
		_, err := tx.Group().AddTable("people", []table.ColumnSpec{{Name: "name", Type: table.String}})
		return err
	})
	require.NoError(t, err)

	err = db.View(func(tx *Tx) error {
		assert.Equal(t, []string{"people"}, tx.Group().TableNames())
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateRollsBackOnCallbackError(t *testing.T) {
	db := openTestDB(t)

	wantErr := errors.New("boom")
	err := db.Update(func(tx *Tx) error {
		_, addErr := tx.Group().AddTable("people", []table.ColumnSpec{{Name: "name", Type: table.String}})
		require.NoError(t, addErr)
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	err = db.View(func(tx *Tx) error {
		assert.Empty(t, tx.Group().TableNames())
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateAllowsSubsequentWriteAfterRollback(t *testing.T) {
	db := openTestDB(t)

	_ = db.Update(func(tx *Tx) error {
		return errors.New("fail first")
	})

	err := db.Update(func(tx *Tx) error {
		_, err := tx.Group().AddTable("t", []table.ColumnSpec{{Name: "n", Type: table.Int}})
		return err
	})
	require.NoError(t, err)
}

func TestViewSeesDataAddedByPriorUpdate(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Update(func(tx *Tx) error {
		tbl, err := tx.Group().AddTable("people", []table.ColumnSpec{{Name: "name", Type: table.String}})
		if err != nil {
			return err
		}
		if err := tbl.AddEmptyRows(1); err != nil {
			return err
		}
		return tbl.SetString("name", 0, "alice")
	}))

	require.NoError(t, db.View(func(tx *Tx) error {
		tbl := tx.Group().GetTable("people")
		require.NotNil(t, tbl)
		assert.Equal(t, "alice", tbl.GetString("name", 0))
		return nil
	}))
}

func TestUpdateReturnsCallbackErrorOnDuplicateTable(t *testing.T) {
	db := openTestDB(t)
	err := db.Update(func(tx *Tx) error {
		_, err := tx.Group().AddTable("dup", []table.ColumnSpec{{Name: "n", Type: table.Int}})
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)

	// A second Update adding the same table name must fail inside fn
	// and roll back rather than commit a half-applied change.
	err = db.Update(func(tx *Tx) error {
		_, err := tx.Group().AddTable("dup", []table.ColumnSpec{{Name: "n", Type: table.Int}})
		return err
	})
	require.Error(t, err)
}
