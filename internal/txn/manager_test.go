package txn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/table"
)

func newTestManager(t *testing.T, mode DurabilityMode) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.ark")
	m, err := Open(path, mode)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, path
}

func TestManagerOpenInitializesRegion(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	assert.Equal(t, infoSchemaVersion, m.schemaVersion())
	assert.Equal(t, uint64(0), m.currentTop())
	assert.Equal(t, uint32(0), m.currentVersion())
}

func TestManagerReopenPreservesCommittedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.ark")
	m, err := Open(path, DurabilityFull)
	require.NoError(t, err)

	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx.Group().AddTable("people", []table.ColumnSpec{{Name: "n", Type: table.Int}})
	require.NoError(t, err)
	version, err := wtx.Commit(wtx.Group())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	require.NoError(t, m.Close())

	m2, err := Open(path, DurabilityFull)
	require.NoError(t, err)
	defer func() { _ = m2.Close() }()
	assert.Equal(t, uint32(1), m2.currentVersion())

	snap, err := m2.BeginRead()
	require.NoError(t, err)
	defer func() { _ = snap.Release() }()
	assert.Equal(t, []string{"people"}, snap.Group().TableNames())
}

func TestManagerBeginWriteCommitAdvancesVersionAndPublishesTop(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)

	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx.Group().AddTable("t", []table.ColumnSpec{{Name: "n", Type: table.Int}})
	require.NoError(t, err)

	version, err := wtx.Commit(wtx.Group())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, uint32(1), m.currentVersion())
	assert.NotEqual(t, uint64(0), m.currentTop())
}

func TestWriteTxnCommitTwiceFails(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx.Commit(wtx.Group())
	require.NoError(t, err)

	_, err = wtx.Commit(wtx.Group())
	require.Error(t, err)
}

func TestWriteTxnRollbackLeavesVersionUnchanged(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx.Group().AddTable("t", []table.ColumnSpec{{Name: "n", Type: table.Int}})
	require.NoError(t, err)

	require.NoError(t, wtx.Rollback())
	assert.Equal(t, uint32(0), m.currentVersion())

	// the write mutex must have been released, so a fresh BeginWrite
	// does not deadlock.
	wtx2, err := m.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, wtx2.Rollback())
}

func TestWriteTxnRollbackTwiceIsNoop(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, wtx.Rollback())
	require.NoError(t, wtx.Rollback())
}

func TestManagerBeginReadSeesLatestCommittedVersion(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)

	snap0, err := m.BeginRead()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), snap0.Version())
	require.NoError(t, snap0.Release())

	wtx, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx.Commit(wtx.Group())
	require.NoError(t, err)

	snap1, err := m.BeginRead()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), snap1.Version())
	require.NoError(t, snap1.Release())
}

func TestManagerOldestLiveVersionReflectsOpenReader(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)

	wtx1, err := m.BeginWrite()
	require.NoError(t, err)
	_, err = wtx1.Commit(wtx1.Group())
	require.NoError(t, err)

	snap, err := m.BeginRead() // holds version 1 open
	require.NoError(t, err)

	wtx2, err := m.BeginWrite()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), wtx2.oldestLiveVersion)
	require.NoError(t, wtx2.Rollback())

	require.NoError(t, snap.Release())
}

func TestReadSnapshotReleaseTwiceIsNoop(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	snap, err := m.BeginRead()
	require.NoError(t, err)
	require.NoError(t, snap.Release())
	require.NoError(t, snap.Release())
}

func TestManagerDurabilityMemOnlyDeletesFilesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.ark")
	m, err := Open(path, DurabilityMemOnly)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}

func TestManagerDurabilityFullKeepsFilesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.ark")
	m, err := Open(path, DurabilityFull)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRingPutFindTrim(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)

	require.NoError(t, m.ringPut(readCount{version: 1, count: 2}))
	require.NoError(t, m.ringPut(readCount{version: 2, count: 1}))
	assert.Equal(t, uint32(2), m.ringSize())

	pos, ok := m.ringFind(2)
	require.True(t, ok)
	rc := m.ringGet(pos)
	assert.Equal(t, uint32(2), rc.version)
	assert.Equal(t, uint32(1), rc.count)

	_, ok = m.ringFind(99)
	assert.False(t, ok)

	// dropping version 1's last reader should let ringTrim advance
	// past it, but version 2 still holds the ring open.
	first := m.ringGet(m.getPos())
	first.count = 0
	m.ringSet(m.getPos(), first)
	m.ringTrim()
	assert.Equal(t, uint32(1), m.ringSize())
	_, ok = m.ringFind(1)
	assert.False(t, ok)
	_, ok = m.ringFind(2)
	assert.True(t, ok)
}

func TestRingPutFailsWhenFull(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	for i := 0; i < ringCapacity; i++ {
		require.NoError(t, m.ringPut(readCount{version: uint32(i), count: 1}))
	}
	err := m.ringPut(readCount{version: 999, count: 1})
	assert.ErrorIs(t, err, errRingFull)
}

func TestOldestLiveVersionEmptyRingReturnsNewVersion(t *testing.T) {
	m, _ := newTestManager(t, DurabilityFull)
	assert.Equal(t, uint64(7), m.oldestLiveVersion(7))
}
