package txn

import (
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/group"
)

// ReadSnapshot is a read-only view of the database at the version
// that was current when it was acquired, per spec.md §4.7's "Reader
// snapshot acquisition".
type ReadSnapshot struct {
	mgr      *Manager
	version  uint32
	group    *group.Group
	released bool
}

// Group returns the snapshot's Group. Callers must not mutate it;
// ReadSnapshot does not itself enforce that, matching the original's
// convention that write access goes exclusively through a WriteTxn's
// own Group handle.
func (s *ReadSnapshot) Group() *group.Group { return s.group }

// Version reports the snapshot's committed version number.
func (s *ReadSnapshot) Version() uint32 { return s.version }

// Release gives up the reader's ring entry, per spec.md §4.7's
// "Reader release". It is the only obligation a cancelled or
// finished reader has; it never touches the data file.
func (s *ReadSnapshot) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	m := s.mgr
	if err := m.lockRead(); err != nil {
		return err
	}
	defer func() { _ = m.unlockRead() }()

	pos, ok := m.ringFind(s.version)
	if !ok {
		return fmt.Errorf("txn: read version %d not found in reader ring", s.version)
	}
	rc := m.ringGet(pos)
	rc.count--
	m.ringSet(pos, rc)
	m.ringTrim()
	return nil
}

// BeginRead acquires a read snapshot, per spec.md §4.7: under the
// reader mutex, read the current top/size/version, then find or
// append that version's ring entry and increment its count.
func (m *Manager) BeginRead() (*ReadSnapshot, error) {
	if err := m.lockRead(); err != nil {
		return nil, fmt.Errorf("txn: begin read: %w", err)
	}
	top := arena.Ref(m.currentTop())
	version := m.currentVersion()

	if pos, ok := m.lastRingEntryAt(version); ok {
		rc := m.ringGet(pos)
		rc.count++
		m.ringSet(pos, rc)
	} else if err := m.ringPut(readCount{version: version, count: 1}); err != nil {
		_ = m.unlockRead()
		return nil, fmt.Errorf("txn: begin read: %w", err)
	}
	if err := m.unlockRead(); err != nil {
		return nil, err
	}

	g, err := m.openGroup(top)
	if err != nil {
		return nil, fmt.Errorf("txn: begin read: %w", err)
	}
	return &ReadSnapshot{mgr: m, version: version, group: g}, nil
}

// lastRingEntryAt returns the ring's most recent entry when it
// already records version, so a second concurrent reader at the same
// version only bumps its count instead of appending a duplicate ring
// slot, per the original's "if r.version == m_info->current_version"
// check in SharedGroup::begin_read.
func (m *Manager) lastRingEntryAt(version uint32) (uint32, bool) {
	if m.ringSize() == 0 {
		return 0, false
	}
	last := m.putPos() - 1
	if m.ringGet(last).version == version {
		return last, true
	}
	return 0, false
}

// WriteTxn is the single writer's in-progress transaction. The write
// mutex is held for its entire lifetime; it is released by exactly
// one of Commit or Rollback.
type WriteTxn struct {
	mgr               *Manager
	newVersion        uint64
	oldestLiveVersion uint64
	group             *group.Group
	done              bool
}

// Group returns the Group the write transaction mutates. Most callers
// pass this same value back into Commit; it is returned separately so
// a caller (e.g. the root package's Update helper) can hand it to
// user code without also handing over the Manager.
func (t *WriteTxn) Group() *group.Group { return t.group }

// BeginWrite acquires the write mutex for the lifetime of the
// returned WriteTxn and computes the commit/reclamation versions
// described in spec.md §4.7's "Writer commit".
func (m *Manager) BeginWrite() (*WriteTxn, error) {
	if err := m.lockWrite(); err != nil {
		return nil, fmt.Errorf("txn: begin write: %w", err)
	}
	newVersion := uint64(m.currentVersion()) + 1

	if err := m.lockRead(); err != nil {
		_ = m.unlockWrite()
		return nil, fmt.Errorf("txn: begin write: %w", err)
	}
	oldest := m.oldestLiveVersion(newVersion)
	if err := m.unlockRead(); err != nil {
		_ = m.unlockWrite()
		return nil, err
	}

	top := arena.Ref(m.currentTop())
	g, err := m.openGroup(top)
	if err != nil {
		_ = m.unlockWrite()
		return nil, fmt.Errorf("txn: begin write: %w", err)
	}
	return &WriteTxn{mgr: m, newVersion: newVersion, oldestLiveVersion: oldest, group: g}, nil
}

// Commit serializes g's changes through Group.Commit, satisfies the
// Manager's durability mode, then publishes the new top ref/file
// size/version under the reader mutex before releasing the write
// mutex, per spec.md §4.7's ordering guarantees. g is normally the
// same Group returned by Group(), but Commit does not assume that —
// it commits whichever Group it is handed.
func (t *WriteTxn) Commit(g *group.Group) (uint64, error) {
	if t.done {
		return 0, fmt.Errorf("txn: commit: transaction already finished")
	}
	t.done = true
	m := t.mgr
	defer func() { _ = m.unlockWrite() }()

	top, err := g.Commit(t.newVersion, t.oldestLiveVersion)
	if err != nil {
		return 0, fmt.Errorf("txn: commit: %w", err)
	}

	if m.durability == DurabilityFull {
		if err := m.ar.Flush(); err != nil {
			return 0, fmt.Errorf("txn: commit: flush: %w", err)
		}
	}

	if err := m.lockRead(); err != nil {
		return 0, fmt.Errorf("txn: commit: %w", err)
	}
	m.setCurrentTop(uint64(top))
	m.setFileSize(m.ar.Stats().FileSize)
	m.setCurrentVersion(uint32(t.newVersion))
	if err := m.unlockRead(); err != nil {
		return 0, err
	}

	m.ar.PublishTop(top)
	return t.newVersion, nil
}

// Rollback discards the transaction without touching the file, per
// spec.md §4.7's "Cancellation and timeouts": "may be cancelled only
// by calling rollback (no file changes published)".
func (t *WriteTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.mgr.unlockWrite()
}
