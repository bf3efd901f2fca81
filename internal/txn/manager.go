// Package txn implements the transaction manager (C7) of spec.md §4.7:
// a process-shared coordination region held in a lock file alongside
// the data file, giving the single-writer/many-readers protocol its
// reader ring and write mutex.
//
// Go has no analogue of pthread_mutexattr_setpshared(PTHREAD_PROCESS_SHARED),
// so the two mutexes the original's SharedInfo embeds are realized here
// as two independent fcntl byte-range advisory locks
// (golang.org/x/sys/unix's F_SETLKW, one byte each for the reader-ring
// and writer critical sections) held over the same lock file, with a
// whole-file github.com/gofrs/flock lock guarding only the cross-process
// init race, mirroring original_source/src/tightdb/group_shared.cpp's
// SharedGroup.
package txn

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"arkdb/internal/arena"
	"arkdb/internal/group"
)

var errRingFull = errors.New("txn: reader ring is full")

// DurabilityMode selects how a write transaction makes its commit
// durable, per spec.md §4.7's "Durability modes".
type DurabilityMode uint16

const (
	// DurabilityFull flushes the mapped data file before publishing the
	// new top ref.
	DurabilityFull DurabilityMode = iota
	// DurabilityMemOnly skips the flush; the file is a scratch backing
	// store and survives only as long as the process does.
	DurabilityMemOnly
	// DurabilityAsync defers durability to a separate committer
	// process. Out of core scope: there is no separate committer here,
	// so Manager skips the flush for it as for DurabilityMemOnly, but
	// Close keeps both files.
	DurabilityAsync
)

// byte offsets within the lock file reserved for the two advisory
// byte-range locks standing in for the original's process-shared
// mutexes.
const (
	writeMutexByte = int64(infoSize)
	readMutexByte  = int64(infoSize) + 1
)

// Manager coordinates readers and writers over a single data file,
// per spec.md §4.7. It owns both the data file's Arena and the
// companion lock file's shared coordination region.
type Manager struct {
	path       string
	ar         *arena.FileArena
	durability DurabilityMode

	lockFile *os.File
	region   mmap.MMap
}

// Open attaches to the data file at path (creating it if necessary)
// and its companion lock file at path+".lock", reinitializing the
// lock file's shared region if it is new or carries an unrecognised
// schema version, per spec.md §4.7's crash recovery rule.
func Open(path string, mode DurabilityMode) (*Manager, error) {
	ar, err := arena.OpenFile(path, 0)
	if err != nil {
		return nil, fmt.Errorf("txn: open data file %q: %w", path, err)
	}

	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = ar.Close()
		return nil, fmt.Errorf("txn: open lock file %q: %w", lockPath, err)
	}

	initLock := flock.New(lockPath)
	if err := initLock.Lock(); err != nil {
		_ = f.Close()
		_ = ar.Close()
		return nil, fmt.Errorf("txn: acquire init lock: %w", err)
	}
	defer func() { _ = initLock.Unlock() }()

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		_ = ar.Close()
		return nil, fmt.Errorf("txn: stat lock file: %w", err)
	}
	needInit := fi.Size() < int64(infoSize)+2
	if needInit {
		if err := f.Truncate(int64(infoSize) + 2); err != nil {
			_ = f.Close()
			_ = ar.Close()
			return nil, fmt.Errorf("txn: grow lock file: %w", err)
		}
	}

	region, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		_ = ar.Close()
		return nil, fmt.Errorf("txn: mmap lock file: %w", err)
	}

	m := &Manager{path: path, ar: ar, durability: mode, lockFile: f, region: region}
	if needInit || m.schemaVersion() != infoSchemaVersion {
		m.initRegion(0, ar.Stats().FileSize, 0)
	}
	ar.PublishTop(arena.Ref(m.currentTop()))
	return m, nil
}

// Arena exposes the underlying data-file Arena, for callers that need
// to open or build a Group directly (e.g. the root package's DB.Open
// seeding an empty Group on first use).
func (m *Manager) Arena() arena.Arena { return m.ar }

// Durability reports the manager's configured durability mode.
func (m *Manager) Durability() DurabilityMode { return m.durability }

// Close unmaps the shared region, closes the data file, and — in
// DurabilityMemOnly — deletes both files, per spec.md §6's "MemOnly:
// no fsync; file is deleted on last close".
func (m *Manager) Close() error {
	if err := m.region.Unmap(); err != nil {
		return err
	}
	if err := m.lockFile.Close(); err != nil {
		return err
	}
	if err := m.ar.Close(); err != nil {
		return err
	}
	if m.durability == DurabilityMemOnly {
		_ = os.Remove(m.path + ".lock")
		_ = os.Remove(m.path)
	}
	return nil
}

// lockRange takes or releases an advisory byte-range lock on the lock
// file, blocking until available. This is the byte-range analogue of
// pthread_mutex_lock on a PTHREAD_PROCESS_SHARED mutex: any process
// with the lock file open contends on the same range.
func (m *Manager) lockRange(start int64, lockType int16) error {
	lk := unix.Flock_t{Type: lockType, Whence: 0, Start: start, Len: 1}
	return unix.FcntlFlock(m.lockFile.Fd(), unix.F_SETLKW, &lk)
}

func (m *Manager) lockWrite() error   { return m.lockRange(writeMutexByte, unix.F_WRLCK) }
func (m *Manager) unlockWrite() error { return m.lockRange(writeMutexByte, unix.F_UNLCK) }
func (m *Manager) lockRead() error    { return m.lockRange(readMutexByte, unix.F_WRLCK) }
func (m *Manager) unlockRead() error  { return m.lockRange(readMutexByte, unix.F_UNLCK) }

// openGroup attaches the Group at top, or creates a fresh empty one if
// the data file has never been committed to (top == 0).
func (m *Manager) openGroup(top arena.Ref) (*group.Group, error) {
	if top == 0 {
		return group.New(m.ar)
	}
	return group.Open(m.ar, top)
}
