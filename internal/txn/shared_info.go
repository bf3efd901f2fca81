package txn

import "encoding/binary"

// The shared coordination region mmap'd from the lock file, laid out
// field-for-field after original_source/src/tightdb/group_shared.cpp's
// struct SharedInfo: a schema version, durability flags, the last
// published top ref and file size, the current version counter, and a
// fixed-capacity ring of (version, reader_count) entries recording
// which versions still have live readers.
const (
	infoSchemaVersion uint16 = 1

	// ringCapacity must be a power of two so ring indices can be masked
	// instead of taken modulo, per the original's "has to be power of
	// two" comment on SharedInfo::readers.
	ringCapacity = 32

	offVersion        = 0
	offFlags          = 2
	offCurrentTop     = 8
	offCurrentVersion = 16
	offFileSize       = 24
	offPutPos         = 32
	offGetPos         = 36
	offReaders        = 40
	readCountSize     = 8
	infoSize          = offReaders + ringCapacity*readCountSize
)

// readCount is one ring entry: a committed version and how many live
// readers currently hold a snapshot at it.
type readCount struct {
	version uint32
	count   uint32
}

func (m *Manager) schemaVersion() uint16 { return binary.LittleEndian.Uint16(m.region[offVersion:]) }
func (m *Manager) flags() uint16        { return binary.LittleEndian.Uint16(m.region[offFlags:]) }
func (m *Manager) setFlags(v uint16)    { binary.LittleEndian.PutUint16(m.region[offFlags:], v) }

func (m *Manager) currentTop() uint64 { return binary.LittleEndian.Uint64(m.region[offCurrentTop:]) }
func (m *Manager) setCurrentTop(v uint64) {
	binary.LittleEndian.PutUint64(m.region[offCurrentTop:], v)
}

func (m *Manager) currentVersion() uint32 {
	return binary.LittleEndian.Uint32(m.region[offCurrentVersion:])
}
func (m *Manager) setCurrentVersion(v uint32) {
	binary.LittleEndian.PutUint32(m.region[offCurrentVersion:], v)
}

func (m *Manager) fileSize() uint64 { return binary.LittleEndian.Uint64(m.region[offFileSize:]) }
func (m *Manager) setFileSize(v uint64) {
	binary.LittleEndian.PutUint64(m.region[offFileSize:], v)
}

func (m *Manager) putPos() uint32 { return binary.LittleEndian.Uint32(m.region[offPutPos:]) }
func (m *Manager) setPutPos(v uint32) {
	binary.LittleEndian.PutUint32(m.region[offPutPos:], v)
}
func (m *Manager) getPos() uint32 { return binary.LittleEndian.Uint32(m.region[offGetPos:]) }
func (m *Manager) setGetPos(v uint32) {
	binary.LittleEndian.PutUint32(m.region[offGetPos:], v)
}

// ringSize reports the number of live ring entries. put_pos/get_pos are
// monotonically increasing counters, masked on access, exactly as the
// original's "capacity - 1 so it can also be used as mask" comment
// describes.
func (m *Manager) ringSize() uint32 { return m.putPos() - m.getPos() }

func (m *Manager) ringGet(pos uint32) readCount {
	off := offReaders + int(pos&(ringCapacity-1))*readCountSize
	return readCount{
		version: binary.LittleEndian.Uint32(m.region[off:]),
		count:   binary.LittleEndian.Uint32(m.region[off+4:]),
	}
}

func (m *Manager) ringSet(pos uint32, rc readCount) {
	off := offReaders + int(pos&(ringCapacity-1))*readCountSize
	binary.LittleEndian.PutUint32(m.region[off:], rc.version)
	binary.LittleEndian.PutUint32(m.region[off+4:], rc.count)
}

// ringPut appends an entry, growing put_pos. Callers hold the read
// mutex.
func (m *Manager) ringPut(rc readCount) error {
	if m.ringSize() >= ringCapacity {
		return errRingFull
	}
	pos := m.putPos()
	m.ringSet(pos, rc)
	m.setPutPos(pos + 1)
	return nil
}

// ringFind returns the ring position holding version, if any live entry
// matches.
func (m *Manager) ringFind(version uint32) (uint32, bool) {
	size := m.ringSize()
	get := m.getPos()
	for i := uint32(0); i < size; i++ {
		pos := get + i
		if m.ringGet(pos).version == version {
			return pos, true
		}
	}
	return 0, false
}

// ringTrim drops the oldest entries while they have a zero reader
// count, per the original's ringbuf_remove_first loop in
// end_read/"while (!ringbuf_is_empty() && ringbuf_get_first().count == 0)".
func (m *Manager) ringTrim() {
	for m.ringSize() > 0 {
		if m.ringGet(m.getPos()).count != 0 {
			break
		}
		m.setGetPos(m.getPos() + 1)
	}
}

// oldestLiveVersion returns the version of the oldest live ring entry,
// or newVersion if the ring is empty (nothing is held open, so the
// writer may reclaim everything up to its own new version).
func (m *Manager) oldestLiveVersion(newVersion uint64) uint64 {
	if m.ringSize() == 0 {
		return newVersion
	}
	return uint64(m.ringGet(m.getPos()).version)
}

// initRegion zeroes and reinitializes the shared region, per spec.md
// §4.7's crash-recovery rule: "if the lock file's shared state is
// unallocated or its schema version does not match, reinitialise it".
// current_top/current_version are seeded from the data file's own
// published top via the baseTop/baseVersion arguments, since a lock
// file can be recreated independently of an already-populated data
// file.
func (m *Manager) initRegion(baseTop, baseFileSize uint64, baseVersion uint32) {
	for i := range m.region {
		m.region[i] = 0
	}
	binary.LittleEndian.PutUint16(m.region[offVersion:], infoSchemaVersion)
	m.setFlags(uint16(m.durability))
	m.setCurrentTop(baseTop)
	m.setFileSize(baseFileSize)
	m.setCurrentVersion(baseVersion)
	m.setPutPos(0)
	m.setGetPos(0)
}
