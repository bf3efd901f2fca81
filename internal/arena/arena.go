// Package arena turns refs into addresses and hands out aligned byte
// ranges backed by either a memory-mapped file or anonymous memory.
//
// It is the allocator layer (C1): the sole owner of the data file's
// physical layout. Everything above it (bitarray.Array and up) only ever
// deals in Refs and never touches the file directly.
package arena

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// align is the stride every allocation is rounded up to. Refs are always
// a multiple of align; the low bit of a Ref is free for the inline-tag
// convention used by bitarray.
const align = 8

// headerSize is the fixed-size file header identifying the format
// version (spec.md §6 "Data file layout").
const headerSize = 32

var fileMagic = [4]byte{'a', 'r', 'k', '1'}

// ErrOutOfSpace is returned when the backing file cannot be extended.
var ErrOutOfSpace = errors.New("arena: out of space")

// CorruptionError reports a fatal inconsistency found while translating
// a ref. Per spec.md §4.1, this aborts the current transaction and makes
// the owning Group unusable until reopened.
type CorruptionError struct {
	Ref    Ref
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("arena: corruption at ref %d: %s", e.Ref, e.Reason)
}

// Ref is an unsigned byte offset into the backing file or arena. It is
// always 8-byte aligned. Zero means "no child".
type Ref uint64

// Tagged refs carry an inline integer in their low bit instead of
// pointing at a node; consumers must check IsTagged before calling
// Translate.
const tagBit Ref = 1

// Tag packs a small signed integer into a tagged Ref.
func Tag(v int64) Ref {
	return Ref(uint64(v)<<1) | tagBit
}

// Untag extracts the integer packed into a tagged Ref.
func Untag(r Ref) int64 {
	return int64(r) >> 1
}

// IsTagged reports whether r carries an inline value rather than
// pointing at a node.
func IsTagged(r Ref) bool {
	return r&tagBit != 0
}

// Stats is a snapshot of an Arena's layout, used by S1's "no growth on a
// no-op second commit" check and by cmd/arkdb's `stat` subcommand.
type Stats struct {
	FileSize     uint64
	WritableFrom uint64
	FreeBytes    uint64
}

// Arena is the allocator contract described in spec.md §4.1.
type Arena interface {
	// Translate maps ref to an in-memory byte slice of length size.
	// It never fails for refs inside the mapped region.
	Translate(ref Ref, size int) []byte

	// Alloc returns a naturally aligned block of at least size bytes.
	Alloc(size int) (Ref, []byte, error)

	// Realloc grows or shrinks the block at ref; it may return a
	// different ref. The old region becomes candidate-free.
	Realloc(ref Ref, oldSize, newSize int) (Ref, []byte, error)

	// Free marks size bytes at ref as free-at-current-version.
	Free(ref Ref, size int, version uint64)

	// IsReadOnly reports whether ref lies below the committed top,
	// i.e. whether a copy-on-write clone is needed before mutation.
	IsReadOnly(ref Ref) bool

	// CommittedTop returns the current read-only/writable boundary.
	CommittedTop() Ref

	// Freelist exposes the in-memory freelist for commit-time
	// serialization into the Group's free-* columns.
	Freelist() *Freelist

	// Stats reports the current layout.
	Stats() Stats

	// Close releases any OS resources (mapped memory, file handles).
	Close() error
}

// FileArena memory-maps a real data file and grows it on demand.
type FileArena struct {
	f            *os.File
	m            mmap.MMap
	fileSize     uint64 // size of the mapping
	committedTop Ref    // refs below this are read-only
	freelist     Freelist
}

// OpenFile opens (creating if necessary) the data file at path and maps
// it. initialTop is the committed top ref read from the coordination
// file; refs at or above it are writable.
func OpenFile(path string, initialTop Ref) (*FileArena, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("arena: open %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("arena: stat %q: %w", path, err)
	}
	size := fi.Size()
	if size < headerSize {
		if err := f.Truncate(headerSize); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("arena: truncate %q: %w", path, err)
		}
		size = headerSize
		if err := writeHeader(f); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("arena: mmap %q: %w", path, err)
	}
	a := &FileArena{f: f, m: m, fileSize: uint64(size), committedTop: initialTop}
	return a, nil
}

func writeHeader(f *os.File) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], fileMagic[:])
	_, err := f.WriteAt(buf, 0)
	return err
}

func (a *FileArena) Translate(ref Ref, size int) []byte {
	off := uint64(ref)
	end := off + uint64(size)
	if end > uint64(len(a.m)) {
		// Caller is reading past the current mapping; re-translate
		// after a grow. This indicates a stale address, not
		// corruption by itself, so return nil and let the caller
		// decide how to treat it.
		return nil
	}
	return a.m[off:end]
}

func (a *FileArena) Alloc(size int) (Ref, []byte, error) {
	need := alignUp(size)
	ref := Ref(a.fileSize)
	newSize := a.fileSize + uint64(need)
	if err := a.grow(newSize); err != nil {
		return 0, nil, err
	}
	return ref, a.Translate(ref, size), nil
}

func (a *FileArena) grow(newSize uint64) error {
	if newSize <= uint64(len(a.m)) {
		a.fileSize = newSize
		return nil
	}
	// Grow geometrically to amortize remaps, but never below what's
	// requested.
	target := uint64(len(a.m)) * 2
	if target < newSize {
		target = newSize
	}
	if err := a.m.Unmap(); err != nil {
		return fmt.Errorf("arena: unmap for grow: %w", err)
	}
	if err := a.f.Truncate(int64(target)); err != nil {
		return fmt.Errorf("%w: truncate: %v", ErrOutOfSpace, err)
	}
	m, err := mmap.Map(a.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: remap: %v", ErrOutOfSpace, err)
	}
	a.m = m
	a.fileSize = newSize
	return nil
}

func (a *FileArena) Realloc(ref Ref, oldSize, newSize int) (Ref, []byte, error) {
	newRef, buf, err := a.Alloc(newSize)
	if err != nil {
		return 0, nil, err
	}
	if oldSize > 0 {
		old := a.Translate(ref, oldSize)
		copy(buf, old)
	}
	return newRef, buf, nil
}

func (a *FileArena) Free(ref Ref, size int, version uint64) {
	if a.IsReadOnly(ref) {
		// The physical bytes are still visible to old snapshots;
		// just record the region, don't touch the file.
		a.freelist.Add(ref, alignUp(size), version)
		return
	}
	a.freelist.Add(ref, alignUp(size), version)
}

func (a *FileArena) IsReadOnly(ref Ref) bool {
	return ref < a.committedTop
}

func (a *FileArena) CommittedTop() Ref { return a.committedTop }

// PublishTop moves the read-only/writable boundary forward; called by
// the transaction manager immediately after a commit is durable.
func (a *FileArena) PublishTop(top Ref) { a.committedTop = top }

func (a *FileArena) Freelist() *Freelist { return &a.freelist }

func (a *FileArena) Stats() Stats {
	return Stats{
		FileSize:     a.fileSize,
		WritableFrom: uint64(a.committedTop),
		FreeBytes:    a.freelist.TotalBytes(),
	}
}

func (a *FileArena) Flush() error {
	return a.m.Flush()
}

func (a *FileArena) Close() error {
	if a.m != nil {
		if err := a.m.Unmap(); err != nil {
			return err
		}
	}
	return a.f.Close()
}

// MemArena is an anonymous, non-file-backed arena used for MemOnly
// durability: there is nothing to mmap, so it is a plain growable slice.
type MemArena struct {
	buf          []byte
	committedTop Ref
	freelist     Freelist
}

// NewMem creates an empty in-memory arena with the file header already
// reserved.
func NewMem() *MemArena {
	buf := make([]byte, headerSize)
	copy(buf[0:4], fileMagic[:])
	return &MemArena{buf: buf}
}

func (a *MemArena) Translate(ref Ref, size int) []byte {
	off := uint64(ref)
	end := off + uint64(size)
	if end > uint64(len(a.buf)) {
		return nil
	}
	return a.buf[off:end]
}

func (a *MemArena) Alloc(size int) (Ref, []byte, error) {
	need := alignUp(size)
	ref := Ref(len(a.buf))
	a.buf = append(a.buf, make([]byte, need)...)
	return ref, a.Translate(ref, size), nil
}

func (a *MemArena) Realloc(ref Ref, oldSize, newSize int) (Ref, []byte, error) {
	newRef, buf, err := a.Alloc(newSize)
	if err != nil {
		return 0, nil, err
	}
	if oldSize > 0 {
		copy(buf, a.Translate(ref, oldSize))
	}
	return newRef, buf, nil
}

func (a *MemArena) Free(ref Ref, size int, version uint64) {
	a.freelist.Add(ref, alignUp(size), version)
}

func (a *MemArena) IsReadOnly(ref Ref) bool { return ref < a.committedTop }
func (a *MemArena) CommittedTop() Ref       { return a.committedTop }
func (a *MemArena) PublishTop(top Ref)      { a.committedTop = top }
func (a *MemArena) Freelist() *Freelist     { return &a.freelist }

func (a *MemArena) Stats() Stats {
	return Stats{
		FileSize:     uint64(len(a.buf)),
		WritableFrom: uint64(a.committedTop),
		FreeBytes:    a.freelist.TotalBytes(),
	}
}

func (a *MemArena) Close() error { return nil }

func alignUp(size int) int {
	if size <= 0 {
		size = align
	}
	return (size + align - 1) &^ (align - 1)
}
