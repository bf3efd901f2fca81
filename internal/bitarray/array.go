// Package bitarray implements Array (C2): the single bit-packed B-tree
// node that is the universal storage primitive of arkdb. Every higher
// structure — typed columns, tables, groups — is built from Arrays.
package bitarray

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"arkdb/internal/arena"
)

// Ref re-exports arena.Ref so callers of this package rarely need to
// import arena directly.
type Ref = arena.Ref

// headerSize is the fixed 8-byte header described in spec.md §3.
const headerSize = 8

// widthCodes maps the wire-format 3-bit width code to an actual bit
// width, and back. Index 0 is width 0 (every element is zero and no
// payload bytes are stored at all — ported from
// original_source/src/tightdb/array.cpp's all-equal fast path).
var widthCodes = [8]uint8{0, 1, 2, 4, 8, 16, 32, 64}

func widthToCode(w uint8) uint8 {
	for c, ww := range widthCodes {
		if ww == w {
			return uint8(c)
		}
	}
	panic(fmt.Sprintf("bitarray: invalid width %d", w))
}

// state is the observable accessor lifecycle from spec.md §4.2.
type state int

const (
	stateUnattached state = iota
	stateReadOnly
	stateWritable
)

// Array is an accessor over one bit-packed node. It is not safe for
// concurrent use; callers serialize access the same way the rest of the
// engine does (single writer, many readers each with their own
// accessors over their own snapshot).
type Array struct {
	ar    arena.Arena
	ref   Ref
	state state

	isInner  bool
	hasRefs  bool
	hasIndex bool
	width    uint8
	length   int

	// onRelocate, if set, is invoked whenever EnsureWritable or Widen
	// allocates a new ref for this node, so the caller (a parent Array,
	// a Column, a Table spec slot) can update its own child ref. This
	// is the back-reference discipline of spec.md §3 "Lifecycle" and
	// §9's "Cyclic graph problem" design note.
	onRelocate func(newRef Ref)
}

// Header describes the decoded 8-byte node header.
type Header struct {
	IsInner  bool
	HasRefs  bool
	HasIndex bool
	Width    uint8
	Length   int
}

func decodeHeader(buf []byte) Header {
	flags := buf[0]
	widthCode := buf[1]
	length := binary.LittleEndian.Uint32(buf[4:8])
	return Header{
		IsInner:  flags&0x1 != 0,
		HasRefs:  flags&0x2 != 0,
		HasIndex: flags&0x4 != 0,
		Width:    widthCodes[widthCode&0x7],
		Length:   int(length),
	}
}

func encodeHeader(buf []byte, h Header) {
	var flags byte
	if h.IsInner {
		flags |= 0x1
	}
	if h.HasRefs {
		flags |= 0x2
	}
	if h.HasIndex {
		flags |= 0x4
	}
	buf[0] = flags
	buf[1] = widthToCode(h.Width)
	buf[2] = 0
	buf[3] = 0
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Length))
}

// payloadBytes returns ceil(length*width/8), the number of payload bytes
// actually in use (before padding to 8 bytes), per spec.md §3.
func payloadBytes(length int, width uint8) int {
	if width == 0 {
		return 0
	}
	bitsNeeded := length * int(width)
	return (bitsNeeded + 7) / 8
}

// capacityFor returns the total buffer size (header + payload, padded to
// a multiple of 8 bytes) needed to hold length elements of width bits.
func capacityFor(length int, width uint8) int {
	n := headerSize + payloadBytes(length, width)
	return (n + 7) &^ 7
}

// New creates a brand-new empty Array of the given shape.
func New(ar arena.Arena, isInner, hasRefs bool) (*Array, error) {
	h := Header{IsInner: isInner, HasRefs: hasRefs, Width: 0, Length: 0}
	size := capacityFor(0, 0)
	ref, buf, err := ar.Alloc(size)
	if err != nil {
		return nil, err
	}
	encodeHeader(buf, h)
	return &Array{ar: ar, ref: ref, isInner: isInner, hasRefs: hasRefs, width: 0, length: 0, state: stateWritable}, nil
}

// Attach wraps an existing on-disk node for reading. The accessor starts
// in attached-readonly state even if the node happens to lie in the
// writable region; call EnsureWritable before mutating.
func Attach(ar arena.Arena, ref Ref) (*Array, error) {
	hdrBuf := ar.Translate(ref, headerSize)
	if hdrBuf == nil {
		return nil, &arena.CorruptionError{Ref: ref, Reason: "header out of mapped range"}
	}
	h := decodeHeader(hdrBuf)
	total := capacityFor(h.Length, h.Width)
	if ar.Translate(ref, total) == nil {
		return nil, &arena.CorruptionError{Ref: ref, Reason: "payload out of mapped range"}
	}
	return &Array{
		ar: ar, ref: ref,
		isInner: h.IsInner, hasRefs: h.HasRefs, hasIndex: h.HasIndex,
		width: h.Width, length: h.Length, state: stateReadOnly,
	}, nil
}

// Ref returns the node's current ref. It changes across EnsureWritable /
// Widen calls that relocate the node.
func (a *Array) Ref() Ref { return a.ref }

// Len returns the logical element count.
func (a *Array) Len() int { return a.length }

// Width returns the current element bit width.
func (a *Array) Width() uint8 { return a.width }

// IsInner reports whether this node is a B-tree inner node.
func (a *Array) IsInner() bool { return a.isInner }

// HasRefs reports whether elements are interpreted as Refs.
func (a *Array) HasRefs() bool { return a.hasRefs }

// HasSearchIndex reports whether the owning column has attached a
// search index to this node's column (the bit is informational; the
// index itself lives alongside the column, not inside this node).
func (a *Array) HasSearchIndex() bool { return a.hasIndex }

// SetHasSearchIndex flips the informational bit and persists the header.
func (a *Array) SetHasSearchIndex(v bool) {
	a.hasIndex = v
	a.writeHeader()
}

func (a *Array) writeHeader() {
	encodeHeader(a.live(), Header{IsInner: a.isInner, HasRefs: a.hasRefs, HasIndex: a.hasIndex, Width: a.width, Length: a.length})
}

// capacity returns the node's current header+payload byte length.
func (a *Array) capacity() int { return capacityFor(a.length, a.width) }

// live re-translates the node's byte range through the arena on every
// call instead of caching it, since a sibling allocation elsewhere in
// the same arena can relocate (MemArena's append regrow) or remap
// (FileArena's grow, which Unmaps and re-Maps) the backing store
// without this node's own ref changing underneath it.
func (a *Array) live() []byte {
	b := a.ar.Translate(a.ref, a.capacity())
	if b == nil {
		panic(fmt.Sprintf("bitarray: ref %d not mapped at capacity %d", a.ref, a.capacity()))
	}
	return b
}

// SetOnRelocate installs the back-reference callback (spec.md §9).
func (a *Array) SetOnRelocate(fn func(newRef Ref)) { a.onRelocate = fn }

// Detach releases the accessor. It is a no-op on the underlying node;
// Arrays have no destructors of their own beyond what the owning
// Table/Group walk performs (spec.md §3 "Lifecycle").
func (a *Array) Detach() { a.state = stateUnattached }

// EnsureWritable clones the node into a fresh allocation if it currently
// lies in the arena's read-only region (copy-on-write, spec.md §3/§4.2).
// It is a no-op if the node is already writable.
func (a *Array) EnsureWritable() error {
	if a.state == stateWritable && !a.ar.IsReadOnly(a.ref) {
		return nil
	}
	if !a.ar.IsReadOnly(a.ref) {
		a.state = stateWritable
		return nil
	}
	size := a.capacity()
	old := a.live()
	newRef, newBuf, err := a.ar.Alloc(size)
	if err != nil {
		return err
	}
	copy(newBuf, old)
	oldRef := a.ref
	a.ref = newRef
	a.state = stateWritable
	a.ar.Free(oldRef, size, 0)
	if a.onRelocate != nil {
		a.onRelocate(newRef)
	}
	return nil
}

// Truncate shortens the array to exactly n elements (n <= Len()),
// keeping the current width. Used by the B-tree split paths where
// the wider collapse-to-width-0 behavior of Clear is not wanted.
func (a *Array) Truncate(n int) error {
	if n < 0 || n > a.length {
		panic(fmt.Sprintf("bitarray: truncate %d out of range [0,%d]", n, a.length))
	}
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	oldCap := a.capacity()
	a.length = n
	if err := a.resize(oldCap, a.capacity()); err != nil {
		return err
	}
	a.writeHeader()
	return nil
}

// Clear truncates the array to zero elements, collapsing to width 0.
func (a *Array) Clear() error {
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	oldCap := a.capacity()
	a.length = 0
	a.width = 0
	if err := a.resize(oldCap, a.capacity()); err != nil {
		return err
	}
	a.writeHeader()
	return nil
}

// resize reallocates the node's backing storage from oldCap to exactly
// newCap bytes (header included), preserving existing payload bytes.
// Callers must pass the capacity the node actually occupied before any
// of this call's length/width fields were updated, since that'd make
// capacity() recompute a size the node never actually had allocated.
func (a *Array) resize(oldCap, newCap int) error {
	if newCap == oldCap {
		return nil
	}
	newRef, newBuf, err := a.ar.Realloc(a.ref, oldCap, newCap)
	if err != nil {
		return err
	}
	if newCap > oldCap {
		// zero the newly extended tail (Realloc only guarantees the
		// old bytes were copied, not that the rest is zero).
		for i := oldCap; i < len(newBuf); i++ {
			newBuf[i] = 0
		}
	}
	if newRef != a.ref {
		a.ar.Free(a.ref, oldCap, 0)
	}
	a.ref = newRef
	if a.onRelocate != nil {
		a.onRelocate(newRef)
	}
	return nil
}

func (a *Array) payload() []byte { return a.live()[headerSize:] }

// Get returns the raw (unsigned, masked-to-width) value at index i.
func (a *Array) Get(i int) uint64 {
	if i < 0 || i >= a.length {
		panic(fmt.Sprintf("bitarray: index %d out of range [0,%d)", i, a.length))
	}
	if a.width == 0 {
		return 0
	}
	return getBits(a.payload(), i, a.width)
}

// GetSigned returns the value at index i sign-extended from its stored
// width, for columns that interpret elements as signed integers.
func (a *Array) GetSigned(i int) int64 {
	v := a.Get(i)
	w := a.width
	if w == 0 || w == 64 {
		return int64(v)
	}
	signBit := uint64(1) << (w - 1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<w)
	}
	return int64(v)
}

// GetRef returns element i interpreted as a Ref; callers must check
// arena.IsTagged(result) before dereferencing, per spec.md §3.
func (a *Array) GetRef(i int) Ref {
	if !a.hasRefs {
		panic("bitarray: GetRef on array without refs")
	}
	return Ref(a.Get(i))
}

// SetRef sets element i to a Ref (or tagged inline value).
func (a *Array) SetRef(i int, r Ref) error {
	if !a.hasRefs {
		panic("bitarray: SetRef on array without refs")
	}
	return a.Set(i, uint64(r))
}

// Set overwrites element i, widening the node first if v doesn't fit in
// the current width (spec.md §4.2 "Width selection").
func (a *Array) Set(i int, v uint64) error {
	if i < 0 || i >= a.length {
		panic(fmt.Sprintf("bitarray: index %d out of range [0,%d)", i, a.length))
	}
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	need := widthFor(v)
	if need > a.width {
		if err := a.widen(need); err != nil {
			return err
		}
	}
	if a.width == 0 {
		// Every existing element already equals v (that's the only way
		// width can be 0 with length>0); nothing to store.
		return nil
	}
	setBits(a.payload(), i, a.width, v)
	return nil
}

// SetSigned is Set for a caller holding a signed value.
func (a *Array) SetSigned(i int, v int64) error {
	return a.Set(i, encodeSigned(v))
}

// EncodeSigned exposes the signed-to-raw encoding used by SetSigned, for
// callers (internal/column's BTree-level signed helpers) that need to
// pre-encode a value before handing it to a raw uint64 API such as
// BTree.Insert.
func EncodeSigned(v int64) uint64 { return encodeSigned(v) }

func encodeSigned(v int64) uint64 {
	w := widthForSigned(v)
	if w == 64 {
		return uint64(v)
	}
	return uint64(v) & ((uint64(1) << w) - 1)
}

// widthForSigned returns the minimal power-of-two width (capped at 64)
// that can represent v in two's complement.
func widthForSigned(v int64) uint8 {
	if v >= 0 {
		return widthFor(uint64(v))
	}
	u := uint64(^v) // bitwise complement of a negative number: magnitude-ish bound
	need := bits.Len64(u) + 1
	return roundWidth(need)
}

// widthFor returns the minimal power-of-two width (capped at 64) that
// can represent the unsigned value v.
func widthFor(v uint64) uint8 {
	if v == 0 {
		return 0
	}
	return roundWidth(bits.Len64(v))
}

func roundWidth(bitsNeeded int) uint8 {
	switch {
	case bitsNeeded <= 0:
		return 0
	case bitsNeeded <= 1:
		return 1
	case bitsNeeded <= 2:
		return 2
	case bitsNeeded <= 4:
		return 4
	case bitsNeeded <= 8:
		return 8
	case bitsNeeded <= 16:
		return 16
	case bitsNeeded <= 32:
		return 32
	default:
		return 64
	}
}

// widen rewrites the whole payload at a wider bit width, copying every
// element through the old-width getter and the new-width setter, per
// spec.md §4.2.
func (a *Array) widen(newWidth uint8) error {
	old := make([]uint64, a.length)
	for i := 0; i < a.length; i++ {
		old[i] = a.Get(i)
	}
	oldCap := a.capacity()
	newCap := capacityFor(a.length, newWidth)
	if err := a.resize(oldCap, newCap); err != nil {
		return err
	}
	a.width = newWidth
	payload := a.payload()
	for i := range payload {
		payload[i] = 0
	}
	for i, v := range old {
		setBits(payload, i, newWidth, v)
	}
	a.writeHeader()
	return nil
}

// Add appends v, growing the node by one element.
func (a *Array) Add(v uint64) error {
	return a.Insert(a.length, v)
}

// Insert inserts v at index i, shifting subsequent elements right.
func (a *Array) Insert(i int, v uint64) error {
	if i < 0 || i > a.length {
		panic(fmt.Sprintf("bitarray: insert index %d out of range [0,%d]", i, a.length))
	}
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	need := widthFor(v)
	newWidth := a.width
	if need > newWidth {
		newWidth = need
	}
	newLength := a.length + 1
	newCap := capacityFor(newLength, newWidth)
	if newWidth != a.width {
		old := make([]uint64, a.length)
		for j := 0; j < a.length; j++ {
			old[j] = a.Get(j)
		}
		oldCap := a.capacity()
		if err := a.resize(oldCap, newCap); err != nil {
			return err
		}
		a.width = newWidth
		a.length = newLength
		payload := a.payload()
		for j := range payload {
			payload[j] = 0
		}
		// Re-lay-out with the gap at i.
		dst := 0
		for src := 0; src < len(old)+1; src++ {
			if src == i {
				setBits(payload, dst, newWidth, v)
				dst++
				continue
			}
			srcIdx := src
			if src > i {
				srcIdx = src - 1
			}
			if srcIdx < len(old) {
				setBits(payload, dst, newWidth, old[srcIdx])
				dst++
			}
		}
		a.writeHeader()
		return nil
	}
	if err := a.resize(a.capacity(), newCap); err != nil {
		return err
	}
	a.length = newLength
	if a.width > 0 {
		payload := a.payload()
		shiftRight(payload, i, a.length, a.width)
		setBits(payload, i, a.width, v)
	}
	a.writeHeader()
	return nil
}

// Erase removes the element at index i, shifting subsequent elements
// left by one.
func (a *Array) Erase(i int) error {
	if i < 0 || i >= a.length {
		panic(fmt.Sprintf("bitarray: erase index %d out of range [0,%d)", i, a.length))
	}
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	if a.width > 0 {
		payload := a.payload()
		shiftLeft(payload, i, a.length, a.width)
	}
	oldCap := a.capacity()
	a.length--
	if err := a.resize(oldCap, a.capacity()); err != nil {
		return err
	}
	a.writeHeader()
	return nil
}

// shiftRight moves elements [i, n-1) one slot to the right, to open a
// gap at i in a payload already sized for n elements.
func shiftRight(payload []byte, i, n int, width uint8) {
	for j := n - 1; j > i; j-- {
		setBits(payload, j, width, getBits(payload, j-1, width))
	}
}

// shiftLeft moves elements [i+1, n) one slot to the left, closing the
// gap at i in a payload currently sized for n elements.
func shiftLeft(payload []byte, i, n int, width uint8) {
	for j := i; j < n-1; j++ {
		setBits(payload, j, width, getBits(payload, j+1, width))
	}
}
