package strix

import (
	"encoding/binary"
	"fmt"

	"arkdb/internal/arena"
	"arkdb/internal/bitarray"
)

// inlineThreshold and columnThreshold are the match-set-size cutoffs of
// SPEC_FULL.md §6.4. A key's first match is stored inline in its values
// slot and later matches go into a row-index Array. A row-index Array
// whose key still has bytes left is split into a sub-index once it holds
// inlineThreshold matches. Once it holds more than columnThreshold
// matches its slot is retagged tagColumn; the storage stays the same
// row-index bitarray.Array (no IntColumn is built).
const inlineThreshold = 4
const columnThreshold = 64

// valueTag distinguishes what a values-array slot holds.
type valueTag uint8

const (
	tagInline  valueTag = iota // a single row index, stored directly (spec.md §4.4 tier 1)
	tagRows                    // ref to a small bitarray.Array of row indices (tier 2)
	tagColumn                  // ref to a row-index bitarray.Array of more than columnThreshold matches (tier 3)
	tagSubIndex                // ref to a sub-index, recursing on the next 4 key bytes (tier 4)
)

// Index is the radix search structure of spec.md §4.4: each node has an
// offsets Array (sorted 32-bit key chunks) and a parallel values Array
// whose entries recurse on the next 4 bytes of the key, or terminate in
// a row-index match set.
type Index struct {
	ar   arena.Arena
	root *indexNode
}

// indexNode is one radix node: a 3-element container Array holding refs
// to [offsets, tags, values], so the whole node is addressable by a
// single ref (the container's), matching spec.md §4.4's "a ref to a
// sub-index".
type indexNode struct {
	ar        arena.Arena
	container *bitarray.Array
	offsets   *bitarray.Array // width 32, sorted
	tags      *bitarray.Array // width 8, parallel to offsets: valueTag
	values    *bitarray.Array // width 64 (ref or small int), parallel to offsets
}

// NewIndex creates an empty search index.
func NewIndex(ar arena.Arena) (*Index, error) {
	root, err := newIndexNode(ar)
	if err != nil {
		return nil, err
	}
	return &Index{ar: ar, root: root}, nil
}

// AttachIndex wraps an existing on-disk search index rooted at ref.
func AttachIndex(ar arena.Arena, ref bitarray.Ref) (*Index, error) {
	root, err := attachNode(ar, ref)
	if err != nil {
		return nil, err
	}
	return &Index{ar: ar, root: root}, nil
}

// Ref returns the index's root ref, to be stored by the owning column.
func (ix *Index) Ref() bitarray.Ref { return ix.root.ref() }

func newIndexNode(ar arena.Arena) (*indexNode, error) {
	offsets, err := bitarray.New(ar, false, false)
	if err != nil {
		return nil, err
	}
	tags, err := bitarray.New(ar, false, false)
	if err != nil {
		return nil, err
	}
	values, err := bitarray.New(ar, false, true)
	if err != nil {
		return nil, err
	}
	container, err := bitarray.New(ar, false, true)
	if err != nil {
		return nil, err
	}
	if err := container.Add(uint64(offsets.Ref())); err != nil {
		return nil, err
	}
	if err := container.Add(uint64(tags.Ref())); err != nil {
		return nil, err
	}
	if err := container.Add(uint64(values.Ref())); err != nil {
		return nil, err
	}
	n := &indexNode{ar: ar, container: container, offsets: offsets, tags: tags, values: values}
	n.wireRelocation()
	return n, nil
}

// wireRelocation keeps the container's three refs current whenever a
// component array copy-on-writes into a fresh allocation, so the node
// stays addressable by container.Ref() alone.
func (n *indexNode) wireRelocation() {
	n.offsets.SetOnRelocate(func(newRef bitarray.Ref) { n.patchContainer(0, newRef) })
	n.tags.SetOnRelocate(func(newRef bitarray.Ref) { n.patchContainer(1, newRef) })
	n.values.SetOnRelocate(func(newRef bitarray.Ref) { n.patchContainer(2, newRef) })
}

func (n *indexNode) patchContainer(slot int, newRef bitarray.Ref) {
	if err := n.container.SetRef(slot, newRef); err != nil {
		panic(fmt.Sprintf("strix: patch container slot %d: %v", slot, err))
	}
}

// KeyBytesInt returns the canonical big-endian byte key used to index an
// integer value.
func KeyBytesInt(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

// KeyBytesString returns the canonical UTF-8 byte key used to index a
// string value.
func KeyBytesString(s string) []byte { return []byte(s) }

// Insert adds row as a match for key.
func (ix *Index) Insert(key []byte, row int) error {
	return ix.root.insert(key, row)
}

func chunk4(key []byte) uint32 {
	var b [4]byte
	copy(b[:], key)
	return binary.BigEndian.Uint32(b[:])
}

func (n *indexNode) insert(key []byte, row int) error {
	prefix := chunk4(key)
	rest := keyTail(key)
	hasMore := len(rest) > 0
	k := n.lowerBound(prefix)
	if k < n.offsets.Len() && n.offsets.Get(k) == uint64(prefix) {
		return n.insertInto(k, prefix, rest, hasMore, row)
	}
	return n.insertNew(k, prefix, rest, hasMore, row)
}

func keyTail(key []byte) []byte {
	if len(key) <= 4 {
		return nil
	}
	return key[4:]
}

func (n *indexNode) insertInto(k int, prefix uint32, rest []byte, hasMore bool, row int) error {
	tag := valueTag(n.tags.Get(k))
	switch tag {
	case tagInline:
		first := int(arena.Untag(arena.Ref(n.values.Get(k))))
		rows, err := bitarray.New(n.ar, false, false)
		if err != nil {
			return err
		}
		if err := rows.Add(uint64(first)); err != nil {
			return err
		}
		if err := rows.Add(uint64(row)); err != nil {
			return err
		}
		if err := n.tags.Set(k, uint64(tagRows)); err != nil {
			return err
		}
		return n.values.Set(k, uint64(rows.Ref()))
	case tagSubIndex:
		sub, err := attachNode(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return err
		}
		if err := sub.insert(rest, row); err != nil {
			return err
		}
		return n.values.Set(k, uint64(sub.ref()))
	case tagRows:
		rows, err := bitarray.Attach(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return err
		}
		if hasMore && rows.Len() >= inlineThreshold {
			sub, err := newIndexNode(n.ar)
			if err != nil {
				return err
			}
			for i := 0; i < rows.Len(); i++ {
				if err := sub.insert(rest, int(rows.Get(i))); err != nil {
					return err
				}
			}
			if err := sub.insert(rest, row); err != nil {
				return err
			}
			if err := n.tags.Set(k, uint64(tagSubIndex)); err != nil {
				return err
			}
			return n.values.Set(k, uint64(sub.ref()))
		}
		if err := rows.Add(uint64(row)); err != nil {
			return err
		}
		if rows.Len() > columnThreshold {
			if err := n.tags.Set(k, uint64(tagColumn)); err != nil {
				return err
			}
		}
		return n.values.Set(k, uint64(rows.Ref()))
	case tagColumn:
		rows, err := bitarray.Attach(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return err
		}
		if err := rows.Add(uint64(row)); err != nil {
			return err
		}
		return n.values.Set(k, uint64(rows.Ref()))
	default:
		return fmt.Errorf("strix: unknown value tag %d", tag)
	}
}

func (n *indexNode) insertNew(k int, prefix uint32, rest []byte, hasMore bool, row int) error {
	tag, value := tagInline, uint64(arena.Tag(int64(row)))
	if hasMore {
		// A key with bytes past this chunk gets its own sub-index, so keys
		// that differ only after their first 4 bytes keep separate matches.
		sub, err := newIndexNode(n.ar)
		if err != nil {
			return err
		}
		if err := sub.insert(rest, row); err != nil {
			return err
		}
		tag, value = tagSubIndex, uint64(sub.ref())
	}
	if err := n.offsets.Insert(k, uint64(prefix)); err != nil {
		return err
	}
	if err := n.tags.Insert(k, uint64(tag)); err != nil {
		return err
	}
	return n.values.Insert(k, value)
}

// ref returns the node's single canonical ref (the container's).
func (n *indexNode) ref() bitarray.Ref { return n.container.Ref() }

func attachNode(ar arena.Arena, ref bitarray.Ref) (*indexNode, error) {
	container, err := bitarray.Attach(ar, ref)
	if err != nil {
		return nil, err
	}
	offsets, err := bitarray.Attach(ar, container.GetRef(0))
	if err != nil {
		return nil, err
	}
	tags, err := bitarray.Attach(ar, container.GetRef(1))
	if err != nil {
		return nil, err
	}
	values, err := bitarray.Attach(ar, container.GetRef(2))
	if err != nil {
		return nil, err
	}
	n := &indexNode{ar: ar, container: container, offsets: offsets, tags: tags, values: values}
	n.wireRelocation()
	return n, nil
}

func (n *indexNode) lowerBound(prefix uint32) int {
	lo, hi := 0, n.offsets.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		if n.offsets.Get(mid) < uint64(prefix) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Remove drops row as a match for key. It is used to keep an index
// coherent with a column mutation (a Set overwriting row's value, or a
// row renumbering from move_last_over/swap_rows/remove) rather than to
// expose deletion as a query-layer primitive. A no-op if key/row isn't
// currently indexed.
func (ix *Index) Remove(key []byte, row int) error {
	return ix.root.remove(key, row)
}

func (n *indexNode) remove(key []byte, row int) error {
	prefix := chunk4(key)
	rest := keyTail(key)
	hasMore := len(rest) > 0
	k := n.lowerBound(prefix)
	if k >= n.offsets.Len() || n.offsets.Get(k) != uint64(prefix) {
		return nil
	}
	tag := valueTag(n.tags.Get(k))
	switch tag {
	case tagInline:
		if int(arena.Untag(arena.Ref(n.values.Get(k)))) != row {
			return nil
		}
		return n.eraseEntry(k)
	case tagSubIndex:
		if !hasMore {
			return nil
		}
		sub, err := attachNode(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return err
		}
		if err := sub.remove(rest, row); err != nil {
			return err
		}
		return n.values.Set(k, uint64(sub.ref()))
	case tagRows, tagColumn:
		rows, err := bitarray.Attach(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return err
		}
		pos := -1
		for r := 0; r < rows.Len(); r++ {
			if int(rows.Get(r)) == row {
				pos = r
				break
			}
		}
		if pos < 0 {
			return nil
		}
		if err := rows.Erase(pos); err != nil {
			return err
		}
		if rows.Len() == 0 {
			return n.eraseEntry(k)
		}
		return n.values.Set(k, uint64(rows.Ref()))
	default:
		return fmt.Errorf("strix: unknown value tag %d", tag)
	}
}

// eraseEntry drops the offsets/tags/values triple at position k
// entirely, once its match set has gone empty.
func (n *indexNode) eraseEntry(k int) error {
	if err := n.offsets.Erase(k); err != nil {
		return err
	}
	if err := n.tags.Erase(k); err != nil {
		return err
	}
	return n.values.Erase(k)
}

// FindAll returns every row matching key.
func (ix *Index) FindAll(key []byte) ([]int, error) {
	return ix.root.findAll(key)
}

func (n *indexNode) findAll(key []byte) ([]int, error) {
	prefix := chunk4(key)
	rest := keyTail(key)
	hasMore := len(rest) > 0
	k := n.lowerBound(prefix)
	if k >= n.offsets.Len() || n.offsets.Get(k) != uint64(prefix) {
		return nil, nil
	}
	tag := valueTag(n.tags.Get(k))
	switch tag {
	case tagInline:
		return []int{int(arena.Untag(arena.Ref(n.values.Get(k))))}, nil
	case tagSubIndex:
		sub, err := attachNode(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return nil, err
		}
		if !hasMore {
			return nil, nil
		}
		return sub.findAll(rest)
	case tagRows, tagColumn:
		rows, err := bitarray.Attach(n.ar, bitarray.Ref(n.values.Get(k)))
		if err != nil {
			return nil, err
		}
		out := make([]int, rows.Len())
		for i := range out {
			out[i] = int(rows.Get(i))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("strix: unknown value tag %d", tag)
	}
}

// FindFirst returns the first matching row, or -1.
func (ix *Index) FindFirst(key []byte) (int, error) {
	rows, err := ix.FindAll(key)
	if err != nil || len(rows) == 0 {
		return -1, err
	}
	return rows[0], nil
}

// Count returns the number of rows matching key.
func (ix *Index) Count(key []byte) (int, error) {
	rows, err := ix.FindAll(key)
	return len(rows), err
}
