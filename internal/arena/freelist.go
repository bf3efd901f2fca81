package arena

import "sort"

// entry is one (position, length, version) freelist record: a region
// freed at version that may be reused once no reader at or older than
// version remains live (spec.md §4.1 "Freelist policy").
type entry struct {
	pos     Ref
	length  int
	version uint64
}

// Freelist is the in-memory trio of columns described in spec.md §4.1.
// On commit it is serialized into the Group's free-position /
// free-length / free-version columns; entries older than the oldest
// live reader version are coalesced and reused.
type Freelist struct {
	entries []entry
}

// Add records a freed region.
func (f *Freelist) Add(pos Ref, length int, version uint64) {
	if length <= 0 {
		return
	}
	f.entries = append(f.entries, entry{pos: pos, length: length, version: version})
}

// TotalBytes sums every recorded region regardless of reclaimability.
func (f *Freelist) TotalBytes() uint64 {
	var total uint64
	for _, e := range f.entries {
		total += uint64(e.length)
	}
	return total
}

// Reclaimable returns the regions whose version is strictly older than
// oldestLiveVersion, i.e. safe to reuse because no live reader snapshot
// can still observe them.
func (f *Freelist) Reclaimable(oldestLiveVersion uint64) []struct {
	Pos    Ref
	Length int
} {
	var out []struct {
		Pos    Ref
		Length int
	}
	for _, e := range f.entries {
		if e.version < oldestLiveVersion {
			out = append(out, struct {
				Pos    Ref
				Length int
			}{e.pos, e.length})
		}
	}
	return out
}

// Entries returns every recorded region, for internal/group to persist
// into the free-position/free-length/free-version columns at commit.
func (f *Freelist) Entries() []struct {
	Pos     Ref
	Length  int
	Version uint64
} {
	out := make([]struct {
		Pos     Ref
		Length  int
		Version uint64
	}, len(f.entries))
	for i, e := range f.entries {
		out[i] = struct {
			Pos     Ref
			Length  int
			Version uint64
		}{e.pos, e.length, e.version}
	}
	return out
}

// Load replaces the freelist's contents, used when reattaching a Group
// from its persisted free-* columns after a reopen.
func (f *Freelist) Load(entries []struct {
	Pos     Ref
	Length  int
	Version uint64
}) {
	f.entries = f.entries[:0]
	for _, e := range entries {
		f.entries = append(f.entries, entry{pos: e.Pos, length: e.Length, version: e.Version})
	}
}

// Coalesce merges adjacent reclaimable regions and drops them from the
// freelist, returning the merged ranges for reuse by the allocator.
// Entries at or after oldestLiveVersion are retained untouched, since
// older snapshots may still be reading them.
func (f *Freelist) Coalesce(oldestLiveVersion uint64) []struct {
	Pos    Ref
	Length int
} {
	var reclaim []entry
	var keep []entry
	for _, e := range f.entries {
		if e.version < oldestLiveVersion {
			reclaim = append(reclaim, e)
		} else {
			keep = append(keep, e)
		}
	}
	sort.Slice(reclaim, func(i, j int) bool { return reclaim[i].pos < reclaim[j].pos })

	var merged []entry
	for _, e := range reclaim {
		if n := len(merged); n > 0 && uint64(merged[n-1].pos)+uint64(merged[n-1].length) == uint64(e.pos) {
			merged[n-1].length += e.length
			continue
		}
		merged = append(merged, e)
	}

	f.entries = keep
	out := make([]struct {
		Pos    Ref
		Length int
	}, len(merged))
	for i, e := range merged {
		out[i] = struct {
			Pos    Ref
			Length int
		}{e.pos, e.length}
	}
	return out
}

// Take removes and returns the first recorded region of at least size
// bytes after coalescing at oldestLiveVersion, or ok=false if none fits.
func (f *Freelist) Take(size int, oldestLiveVersion uint64) (pos Ref, length int, ok bool) {
	regions := f.Coalesce(oldestLiveVersion)
	for i, r := range regions {
		if r.Length >= size {
			// Put back everything except the consumed region.
			rest := append(regions[:i:i], regions[i+1:]...)
			if r.Length > size {
				rest = append(rest, struct {
					Pos    Ref
					Length int
				}{r.Pos + Ref(size), r.Length - size})
			}
			for _, rr := range rest {
				f.Add(rr.Pos, rr.Length, oldestLiveVersion)
			}
			return r.Pos, size, true
		}
	}
	for _, r := range regions {
		f.Add(r.Pos, r.Length, oldestLiveVersion)
	}
	return 0, 0, false
}

// Len reports the number of distinct recorded regions.
func (f *Freelist) Len() int { return len(f.entries) }
