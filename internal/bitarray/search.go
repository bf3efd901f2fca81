package bitarray

import "math/bits"

// Sum adds up the signed values in [from, to).
func (a *Array) Sum(from, to int) int64 {
	var total int64
	for i := from; i < to; i++ {
		total += a.GetSigned(i)
	}
	return total
}

// MinMax returns the signed minimum and maximum in [from, to). ok is
// false for an empty range.
func (a *Array) MinMax(from, to int) (min, max int64, ok bool) {
	if from >= to {
		return 0, 0, false
	}
	min, max = a.GetSigned(from), a.GetSigned(from)
	for i := from + 1; i < to; i++ {
		v := a.GetSigned(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

// Count returns the number of elements in [0, Len()) equal to v,
// dispatching to the vectorised population-count path for narrow widths
// per spec.md §4.2 "Search".
func (a *Array) Count(v uint64) int {
	if a.width == 0 {
		if a.length > 0 && v == 0 {
			return a.length
		}
		return 0
	}
	if a.width <= 8 {
		return countPacked(a.payload(), a.length, a.width, v)
	}
	n := 0
	for i := 0; i < a.length; i++ {
		if a.Get(i) == v {
			n++
		}
	}
	return n
}

// countPacked implements the popcount-based matching described in
// spec.md §4.2: each 64-bit word is XORed against a broadcast of the
// target, then a carry-free SWAR zero-lane test (a lane is all-zero,
// i.e. matched, exactly when neither ((x&low)+low) nor x sets its high
// bit, where low is every lane bit below the high one) turns "which
// lanes equal the target" into a single OnesCount64 call, after
// spill-over lanes beyond the logical length are masked off. A target
// wider than width matches nothing.
func countPacked(payload []byte, length int, width uint8, target uint64) int {
	laneMask := uint64(1)<<width - 1
	if target > laneMask {
		return 0
	}
	lanes := 64 / int(width)
	broadcastTarget := replicate(target, width, lanes)
	broadcastLow := replicate(laneMask>>1, width, lanes)
	broadcastHigh := replicate(uint64(1)<<(width-1), width, lanes)

	count := 0
	for base := 0; base < length; base += lanes {
		word := loadWord(payload, base, width)
		n := lanes
		if base+n > length {
			n = length - base
		}
		xored := word ^ broadcastTarget
		zeroLanes := ^(((xored & broadcastLow) + broadcastLow) | xored) & broadcastHigh
		if n < lanes {
			validMask := uint64(1)<<uint(width*n) - 1
			if width*n == 64 {
				validMask = ^uint64(0)
			}
			zeroLanes &= validMask
		}
		count += bits.OnesCount64(zeroLanes)
	}
	return count
}

// replicate packs v (assumed to already fit in width bits) into each of
// lanes equal-width lanes of a 64-bit word.
func replicate(v uint64, width uint8, lanes int) uint64 {
	var word uint64
	for i := 0; i < lanes; i++ {
		word |= v << uint(i*int(width))
	}
	return word
}

// loadWord reads up to 8 bytes starting at the byte offset for element
// base, zero-padding past the end of payload.
func loadWord(payload []byte, base int, width uint8) uint64 {
	byteOff := base * int(width) / 8
	var word uint64
	for k := 0; k < 8 && byteOff+k < len(payload); k++ {
		word |= uint64(payload[byteOff+k]) << uint(8*k)
	}
	return word
}

// FindFirst returns the first index in [from, to) whose value equals v,
// or -1. Ties among repeated matches resolve to the lowest index,
// matching the stable search order required by spec.md §4.2.
func (a *Array) FindFirst(v uint64, from, to int) int {
	for i := from; i < to; i++ {
		if a.Get(i) == v {
			return i
		}
	}
	return -1
}

// FindAll appends every index in [from, to) whose value equals v to out,
// in ascending (stable) order, and returns the extended slice.
func (a *Array) FindAll(v uint64, from, to int, out []int) []int {
	for i := from; i < to; i++ {
		if a.Get(i) == v {
			out = append(out, i)
		}
	}
	return out
}

// LowerBound returns the index of the first element >= v in a sorted
// (ascending, signed) array, or Len() if none.
func (a *Array) LowerBound(v int64) int {
	lo, hi := 0, a.length
	for lo < hi {
		mid := (lo + hi) / 2
		if a.GetSigned(mid) < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBound returns the index of the first element > v in a sorted
// (ascending, signed) array, or Len() if none.
func (a *Array) UpperBound(v int64) int {
	lo, hi := 0, a.length
	for lo < hi {
		mid := (lo + hi) / 2
		if a.GetSigned(mid) <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
