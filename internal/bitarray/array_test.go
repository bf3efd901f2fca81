package bitarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/arena"
)

func TestArrayAddGetRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)

	for _, v := range []uint64{0, 1, 2, 3, 255, 65535} {
		require.NoError(t, a.Add(v))
	}
	for i, want := range []uint64{0, 1, 2, 3, 255, 65535} {
		assert.Equal(t, want, a.Get(i))
	}
	assert.Equal(t, 6, a.Len())
}

func TestArrayWidthZeroWhenAllZero(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Add(0))
	}
	assert.Equal(t, uint8(0), a.Width())
	assert.Equal(t, 5, a.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint64(0), a.Get(i))
	}
}

func TestArrayWidensWhenLargeValueAdded(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Add(1))
	assert.Equal(t, uint8(1), a.Width())
	require.NoError(t, a.Add(1000))
	assert.Equal(t, uint8(16), a.Width())
	assert.Equal(t, uint64(1), a.Get(0))
	assert.Equal(t, uint64(1000), a.Get(1))
}

func TestArraySignedRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)

	values := []int64{0, -1, 42, -42, 127, -128, 1 << 20, -(1 << 20)}
	for _, v := range values {
		require.NoError(t, a.Add(EncodeSigned(v)))
	}
	for i, want := range values {
		assert.Equal(t, want, a.GetSigned(i), "index %d", i)
	}
}

func TestArraySetWidensInPlace(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Add(1))
	require.NoError(t, a.Add(2))
	require.NoError(t, a.Set(0, 1<<40))
	assert.Equal(t, uint64(1<<40), a.Get(0))
	assert.Equal(t, uint64(2), a.Get(1))
}

func TestArrayInsertMidAndShift(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []uint64{10, 20, 30} {
		require.NoError(t, a.Add(v))
	}
	require.NoError(t, a.Insert(1, 99))
	assert.Equal(t, []uint64{10, 99, 20, 30}, collect(a))
}

func TestArrayInsertWideningMidAndShift(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []uint64{1, 2, 3} {
		require.NoError(t, a.Add(v))
	}
	require.NoError(t, a.Insert(1, 1<<20))
	assert.Equal(t, []uint64{1, 1 << 20, 2, 3}, collect(a))
}

func TestArrayEraseShiftsLeft(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []uint64{10, 20, 30, 40} {
		require.NoError(t, a.Add(v))
	}
	require.NoError(t, a.Erase(1))
	assert.Equal(t, []uint64{10, 30, 40}, collect(a))
}

func TestArrayLinearRoundTripAgainstVector(t *testing.T) {
	// Property: a long sequence of Add/Insert/Erase must match an
	// ordinary Go slice performing the same operations.
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)

	var model []uint64
	ops := []struct {
		insert bool
		idx    int
		v      uint64
	}{
		{true, 0, 5}, {true, 1, 15}, {true, 0, 1}, {true, 3, 99},
		{true, 2, 1 << 30}, {false, 1, 0}, {true, 2, 7},
	}
	for _, op := range ops {
		if op.insert {
			require.NoError(t, a.Insert(op.idx, op.v))
			model = append(model[:op.idx], append([]uint64{op.v}, model[op.idx:]...)...)
		} else {
			require.NoError(t, a.Erase(op.idx))
			model = append(model[:op.idx], model[op.idx+1:]...)
		}
	}
	assert.Equal(t, model, collect(a))
}

func TestArrayTruncate(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []uint64{1, 2, 3, 4} {
		require.NoError(t, a.Add(v))
	}
	require.NoError(t, a.Truncate(2))
	assert.Equal(t, []uint64{1, 2}, collect(a))
}

func TestArrayClearCollapsesToWidthZero(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Add(12345))
	require.NoError(t, a.Clear())
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, uint8(0), a.Width())
}

func TestArrayEnsureWritableClonesReadOnlyNode(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Add(1))
	oldRef := a.Ref()

	ar.PublishTop(oldRef + 1024)

	var relocated arena.Ref
	a.SetOnRelocate(func(newRef arena.Ref) { relocated = newRef })
	require.NoError(t, a.Set(0, 2))

	assert.NotEqual(t, oldRef, a.Ref())
	assert.Equal(t, a.Ref(), relocated)
	assert.Equal(t, uint64(2), a.Get(0))
}

func TestArrayAttachRoundTrip(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, true, true)
	require.NoError(t, err)
	require.NoError(t, a.Add(10))
	require.NoError(t, a.Add(20))
	ref := a.Ref()

	a2, err := Attach(ar, ref)
	require.NoError(t, err)
	assert.True(t, a2.IsInner())
	assert.True(t, a2.HasRefs())
	assert.Equal(t, 2, a2.Len())
	assert.Equal(t, uint64(10), a2.Get(0))
	assert.Equal(t, uint64(20), a2.Get(1))
}

func TestArrayFindFirstAndFindAllAndCount(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []uint64{1, 2, 1, 3, 1} {
		require.NoError(t, a.Add(v))
	}
	assert.Equal(t, 0, a.FindFirst(1, 0, 5))
	assert.Equal(t, []int{0, 2, 4}, a.FindAll(1, 0, 5, nil))
	assert.Equal(t, 3, a.Count(1))
	assert.Equal(t, -1, a.FindFirst(99, 0, 5))
}

func TestArraySumAndMinMax(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []int64{-5, 10, 3, -2} {
		require.NoError(t, a.Add(EncodeSigned(v)))
	}
	assert.Equal(t, int64(6), a.Sum(0, 4))
	min, max, ok := a.MinMax(0, 4)
	require.True(t, ok)
	assert.Equal(t, int64(-5), min)
	assert.Equal(t, int64(10), max)
}

func TestArrayMinMaxEmptyRange(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	_, _, ok := a.MinMax(0, 0)
	assert.False(t, ok)
}

func TestArrayLowerUpperBound(t *testing.T) {
	ar := arena.NewMem()
	a, err := New(ar, false, false)
	require.NoError(t, err)
	for _, v := range []int64{1, 3, 3, 5, 7} {
		require.NoError(t, a.Add(EncodeSigned(v)))
	}
	assert.Equal(t, 1, a.LowerBound(3))
	assert.Equal(t, 3, a.UpperBound(3))
	assert.Equal(t, 0, a.LowerBound(0))
	assert.Equal(t, 5, a.UpperBound(100))
}

func collect(a *Array) []uint64 {
	out := make([]uint64, a.Len())
	for i := range out {
		out[i] = a.Get(i)
	}
	return out
}
