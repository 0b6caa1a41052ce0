package reuse

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/internal/testutil"
	"github.com/joshuapare/memkit/mem/raw"
)

func newTestAllocator(t *testing.T) (*Allocator, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder(t)
	a := New(rec, nil)
	t.Cleanup(func() {
		require.NoError(t, a.Close())
		require.Zero(t, rec.Outstanding(), "every reserved block must be released on Close")
	})
	return a, rec
}

func TestAllocator_StartsEmpty(t *testing.T) {
	a, _ := newTestAllocator(t)
	require.Zero(t, a.InUseCount())
	require.Zero(t, a.FreeCount())
}

func TestAllocator_MissReservesExactRequest(t *testing.T) {
	a, rec := newTestAllocator(t)

	addr, b, err := a.Allocate(40, 16)
	require.NoError(t, err)
	require.Len(t, b, 40)
	require.Zero(t, uintptr(addr)%16)
	require.Equal(t, 1, rec.Reserves)
	require.Equal(t, testutil.Release{Addr: addr, Size: 40, Align: 16}, rec.Reserved[addr])

	inUse, free := a.Blocks()
	require.Len(t, inUse, 1)
	require.Empty(t, free)
	assert.Equal(t, 40, inUse[0].Size)
	assert.Equal(t, 16, inUse[0].Align)
}

func TestAllocator_ReuseLaw(t *testing.T) {
	a, rec := newTestAllocator(t)

	addr, _, err := a.Allocate(64, 8)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr, 64, 8))
	require.Equal(t, 0, a.InUseCount())
	require.Equal(t, 1, a.FreeCount())
	total := a.InUseCount() + a.FreeCount()

	// Smaller size and weaker alignment still fit the freed block.
	got, b, err := a.Allocate(48, 4)
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.Len(t, b, 48)
	require.Equal(t, 64, cap(b))
	require.Equal(t, 1, a.InUseCount())
	require.Equal(t, 0, a.FreeCount())
	require.Equal(t, total, a.InUseCount()+a.FreeCount())
	require.Equal(t, 1, rec.Reserves, "reuse must not reserve")

	st := a.Stats()
	require.Equal(t, 1, st.Hits)
	require.Equal(t, 1, st.Misses)
}

func TestAllocator_NoReuseWhenTooSmallOrUnderAligned(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		align int
	}{
		{"larger size", 65, 8},
		{"stricter alignment", 32, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, rec := newTestAllocator(t)
			addr, _, err := a.Allocate(64, 8)
			require.NoError(t, err)
			require.NoError(t, a.Deallocate(addr, 64, 8))

			got, _, err := a.Allocate(tt.size, tt.align)
			require.NoError(t, err)
			require.NotEqual(t, addr, got)
			require.Equal(t, 2, rec.Reserves)
			require.Equal(t, 1, a.InUseCount())
			require.Equal(t, 1, a.FreeCount())
		})
	}
}

func TestAllocator_FirstFitInFreeOrder(t *testing.T) {
	a, _ := newTestAllocator(t)

	big, _, err := a.Allocate(1024, 8)
	require.NoError(t, err)
	small, _, err := a.Allocate(32, 8)
	require.NoError(t, err)

	// Free order: big, then small. First fit picks big even though small fits better.
	require.NoError(t, a.Deallocate(big, 1024, 8))
	require.NoError(t, a.Deallocate(small, 32, 8))

	got, b, err := a.Allocate(16, 8)
	require.NoError(t, err)
	require.Equal(t, big, got)
	require.Equal(t, 1024, cap(b))

	_, free := a.Blocks()
	require.Len(t, free, 1)
	require.Equal(t, small, free[0].Addr)
}

func TestAllocator_DeallocateKeepsRecordedSize(t *testing.T) {
	a, rec := newTestAllocator(t)

	addr, _, err := a.Allocate(128, 8)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr, 128, 8))

	// Reuse with a smaller request, then release with the smaller size.
	got, _, err := a.Allocate(16, 8)
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.NoError(t, a.Deallocate(got, 16, 8))

	_, free := a.Blocks()
	require.Len(t, free, 1)
	require.Equal(t, 128, free[0].Size, "record size wins over the caller's size")

	require.NoError(t, a.Close())
	require.Equal(t, []testutil.Release{{Addr: addr, Size: 128, Align: 8}}, rec.Released)
}

func TestAllocator_ZeroSizeBlock(t *testing.T) {
	a, _ := newTestAllocator(t)

	addr, b, err := a.Allocate(0, 8)
	require.NoError(t, err)
	require.Empty(t, b)
	require.NoError(t, a.Deallocate(addr, 0, 8))

	got, _, err := a.Allocate(0, 8)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	// A zero-size block cannot serve a non-empty request.
	other, b, err := a.Allocate(1, 1)
	require.NoError(t, err)
	require.NotEqual(t, addr, other)
	require.Len(t, b, 1)
}

func TestAllocator_OutOfMemoryLeavesRegistryUntouched(t *testing.T) {
	a, rec := newTestAllocator(t)

	_, _, err := a.Allocate(32, 8)
	require.NoError(t, err)

	rec.FailNext = true
	_, _, err = a.Allocate(64, 8)
	require.ErrorIs(t, err, raw.ErrOutOfMemory)
	require.Equal(t, 1, a.InUseCount())
	require.Equal(t, 0, a.FreeCount())
	require.Equal(t, 1, a.Stats().AllocCalls)
}

func TestAllocator_OutOfMemoryFromHeapLimit(t *testing.T) {
	a := New(raw.NewHeap(100), nil)
	defer a.Close()

	_, _, err := a.Allocate(80, 8)
	require.NoError(t, err)
	_, _, err = a.Allocate(80, 8)
	require.ErrorIs(t, err, raw.ErrOutOfMemory)
	require.Equal(t, 1, a.InUseCount())
}

func TestAllocator_OversizedRequestIsOutOfMemory(t *testing.T) {
	a := New(raw.NewHeap(0), nil)
	defer a.Close()

	var err error
	require.NotPanics(t, func() { _, _, err = a.Allocate(math.MaxInt-64, 8) })
	require.ErrorIs(t, err, raw.ErrOutOfMemory)
	require.Zero(t, a.InUseCount())
	require.Zero(t, a.FreeCount())
}

func TestAllocator_RejectsBadRequests(t *testing.T) {
	a, rec := newTestAllocator(t)

	_, _, err := a.Allocate(-1, 8)
	require.ErrorIs(t, err, raw.ErrBadSize)
	_, _, err = a.Allocate(8, 3)
	require.ErrorIs(t, err, raw.ErrBadAlignment)
	require.Zero(t, rec.Reserves)
}

func TestAllocator_DoubleFreeReported(t *testing.T) {
	a, rec := newTestAllocator(t)

	addr, _, err := a.Allocate(32, 8)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr, 32, 8))

	err = a.Deallocate(addr, 32, 8)
	require.ErrorIs(t, err, ErrDoubleFree)
	require.ErrorIs(t, err, ErrUntracked)
	require.Equal(t, 0, a.InUseCount())
	require.Equal(t, 1, a.FreeCount())
	require.Empty(t, rec.Released, "untracked release must not reach the provider")
	require.Equal(t, 1, a.Stats().Rejected)
}

func TestAllocator_ForeignPointerReported(t *testing.T) {
	a, rec := newTestAllocator(t)

	foreign := raw.NewHeap(0)
	addr, _, err := foreign.Reserve(32, 8)
	require.NoError(t, err)

	err = a.Deallocate(addr, 32, 8)
	require.ErrorIs(t, err, ErrForeignPointer)
	require.NotErrorIs(t, err, ErrDoubleFree)
	require.Empty(t, rec.Released)
	require.Equal(t, 1, foreign.Stats().LiveRegions)
}

func TestAllocator_IsEqual(t *testing.T) {
	a, _ := newTestAllocator(t)
	b, _ := newTestAllocator(t)

	require.True(t, a.IsEqual(a))
	require.False(t, a.IsEqual(b))
	require.False(t, a.IsEqual(nil))
}

func TestAllocator_LoggerReceivesDebugRecords(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := New(raw.NewHeap(0), &Options{Logger: logger})
	defer a.Close()

	addr, _, err := a.Allocate(8, 8)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr, 8, 8))
	_, _, err = a.Allocate(8, 8)
	require.NoError(t, err)

	require.Contains(t, out.String(), "reserve block")
	require.Contains(t, out.String(), "free block")
	require.Contains(t, out.String(), "reuse block")
	require.Contains(t, out.String(), "component=reuse")
}

func TestAllocator_OnReserveHook(t *testing.T) {
	var calls []int
	a := New(raw.NewHeap(0), &Options{OnReserve: func(size, _ int) { calls = append(calls, size) }})
	defer a.Close()

	addr, _, err := a.Allocate(10, 1)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr, 10, 1))
	_, _, err = a.Allocate(5, 1)
	require.NoError(t, err)
	_, _, err = a.Allocate(20, 1)
	require.NoError(t, err)

	require.Equal(t, []int{10, 20}, calls)
}
