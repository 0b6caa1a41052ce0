package raw

import (
	"fmt"
	"math"
	"runtime"

	"github.com/joshuapare/memkit/internal/buf"
)

// HeapStats reports a Heap provider's current footprint and call counts.
type HeapStats struct {
	LiveRegions  int   // regions reserved and not yet released
	LiveBytes    int64 // sum of requested sizes of live regions
	ReserveCalls int   // successful Reserve calls
	ReleaseCalls int   // successful Release calls
}

// Heap reserves regions from the Go heap.
//
// Each region is over-allocated by its alignment and shifted forward to the
// first aligned byte. The backing slice stays referenced until Release, so
// the collector never reclaims a region that has been handed out.
//
// Heap is not safe for concurrent use.
type Heap struct {
	// Limit caps LiveBytes; zero means unlimited. Reserve fails with
	// ErrOutOfMemory once a request would exceed it.
	Limit int64

	live  map[Addr]heapRegion
	stats HeapStats
}

// MaxHeapRegion is the largest region, alignment padding included, that a
// Heap will try to allocate. Larger requests fail with ErrOutOfMemory.
const MaxHeapRegion = min(1<<36, math.MaxInt)

type heapRegion struct {
	backing []byte
	size    int
}

// NewHeap returns a Heap provider with the given byte limit (0 = unlimited).
func NewHeap(limit int64) *Heap {
	return &Heap{Limit: limit, live: make(map[Addr]heapRegion)}
}

// Reserve implements Provider.
func (h *Heap) Reserve(size, align int) (Addr, []byte, error) {
	if err := CheckRequest(size, align); err != nil {
		return 0, nil, err
	}
	if h.Limit > 0 && h.stats.LiveBytes+int64(size) > h.Limit {
		return 0, nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrOutOfMemory, size, h.stats.LiveBytes, h.Limit)
	}

	// Zero-byte regions still need a distinct address.
	n := max(size, 1)
	total, ok := buf.AddOverflowSafe(n, align)
	if !ok {
		return 0, nil, fmt.Errorf("%w: size %d + align %d overflows", ErrOutOfMemory, size, align)
	}

	if total > MaxHeapRegion {
		return 0, nil, fmt.Errorf("%w: %d bytes exceeds heap region limit %d", ErrOutOfMemory, total, MaxHeapRegion)
	}
	backing, err := makeBacking(total)
	if err != nil {
		return 0, nil, err
	}
	base := uintptr(AddrOf(backing))
	shift := int(alignUp(base, uintptr(align)) - base)
	region := backing[shift : shift+size : shift+n]
	addr := Addr(base + uintptr(shift))

	if h.live == nil {
		h.live = make(map[Addr]heapRegion)
	}
	h.live[addr] = heapRegion{backing: backing, size: size}
	h.stats.LiveRegions++
	h.stats.LiveBytes += int64(size)
	h.stats.ReserveCalls++
	return addr, region, nil
}

// makeBacking allocates n bytes, turning a runtime allocation panic into
// ErrOutOfMemory.
func makeBacking(n int) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			b, err = nil, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, n, rerr)
		}
	}()
	return make([]byte, n), nil
}

// Release implements Provider. The size and alignment arguments are not
// needed to find the region; the recorded size is what leaves LiveBytes.
func (h *Heap) Release(addr Addr, _, _ int) error {
	r, ok := h.live[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	delete(h.live, addr)
	h.stats.LiveRegions--
	h.stats.LiveBytes -= int64(r.size)
	h.stats.ReleaseCalls++
	return nil
}

// Stats returns a snapshot of the provider's counters.
func (h *Heap) Stats() HeapStats {
	return h.stats
}
