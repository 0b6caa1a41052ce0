package testutil

import (
	"fmt"
	"testing"

	"github.com/joshuapare/memkit/mem/raw"
)

// Release is one Release call observed by a Recorder.
type Release struct {
	Addr  raw.Addr
	Size  int
	Align int
}

// Recorder wraps a raw.Provider and records every reservation and release.
// A second release of the same address fails the test immediately.
//
// FailNext makes the next Reserve return raw.ErrOutOfMemory without
// reaching the wrapped provider.
type Recorder struct {
	t     testing.TB
	inner raw.Provider

	FailNext bool

	Reserved map[raw.Addr]Release
	Released []Release
	Reserves int
	released map[raw.Addr]int
}

// NewRecorder wraps a fresh unlimited raw.Heap.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()
	return Wrap(t, raw.NewHeap(0))
}

// Wrap records calls made to p.
func Wrap(t testing.TB, p raw.Provider) *Recorder {
	t.Helper()
	return &Recorder{
		t:        t,
		inner:    p,
		Reserved: make(map[raw.Addr]Release),
		released: make(map[raw.Addr]int),
	}
}

// Reserve implements raw.Provider.
func (r *Recorder) Reserve(size, align int) (raw.Addr, []byte, error) {
	if r.FailNext {
		r.FailNext = false
		return 0, nil, fmt.Errorf("%w: injected", raw.ErrOutOfMemory)
	}
	addr, b, err := r.inner.Reserve(size, align)
	if err != nil {
		return 0, nil, err
	}
	r.Reserved[addr] = Release{Addr: addr, Size: size, Align: align}
	r.Reserves++
	// Reused addresses start a new lifetime.
	delete(r.released, addr)
	return addr, b, nil
}

// Release implements raw.Provider.
func (r *Recorder) Release(addr raw.Addr, size, align int) error {
	r.t.Helper()
	if r.released[addr] > 0 {
		r.t.Fatalf("address %s released twice", addr)
	}
	if err := r.inner.Release(addr, size, align); err != nil {
		return err
	}
	r.released[addr]++
	r.Released = append(r.Released, Release{Addr: addr, Size: size, Align: align})
	return nil
}

// Outstanding returns the number of reserved addresses not yet released.
func (r *Recorder) Outstanding() int {
	n := 0
	for addr := range r.Reserved {
		if r.released[addr] == 0 {
			n++
		}
	}
	return n
}
