package reuse

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/memkit/mem/raw"
)

// Runtime debug flag for allocation logging - controlled by MEMKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMKIT_LOG_ALLOC") != ""

// Options configures an Allocator. A nil *Options is valid.
type Options struct {
	// Logger receives debug records for hits, misses, rejected releases and
	// teardown. Defaults to a discarding logger, or stderr when
	// MEMKIT_LOG_ALLOC is set.
	Logger *slog.Logger

	// OnReserve is called before every provider reservation (test hook).
	OnReserve func(size, align int)
}

// Stats holds allocator call counters.
type Stats struct {
	AllocCalls    int   `json:"alloc_calls"`    // Allocate calls that returned a block
	Hits          int   `json:"hits"`           // Allocations served from the free set
	Misses        int   `json:"misses"`         // Allocations that reserved a new block
	FreeCalls     int   `json:"free_calls"`     // Deallocate calls that moved a block to the free set
	Rejected      int   `json:"rejected"`       // Deallocate calls for untracked addresses
	BytesReserved int64 `json:"bytes_reserved"` // Total bytes reserved from the provider
}

// Allocator is a recycling allocator over a raw.Provider.
//
// Released blocks stay reserved and are handed out again by later requests
// they fit. All blocks are returned to the provider by Close.
type Allocator struct {
	p      raw.Provider
	log    *slog.Logger
	reg    registry
	stats  Stats
	closed bool

	// Test hook: called before each provider Reserve (nil in production)
	onReserve func(size, align int)
}

// New returns an Allocator that reserves new blocks from p.
func New(p raw.Provider, opts *Options) *Allocator {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		var w io.Writer = io.Discard
		if logAlloc {
			w = os.Stderr
		}
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return &Allocator{
		p:         p,
		log:       logger.With("component", "reuse"),
		onReserve: opts.OnReserve,
	}
}

// Allocate returns a region of size bytes aligned to align.
//
// The first free block with enough size and alignment is reused; otherwise a
// new block of exactly size/align is reserved from the provider. The slice
// has len size and cap equal to the block's recorded size. A provider
// failure is returned wrapped and leaves the allocator unchanged.
func (a *Allocator) Allocate(size, align int) (raw.Addr, []byte, error) {
	if a.closed {
		return 0, nil, ErrClosed
	}
	if err := raw.CheckRequest(size, align); err != nil {
		return 0, nil, err
	}

	if b, ok := a.reg.takeFree(size, align); ok {
		a.reg.lend(b)
		a.stats.AllocCalls++
		a.stats.Hits++
		a.log.Debug("reuse block", "addr", b.Addr, "need", size, "block", b.Size, "align", b.Align)
		return b.Addr, b.mem[:size:b.Size], nil
	}

	if a.onReserve != nil {
		a.onReserve(size, align)
	}
	addr, mem, err := a.p.Reserve(size, align)
	if err != nil {
		a.log.Debug("reserve failed", "need", size, "align", align, "err", err)
		return 0, nil, fmt.Errorf("reuse: reserve %d bytes (align %d): %w", size, align, err)
	}
	b := Block{Addr: addr, Size: size, Align: align, mem: mem[:size:size]}
	a.reg.lend(b)
	a.stats.AllocCalls++
	a.stats.Misses++
	a.stats.BytesReserved += int64(size)
	a.log.Debug("reserve block", "addr", addr, "size", size, "align", align)
	return addr, b.mem, nil
}

// Deallocate moves the in-use block at addr to the free set. The block keeps
// its recorded size and alignment; size and align only fill in a record
// whose values are zero. The provider is never contacted.
//
// Releasing an address that is not in use returns ErrDoubleFree or
// ErrForeignPointer and changes nothing.
func (a *Allocator) Deallocate(addr raw.Addr, size, align int) error {
	if a.closed {
		return ErrClosed
	}

	b, ok := a.reg.takeInUse(addr)
	if !ok {
		a.stats.Rejected++
		if a.reg.isFree(addr) {
			a.log.Debug("double free", "addr", addr, "size", size)
			return fmt.Errorf("%w: %s", ErrDoubleFree, addr)
		}
		a.log.Debug("foreign pointer", "addr", addr, "size", size)
		return fmt.Errorf("%w: %s", ErrForeignPointer, addr)
	}

	if b.Size == 0 && size <= cap(b.mem) {
		b.Size = size
		b.mem = b.mem[:size]
	}
	if b.Align == 0 {
		b.Align = align
	}
	a.reg.reclaim(b)
	a.stats.FreeCalls++
	a.log.Debug("free block", "addr", addr, "block", b.Size)
	return nil
}

// IsEqual reports whether other is this same allocator. Blocks are never
// shared between allocator instances.
func (a *Allocator) IsEqual(other *Allocator) bool {
	return a == other
}

// InUseCount returns the number of blocks lent to callers.
func (a *Allocator) InUseCount() int {
	return len(a.reg.inUse)
}

// FreeCount returns the number of blocks available for reuse.
func (a *Allocator) FreeCount() int {
	return len(a.reg.free)
}

// Blocks returns copies of the in-use and free records, in registry order.
func (a *Allocator) Blocks() (inUse, free []Block) {
	return append([]Block(nil), a.reg.inUse...), append([]Block(nil), a.reg.free...)
}

// Stats returns a snapshot of the allocator's counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// Close releases every tracked block to the provider exactly once, using
// each block's recorded size and alignment. Provider errors are collected;
// every block is attempted regardless. Close is idempotent.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	inUse := len(a.reg.inUse)
	var result *multierror.Error
	for _, b := range a.reg.drain() {
		if err := a.p.Release(b.Addr, b.Size, b.Align); err != nil {
			result = multierror.Append(result, fmt.Errorf("release %s: %w", b.Addr, err))
		}
	}
	if inUse > 0 {
		a.log.Debug("closed with blocks still in use", "in_use", inUse)
	}
	return result.ErrorOrNil()
}
