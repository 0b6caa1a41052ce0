// Package reuse provides a recycling allocator that keeps released blocks for
// later requests instead of handing them back to the raw memory provider.
//
// # Overview
//
// Every region the allocator reserves is tracked as a Block in one of two
// ordered sets: in-use (lent to a caller) and free (available for reuse).
// An address is never in both. Blocks only go back to the provider when the
// allocator is closed.
//
// # Allocation
//
//   - Allocate(size, align): scan the free set in order and take the first
//     block with Size >= size and Align >= align (first-fit). On a miss,
//     reserve a new block of exactly size/align from the provider.
//   - Deallocate(addr, size, align): move the block from in-use to free.
//     The provider is not contacted.
//
// First-fit may hand out a block much larger than the request. Blocks are
// never split or coalesced.
//
// # Untracked releases
//
// Deallocate of an address that is not in the in-use set is reported, not
// absorbed: ErrDoubleFree when the address is already free, ErrForeignPointer
// when this allocator never tracked it. Neither case touches the provider or
// the registry, so Close still releases each block exactly once.
//
// # Usage Example
//
//	a := reuse.New(raw.NewHeap(0), nil)
//	defer a.Close()
//
//	addr, b, err := a.Allocate(64, 8)
//	if err != nil {
//	    return err
//	}
//	copy(b, payload)
//
//	// Later: the block moves to the free set and serves the next request
//	// of at most 64 bytes / alignment 8.
//	err = a.Deallocate(addr, 64, 8)
//
// # Teardown
//
// Close releases every tracked block, in-use or free, once, using the size
// and alignment recorded on the block.
//
// # Debug Logging
//
// Set MEMKIT_LOG_ALLOC=1 to log hits, misses and rejected releases to stderr
// when no Options.Logger is supplied.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Exactly one owner may drive
// Allocate/Deallocate at a time; containers sharing an allocator must do so
// sequentially or behind an external lock.
package reuse
