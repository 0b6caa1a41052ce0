// Package raw defines the system-level memory reservation capability that
// the recycling allocator sits on, plus two implementations: a Go-heap
// provider and an anonymous-mmap provider.
package raw

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"
)

// Addr identifies a reserved region by the address of its first byte.
type Addr uintptr

// String formats the address in hex.
func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uintptr(a))
}

var (
	// ErrOutOfMemory indicates that a region could not be reserved.
	ErrOutOfMemory = errors.New("raw: out of memory")

	// ErrUnknownAddress indicates a release of an address the provider does not own.
	ErrUnknownAddress = errors.New("raw: unknown address")

	// ErrBadAlignment indicates an alignment that is not a positive power of two.
	ErrBadAlignment = errors.New("raw: alignment must be a power of two")

	// ErrBadSize indicates a negative size.
	ErrBadSize = errors.New("raw: size must be >= 0")

	// ErrUnsupported indicates the provider is not available on this platform.
	ErrUnsupported = errors.New("raw: provider not supported on this platform")
)

// Provider reserves and releases raw memory regions.
//
// Reserve returns the address and a slice of exactly size bytes starting at
// that address. Release must be called with the address Reserve returned.
type Provider interface {
	Reserve(size, align int) (Addr, []byte, error)
	Release(addr Addr, size, align int) error
}

// CheckRequest validates a size/alignment pair.
func CheckRequest(size, align int) error {
	if size < 0 {
		return fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if align <= 0 || bits.OnesCount(uint(align)) != 1 {
		return fmt.Errorf("%w: %d", ErrBadAlignment, align)
	}
	return nil
}

// AddrOf returns the address of b's first byte. b must have cap > 0.
func AddrOf(b []byte) Addr {
	return Addr(unsafe.Pointer(unsafe.SliceData(b[:1])))
}

// alignUp rounds n up to a multiple of align (a power of two).
func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
