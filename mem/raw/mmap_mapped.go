//go:build linux || darwin || freebsd || netbsd || openbsd

package raw

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap reserves each region as its own anonymous private mapping.
//
// Sizes are rounded up to whole pages. Alignments stricter than the page
// size are met by mapping extra pages and returning the first aligned
// address inside the mapping; the whole mapping is unmapped on Release.
type Mmap struct {
	pageSize int
	live     map[Addr][]byte
}

// NewMmap returns an anonymous-mmap provider.
func NewMmap() (*Mmap, error) {
	return &Mmap{pageSize: unix.Getpagesize(), live: make(map[Addr][]byte)}, nil
}

// Reserve implements Provider.
func (m *Mmap) Reserve(size, align int) (Addr, []byte, error) {
	if err := CheckRequest(size, align); err != nil {
		return 0, nil, err
	}
	length := int(alignUp(uintptr(max(size, 1)), uintptr(m.pageSize)))
	if align > m.pageSize {
		length += align - m.pageSize
	}

	mapping, err := unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return 0, nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrOutOfMemory, length, err)
		}
		return 0, nil, fmt.Errorf("raw: mmap %d bytes: %w", length, err)
	}

	base := uintptr(AddrOf(mapping))
	shift := int(alignUp(base, uintptr(align)) - base)
	addr := Addr(base + uintptr(shift))
	m.live[addr] = mapping
	return addr, mapping[shift : shift+size : length], nil
}

// Release implements Provider.
func (m *Mmap) Release(addr Addr, _, _ int) error {
	mapping, ok := m.live[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	delete(m.live, addr)
	if err := unix.Munmap(mapping); err != nil {
		return fmt.Errorf("raw: munmap %s: %w", addr, err)
	}
	return nil
}

// Live returns the number of mappings not yet released.
func (m *Mmap) Live() int {
	return len(m.live)
}
