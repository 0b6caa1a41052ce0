package reuse

import (
	"slices"

	"github.com/joshuapare/memkit/mem/raw"
)

// Block is one reserved region tracked by address.
//
// Size is the number of bytes reserved, which can exceed the size of the
// request currently using the block. Align is the alignment the block was
// reserved with.
type Block struct {
	Addr  raw.Addr
	Size  int
	Align int

	mem []byte // full reserved region, len == Size
}

// fits reports whether b can serve a request of size bytes at align.
func (b Block) fits(size, align int) bool {
	return b.Size >= size && b.Align >= align
}

// registry holds every block an allocator owns, split into in-use and free.
// Both slices keep insertion order; the free order drives first-fit.
type registry struct {
	inUse []Block
	free  []Block
}

// takeFree removes and returns the first free block that fits.
func (r *registry) takeFree(size, align int) (Block, bool) {
	i := slices.IndexFunc(r.free, func(b Block) bool { return b.fits(size, align) })
	if i < 0 {
		return Block{}, false
	}
	b := r.free[i]
	r.free = slices.Delete(r.free, i, i+1)
	return b, true
}

// takeInUse removes and returns the in-use block at addr. The scan runs
// newest first since containers tend to release in LIFO order.
func (r *registry) takeInUse(addr raw.Addr) (Block, bool) {
	i := len(r.inUse) - 1
	for ; i >= 0 && r.inUse[i].Addr != addr; i-- {
	}
	if i < 0 {
		return Block{}, false
	}
	b := r.inUse[i]
	r.inUse = slices.Delete(r.inUse, i, i+1)
	return b, true
}

func (r *registry) isFree(addr raw.Addr) bool {
	return indexAddr(r.free, addr) >= 0
}

func (r *registry) lend(b Block) {
	r.inUse = append(r.inUse, b)
}

func (r *registry) reclaim(b Block) {
	r.free = append(r.free, b)
}

// drain empties the registry and returns every block it held, in-use first.
func (r *registry) drain() []Block {
	all := make([]Block, 0, len(r.inUse)+len(r.free))
	all = append(all, r.inUse...)
	all = append(all, r.free...)
	r.inUse, r.free = nil, nil
	return all
}

func indexAddr(blocks []Block, addr raw.Addr) int {
	return slices.IndexFunc(blocks, func(b Block) bool { return b.Addr == addr })
}
