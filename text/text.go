// Package text provides Text, a byte string whose storage comes from a
// caller-supplied allocator.
//
// Strings of up to InlineCap bytes are kept inside the Text value and never
// touch the allocator. Longer strings occupy one allocator block, which
// Destroy hands back.
package text

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/raw"
)

// InlineCap is the longest string stored without an allocation.
const InlineCap = 15

// ErrRange indicates a substring outside the text.
var ErrRange = errors.New("text: range out of bounds")

// Allocator is the allocation contract Text needs. *reuse.Allocator
// satisfies it.
type Allocator interface {
	Allocate(size, align int) (raw.Addr, []byte, error)
	Deallocate(addr raw.Addr, size, align int) error
}

// Text is an allocator-backed byte string.
//
// A Text owns its block. Copying the struct shares the block, so duplicate
// with Clone and destroy exactly one owner.
type Text struct {
	alloc  Allocator
	addr   raw.Addr
	block  []byte // nil when inline
	inline [InlineCap]byte
	n      int
}

// New copies s into a Text backed by a.
func New(a Allocator, s string) (Text, error) {
	t := Text{alloc: a, n: len(s)}
	if len(s) <= InlineCap {
		copy(t.inline[:], s)
		return t, nil
	}
	addr, b, err := a.Allocate(len(s), 1)
	if err != nil {
		return Text{}, fmt.Errorf("text: allocate %d bytes: %w", len(s), err)
	}
	copy(b, s)
	t.addr, t.block = addr, b
	return t, nil
}

// FromBytes copies b into a Text backed by a.
func FromBytes(a Allocator, b []byte) (Text, error) {
	return New(a, string(b))
}

// Decode transcodes src from enc into UTF-8 and stores the result in a
// Text backed by a.
func Decode(a Allocator, src []byte, enc encoding.Encoding) (Text, error) {
	utf8, err := enc.NewDecoder().Bytes(src)
	if err != nil {
		return Text{}, fmt.Errorf("text: decode: %w", err)
	}
	return FromBytes(a, utf8)
}

// Bytes returns the stored bytes. The slice aliases the Text's storage and
// is valid until Destroy.
func (t *Text) Bytes() []byte {
	if t.block != nil {
		return t.block
	}
	return t.inline[:t.n]
}

// String returns a Go string copy of the text.
func (t *Text) String() string {
	return string(t.Bytes())
}

// Len returns the length in bytes.
func (t *Text) Len() int {
	return t.n
}

// Allocated reports whether the text occupies an allocator block.
func (t *Text) Allocated() bool {
	return t.block != nil
}

// Equal reports whether t and o hold the same bytes.
func (t *Text) Equal(o *Text) bool {
	return bytes.Equal(t.Bytes(), o.Bytes())
}

// Clone returns an independent copy using the same allocator.
func (t *Text) Clone() (Text, error) {
	return FromBytes(t.alloc, t.Bytes())
}

// Sub returns a copy of the n bytes starting at off.
func (t *Text) Sub(off, n int) (Text, error) {
	b, ok := buf.Slice(t.Bytes(), off, n)
	if !ok {
		return Text{}, fmt.Errorf("%w: [%d:+%d] of %d", ErrRange, off, n, t.n)
	}
	return FromBytes(t.alloc, b)
}

// Destroy returns the text's block to its allocator and leaves t empty.
// Destroying an empty or inline Text does nothing.
func (t *Text) Destroy() error {
	if t.block == nil {
		*t = Text{alloc: t.alloc}
		return nil
	}
	addr, size := t.addr, t.n
	*t = Text{alloc: t.alloc}
	if err := t.alloc.Deallocate(addr, size, 1); err != nil {
		return fmt.Errorf("text: release: %w", err)
	}
	return nil
}
