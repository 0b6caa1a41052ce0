package reuse

import (
	"errors"
	"fmt"
)

var (
	// ErrUntracked indicates a release of an address that is not currently in use.
	ErrUntracked = errors.New("reuse: address not in use")

	// ErrDoubleFree indicates a release of a block that is already in the free set.
	ErrDoubleFree = fmt.Errorf("%w: double free", ErrUntracked)

	// ErrForeignPointer indicates a release of an address this allocator never handed out.
	ErrForeignPointer = fmt.Errorf("%w: foreign pointer", ErrUntracked)

	// ErrClosed indicates use of an allocator after Close.
	ErrClosed = errors.New("reuse: allocator closed")
)
