// Package stack provides a singly-linked LIFO container whose nodes are each
// backed by a block from a caller-supplied allocator.
//
// The allocator is borrowed: a Stack never closes it, and the allocator must
// outlive every Stack built on it. Like the allocator, a Stack is not safe
// for concurrent use.
package stack

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/hashicorp/go-multierror"

	"github.com/joshuapare/memkit/mem/raw"
)

// ErrConstructionFailed wraps errors returned by an Emplace constructor.
var ErrConstructionFailed = errors.New("stack: element construction failed")

// Allocator is the allocation contract a Stack needs. *reuse.Allocator
// satisfies it.
type Allocator interface {
	Allocate(size, align int) (raw.Addr, []byte, error)
	Deallocate(addr raw.Addr, size, align int) error
}

// Destroyer is implemented by element types that own resources. Pop and
// Clear call Destroy on the element (through a pointer) before its node's
// block goes back to the allocator.
type Destroyer interface {
	Destroy() error
}

// node holds one element. Each node owns its successor and is accounted
// to exactly one allocator block.
//
// Elements may hold Go pointers, which must not live in untyped memory,
// so the node itself stays on the Go heap and the block is its storage
// lease: it is sized and aligned for a node, but its bytes are never
// read or written. The element is constructed in the Go-heap node.
type node[T any] struct {
	value T
	next  *node[T]
	addr  raw.Addr
}

// noCopy triggers go vet's copylocks check; a Stack must not be copied.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Stack is a LIFO container. The zero value is not usable; call New.
type Stack[T any] struct {
	_ noCopy

	alloc Allocator
	head  *node[T]
	n     int
}

// New returns an empty stack that takes node storage from a.
func New[T any](a Allocator) *Stack[T] {
	return &Stack[T]{alloc: a}
}

func nodeLayout[T any]() (size, align int) {
	var n node[T]
	return int(unsafe.Sizeof(n)), int(unsafe.Alignof(n))
}

// Emplace reserves a node and constructs its element in place.
//
// Either the element becomes the new top and Len grows by one, or the stack
// is unchanged: if construct fails or panics, the node's block is handed
// straight back to the allocator before the failure propagates. If that
// release also fails, its error is joined to the returned error, or on
// the panic path the panic is re-raised as an error wrapping both.
func (s *Stack[T]) Emplace(construct func(*T) error) (err error) {
	size, align := nodeLayout[T]()
	addr, _, err := s.alloc.Allocate(size, align)
	if err != nil {
		return fmt.Errorf("stack: allocate node: %w", err)
	}

	linked := false
	defer func() {
		if linked {
			return
		}
		r := recover()
		derr := s.alloc.Deallocate(addr, size, align)
		if r != nil {
			if derr != nil {
				panic(fmt.Errorf("stack: construct panicked: %v (release node: %w)", r, derr))
			}
			panic(r)
		}
		if derr != nil {
			err = multierror.Append(err, derr)
		}
	}()

	n := &node[T]{addr: addr}
	if cerr := construct(&n.value); cerr != nil {
		return fmt.Errorf("%w: %w", ErrConstructionFailed, cerr)
	}

	n.next = s.head
	s.head = n
	s.n++
	linked = true
	return nil
}

// Push copies v onto the stack.
func (s *Stack[T]) Push(v T) error {
	return s.Emplace(func(p *T) error {
		*p = v
		return nil
	})
}

// Pop removes the top element. Popping an empty stack does nothing.
//
// The node is unlinked before its element is destroyed and its block
// returned; an error from either step is reported but the element is gone.
func (s *Stack[T]) Pop() error {
	n := s.head
	if n == nil {
		return nil
	}
	s.head = n.next
	s.n--
	return s.release(n)
}

func (s *Stack[T]) release(n *node[T]) error {
	var result *multierror.Error
	if d, ok := any(&n.value).(Destroyer); ok {
		if err := d.Destroy(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	var zero T
	n.value = zero
	n.next = nil

	size, align := nodeLayout[T]()
	if err := s.alloc.Deallocate(n.addr, size, align); err != nil {
		result = multierror.Append(result, fmt.Errorf("stack: release node: %w", err))
	}
	return result.ErrorOrNil()
}

// Top returns a pointer to the top element. The stack must not be empty;
// check Empty first.
func (s *Stack[T]) Top() *T {
	return &s.head.value
}

// Empty reports whether the stack has no elements.
func (s *Stack[T]) Empty() bool {
	return s.n == 0
}

// Len returns the number of elements.
func (s *Stack[T]) Len() int {
	return s.n
}

// Clear pops every element. It walks the chain iteratively, so deep stacks
// do not grow the goroutine stack. Errors from individual pops are
// collected and Clear keeps going.
func (s *Stack[T]) Clear() error {
	var result *multierror.Error
	for s.head != nil {
		if err := s.Pop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close releases every node back to the allocator. It is the stack's
// destructor; the stack remains usable and empty afterwards.
func (s *Stack[T]) Close() error {
	return s.Clear()
}

// MoveFrom clears s, then takes src's nodes, count and allocator in O(1),
// leaving src empty. Moving a stack into itself does nothing.
func (s *Stack[T]) MoveFrom(src *Stack[T]) error {
	if s == src {
		return nil
	}
	err := s.Clear()
	s.alloc = src.alloc
	s.head, s.n = src.head, src.n
	src.head, src.n = nil, 0
	return err
}
