package stack

import "iter"

// All returns an iterator over pointers to the elements, most recently
// pushed first. Each call starts a new traversal from the current top.
func (s *Stack[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for n := s.head; n != nil; n = n.next {
			if !yield(&n.value) {
				return
			}
		}
	}
}

// Values returns an iterator over copies of the elements, top first.
func (s *Stack[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := s.head; n != nil; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Cursor is a forward position in a Stack. The zero Cursor is the end
// position. A Cursor is invalidated by Pop or Clear of the node it is on.
type Cursor[T any] struct {
	n *node[T]
}

// Begin returns a cursor on the top element, or the end cursor if the
// stack is empty.
func (s *Stack[T]) Begin() Cursor[T] {
	return Cursor[T]{n: s.head}
}

// End returns the end cursor.
func (s *Stack[T]) End() Cursor[T] {
	return Cursor[T]{}
}

// Valid reports whether c is on an element.
func (c Cursor[T]) Valid() bool {
	return c.n != nil
}

// Value returns a pointer to the element under c. c must be valid.
func (c Cursor[T]) Value() *T {
	return &c.n.value
}

// Next returns the cursor on the following (older) element. c must be valid.
func (c Cursor[T]) Next() Cursor[T] {
	return Cursor[T]{n: c.n.next}
}
