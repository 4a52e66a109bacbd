package history

import (
	"errors"
)

var (
	// ErrNothingToUndo is returned by Undo at the first entry or when empty
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo at the last entry or when empty
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Entry is one named state. Index is its position in the list.
type Entry[T any] struct {
	Index int
	Label string
	Value T
}

// Store is a linear undo/redo list. Pushing while the pointer is not at the
// end discards every entry after it. Store is not safe for concurrent use;
// callers serialise access.
type Store[T any] struct {
	entries []Entry[T]
	index   int
	release func(T)
}

// New creates an empty store. release, if non-nil, is called for every value
// the store discards.
func New[T any](release func(T)) *Store[T] {
	return &Store[T]{index: -1, release: release}
}

// Push truncates forward entries, appends value and moves the pointer to it.
func (s *Store[T]) Push(value T, label string) Entry[T] {
	s.truncate(s.index + 1)
	entry := Entry[T]{Index: len(s.entries), Label: label, Value: value}
	s.entries = append(s.entries, entry)
	s.index = entry.Index
	return entry
}

// Undo moves the pointer back one entry and returns it
func (s *Store[T]) Undo() (Entry[T], error) {
	if s.index <= 0 {
		var zero Entry[T]
		return zero, ErrNothingToUndo
	}
	s.index--
	return s.entries[s.index], nil
}

// Redo moves the pointer forward one entry and returns it
func (s *Store[T]) Redo() (Entry[T], error) {
	if s.index >= len(s.entries)-1 {
		var zero Entry[T]
		return zero, ErrNothingToRedo
	}
	s.index++
	return s.entries[s.index], nil
}

// Current returns the entry at the pointer; false when the store is empty
func (s *Store[T]) Current() (Entry[T], bool) {
	if s.index < 0 {
		var zero Entry[T]
		return zero, false
	}
	return s.entries[s.index], true
}

// Index returns the pointer, -1 when empty
func (s *Store[T]) Index() int {
	return s.index
}

// Len returns the number of entries, including ones ahead of the pointer
func (s *Store[T]) Len() int {
	return len(s.entries)
}

func (s *Store[T]) CanUndo() bool {
	return s.index > 0
}

func (s *Store[T]) CanRedo() bool {
	return s.index < len(s.entries)-1
}

// Entries returns a copy of the list
func (s *Store[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset releases every entry and empties the store
func (s *Store[T]) Reset() {
	s.truncate(0)
	s.index = -1
}

func (s *Store[T]) truncate(n int) {
	if n >= len(s.entries) {
		return
	}
	if s.release != nil {
		for _, e := range s.entries[n:] {
			s.release(e.Value)
		}
	}
	clear(s.entries[n:])
	s.entries = s.entries[:n]
}
