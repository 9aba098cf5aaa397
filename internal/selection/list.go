// Package selection provides an ordered list with a single movable cursor.
//
// The list knows nothing about how it is drawn. Presentation code that splits
// a list into columns uses the pure helpers in partition.go to translate the
// global cursor into a column-local index.
package selection

// List is an ordered sequence of T plus an optional cursor.
//
// The cursor is either unset or a valid index into the current items. Every
// operation clamps instead of failing, so an invalid selection cannot be
// constructed. The zero value is an empty list with no cursor.
type List[T any] struct {
	items    []T
	cursor   int
	selected bool
}

// New returns a List holding items with no cursor.
func New[T any](items []T) *List[T] {
	l := &List[T]{}
	l.SetItems(items)
	return l
}

// SetItems replaces the backing sequence. A cursor past the new end is
// clamped to the last index; an empty sequence clears it.
func (l *List[T]) SetItems(items []T) {
	l.items = items
	if !l.selected {
		return
	}
	switch {
	case len(items) == 0:
		l.Clear()
	case l.cursor >= len(items):
		l.cursor = len(items) - 1
	}
}

// Items returns the backing sequence.
func (l *List[T]) Items() []T {
	return l.items
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return len(l.items)
}

// Cursor returns the selected index and whether anything is selected.
func (l *List[T]) Cursor() (int, bool) {
	if !l.selected {
		return 0, false
	}
	return l.cursor, true
}

// Selected returns the item under the cursor.
func (l *List[T]) Selected() (T, bool) {
	var zero T
	if !l.selected {
		return zero, false
	}
	return l.items[l.cursor], true
}

// Next moves the cursor down one position, stopping at the last item.
// With no cursor it selects the first item.
func (l *List[T]) Next() {
	if len(l.items) == 0 {
		return
	}
	if !l.selected {
		l.set(0)
		return
	}
	if l.cursor < len(l.items)-1 {
		l.cursor++
	}
}

// Prev moves the cursor up one position, stopping at the first item.
// With no cursor it selects the first item.
func (l *List[T]) Prev() {
	if len(l.items) == 0 {
		return
	}
	if !l.selected {
		l.set(0)
		return
	}
	if l.cursor > 0 {
		l.cursor--
	}
}

// First selects the first item.
func (l *List[T]) First() {
	if len(l.items) == 0 {
		return
	}
	l.set(0)
}

// Last selects the last item.
func (l *List[T]) Last() {
	if len(l.items) == 0 {
		return
	}
	l.set(len(l.items) - 1)
}

// Select moves the cursor to index, clamped into range.
func (l *List[T]) Select(index int) {
	if len(l.items) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(l.items) {
		index = len(l.items) - 1
	}
	l.set(index)
}

// Clear removes the cursor.
func (l *List[T]) Clear() {
	l.cursor = 0
	l.selected = false
}

func (l *List[T]) set(index int) {
	l.cursor = index
	l.selected = true
}
