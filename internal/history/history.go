// Package history keeps full-snapshot undo/redo state for a value that is
// only ever replaced, never mutated in place.
package history

// History holds past, present and future snapshots. It is not safe for
// concurrent use; callers serialise access.
type History[T any] struct {
	past    []T
	present T
	future  []T
	limit   int
}

type Option[T any] func(*History[T])

// WithLimit caps the number of undo snapshots kept. Zero or negative keeps
// every snapshot.
func WithLimit[T any](n int) Option[T] {
	return func(h *History[T]) {
		h.limit = n
	}
}

func New[T any](initial T, opts ...Option[T]) *History[T] {
	h := &History[T]{present: initial}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Perform records the current present and replaces it with transform's
// result. Any redo branch is discarded.
func (h *History[T]) Perform(transform func(T) T) {
	next := transform(h.present)
	h.past = append(h.past, h.present)
	if h.limit > 0 && len(h.past) > h.limit {
		drop := len(h.past) - h.limit
		clear(h.past[:drop])
		h.past = h.past[drop:]
	}
	h.present = next
	h.future = nil
}

// SetPresent replaces the present without recording history.
func (h *History[T]) SetPresent(value T) {
	h.present = value
}

func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past = h.past[:last]

	h.future = append([]T{h.present}, h.future...)
	h.present = previous
	return true
}

func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]

	h.past = append(h.past, h.present)
	h.present = next
	return true
}

// Reset drops all history. Undo cannot cross a reset.
func (h *History[T]) Reset(value T) {
	h.past = nil
	h.future = nil
	h.present = value
}

func (h *History[T]) Present() T {
	return h.present
}

func (h *History[T]) CanUndo() bool {
	return len(h.past) > 0
}

func (h *History[T]) CanRedo() bool {
	return len(h.future) > 0
}

// Depth returns the number of undo and redo snapshots.
func (h *History[T]) Depth() (past, future int) {
	return len(h.past), len(h.future)
}
