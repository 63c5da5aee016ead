package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendValue(v int) func([]int) []int {
	return func(s []int) []int {
		out := make([]int, 0, len(s)+1)
		out = append(out, s...)
		return append(out, v)
	}
}

func TestHistory_UndoRedoSymmetry(t *testing.T) {
	h := New([]int{})
	const n = 5

	for i := 1; i <= n; i++ {
		h.Perform(appendValue(i))
	}
	final := h.Present()
	require.Equal(t, []int{1, 2, 3, 4, 5}, final)

	for i := 0; i < n; i++ {
		require.True(t, h.Undo())
	}
	assert.Equal(t, []int{}, h.Present())
	assert.False(t, h.CanUndo())
	assert.False(t, h.Undo())

	for i := 0; i < n; i++ {
		require.True(t, h.Redo())
	}
	assert.Equal(t, final, h.Present())
	assert.False(t, h.CanRedo())
	assert.False(t, h.Redo())
}

func TestHistory_NewActionDiscardsRedoBranch(t *testing.T) {
	h := New([]int{})
	h.Perform(appendValue(1))
	h.Perform(appendValue(2))

	require.True(t, h.Undo())
	require.True(t, h.CanRedo())

	h.Perform(appendValue(3))
	assert.False(t, h.CanRedo())
	assert.Equal(t, []int{1, 3}, h.Present())
}

func TestHistory_UndoMovesPresentToFrontOfFuture(t *testing.T) {
	h := New(0)
	h.Perform(func(int) int { return 1 })
	h.Perform(func(int) int { return 2 })
	h.Perform(func(int) int { return 3 })

	h.Undo()
	h.Undo()
	past, future := h.Depth()
	assert.Equal(t, 1, past)
	assert.Equal(t, 2, future)

	h.Redo()
	assert.Equal(t, 2, h.Present())
}

func TestHistory_Reset(t *testing.T) {
	h := New("a")
	h.Perform(func(string) string { return "b" })
	h.Perform(func(string) string { return "c" })
	h.Undo()

	h.Reset("fresh")
	assert.Equal(t, "fresh", h.Present())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestHistory_SetPresentIsNotRecorded(t *testing.T) {
	h := New("a")
	h.SetPresent("hydrated")
	assert.Equal(t, "hydrated", h.Present())
	assert.False(t, h.CanUndo())
}

func TestHistory_WithLimit(t *testing.T) {
	h := New(0, WithLimit[int](2))
	for i := 1; i <= 5; i++ {
		v := i
		h.Perform(func(int) int { return v })
	}

	past, _ := h.Depth()
	assert.Equal(t, 2, past)

	h.Undo()
	h.Undo()
	assert.Equal(t, 3, h.Present())
	assert.False(t, h.Undo())
}
