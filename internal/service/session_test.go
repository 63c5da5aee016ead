package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

const threeCueSRT = `1
00:00:01,000 --> 00:00:03,000
Hello there friend

2
00:00:04,000 --> 00:00:06,000
How are you

3
00:00:07,000 --> 00:00:09,000
Fine`

func proSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(1, editor.Policy{Pro: true})
	_, err := s.Import(threeCueSRT)
	require.NoError(t, err)
	return s
}

func TestSession_ImportResetsHistory(t *testing.T) {
	s := NewSession(1, editor.Policy{})
	_, err := s.Add(0, false)
	require.NoError(t, err)

	state, err := s.Import(threeCueSRT)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 3)
	assert.False(t, state.CanUndo)
}

func TestSession_FailedImportKeepsState(t *testing.T) {
	s := proSession(t)
	before := s.Snapshot()

	_, err := s.Import("")
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrImport))
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_FreeTierCueCap(t *testing.T) {
	s := NewSession(1, editor.Policy{FreeCueLimit: 2})
	_, err := s.Add(0, false)
	require.NoError(t, err)
	_, err = s.Add(1, true)
	require.NoError(t, err)

	state, err := s.Add(2, true)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrCapability))
	assert.Len(t, state.Cues, 2)
}

func TestSession_GatedOperationsWithoutPro(t *testing.T) {
	s := NewSession(1, editor.Policy{})
	_, err := s.Import(threeCueSRT)
	require.NoError(t, err)
	revision := s.Revision()

	_, err = s.Split(1)
	assert.True(t, IsErrorType(err, ErrCapability))
	_, err = s.Merge(1)
	assert.True(t, IsErrorType(err, ErrCapability))
	_, err = s.Rechunk(2)
	assert.True(t, IsErrorType(err, ErrCapability))

	assert.Equal(t, revision, s.Revision())
	assert.False(t, s.Snapshot().CanUndo)
}

func TestSession_MissingIDIsSilentNoop(t *testing.T) {
	s := proSession(t)
	revision := s.Revision()

	for _, op := range []func() (State, error){
		func() (State, error) { return s.Delete(99) },
		func() (State, error) { return s.Update(99, subtitle.FieldText, "x") },
		func() (State, error) { return s.Split(99) },
		func() (State, error) { return s.Merge(99) },
	} {
		state, err := op()
		require.NoError(t, err)
		assert.Len(t, state.Cues, 3)
		assert.False(t, state.CanUndo)
	}
	assert.Equal(t, revision, s.Revision())
}

func TestSession_SplitGuardsSingleWord(t *testing.T) {
	s := proSession(t)

	_, err := s.Split(3)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrValidation))

	state, err := s.Split(1)
	require.NoError(t, err)
	require.Len(t, state.Cues, 4)
	assert.Equal(t, "Hello", state.Cues[0].Text)
	assert.Equal(t, "there friend", state.Cues[1].Text)
	assert.Equal(t, 4, state.Cues[1].ID)
}

func TestSession_RechunkValidation(t *testing.T) {
	s := proSession(t)

	_, err := s.Rechunk(0)
	assert.True(t, IsErrorType(err, ErrValidation))

	state, err := s.Rechunk(1)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 7)

	empty := NewSession(2, editor.Policy{Pro: true})
	_, err = empty.Rechunk(3)
	assert.True(t, IsErrorType(err, ErrValidation))
}

func TestSession_UpdateRejectsUnknownField(t *testing.T) {
	s := proSession(t)
	_, err := s.Update(1, subtitle.Field("id"), "7")
	assert.True(t, IsErrorType(err, ErrValidation))

	state, err := s.Update(1, subtitle.FieldText, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", state.Cues[0].Text)
}

func TestSession_UndoRedo(t *testing.T) {
	s := proSession(t)
	original := s.Cues()

	_, err := s.Delete(2)
	require.NoError(t, err)
	_, err = s.Merge(1)
	require.NoError(t, err)

	s.Undo()
	state := s.Undo()
	assert.Equal(t, original, state.Cues)
	assert.True(t, state.CanRedo)
	assert.Equal(t, 0, state.UndoDepth)
	assert.Equal(t, 2, state.RedoDepth)

	s.Redo()
	state = s.Redo()
	assert.Len(t, state.Cues, 1)
	assert.False(t, state.CanRedo)

	revision := s.Revision()
	s.Redo()
	assert.Equal(t, revision, s.Revision(), "redo with nothing to redo is not a change")
}

func TestSession_UndoLimit(t *testing.T) {
	s := NewSession(1, editor.Policy{Pro: true}, WithUndoLimit(2))
	_, err := s.Import(threeCueSRT)
	require.NoError(t, err)

	for _, id := range []int{3, 2, 1} {
		_, err := s.Delete(id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Snapshot().UndoDepth)

	s.Undo()
	state := s.Undo()
	require.Len(t, state.Cues, 2, "the oldest step was dropped")
	assert.False(t, state.CanUndo)
	assert.Equal(t, 2, state.RedoDepth)
}

func TestSession_Dispatch(t *testing.T) {
	s := proSession(t)

	state, err := s.Dispatch(editor.ResolveShortcut("ctrl+enter", true, true), 1, true)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 4)
	assert.Equal(t, "00:00:03,000", state.Cues[1].StartTime)

	state, err = s.Dispatch(editor.CommandDelete, 1, false)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 4, "commands needing a selection are ignored without one")

	state, err = s.Dispatch(editor.CommandUndo, 0, false)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 3)

	state, err = s.Dispatch(editor.CommandTogglePlay, 0, false)
	require.NoError(t, err)
	assert.Len(t, state.Cues, 3)
}

func TestSession_ActiveAndStats(t *testing.T) {
	s := proSession(t)

	id, ok := s.Active(4.5)
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	_, ok = s.Active(3.5)
	assert.False(t, ok)

	stats := s.Stats()
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 7, stats.Words)
}

func TestSession_ExportRoundTrip(t *testing.T) {
	s := proSession(t)
	cues, err := subtitle.Parse(s.Export())
	require.NoError(t, err)
	assert.Equal(t, s.Cues(), cues)
}

func TestSession_ReadersGetCopies(t *testing.T) {
	s := proSession(t)
	cues := s.Cues()
	cues[0].Text = "mutated"
	assert.Equal(t, "Hello there friend", s.Cues()[0].Text)
}

func TestSession_HydrateMarksPersistence(t *testing.T) {
	s := NewSession(1, editor.Policy{})
	state := s.Hydrate(subtitle.Cues{{ID: 1, Text: "a"}}, SourceRemote)
	assert.True(t, state.Cached)
	assert.True(t, state.Synced)
	assert.False(t, state.CanUndo)

	state = s.Hydrate(subtitle.Cues{{ID: 1, Text: "a"}}, SourceCache)
	assert.True(t, state.Cached)
	assert.False(t, state.Synced)
}
