package editor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/history"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

func sampleCues() subtitle.Cues {
	return subtitle.Cues{
		{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:03,000", Text: "one"},
		{ID: 2, StartTime: "00:00:04,000", EndTime: "00:00:06,000", Text: "two"},
		{ID: 5, StartTime: "00:00:07,000", EndTime: "00:00:09,000", Text: "three"},
	}
}

func TestAdd_AfterCue(t *testing.T) {
	in := sampleCues()
	out := Add(2, true)(in)

	require.Len(t, out, 4)
	assert.Equal(t, subtitle.Cue{ID: 6, StartTime: "00:00:06,000", EndTime: "00:00:08,000"}, out[2])
	assert.Equal(t, 5, out[3].ID)
	assert.Len(t, in, 3, "input must not change")
}

func TestAdd_AppendsWhenMissingOrEmpty(t *testing.T) {
	out := Add(0, false)(nil)
	require.Len(t, out, 1)
	assert.Equal(t, subtitle.Cue{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:02,000"}, out[0])

	out = Add(42, true)(sampleCues())
	require.Len(t, out, 4)
	assert.Equal(t, 6, out[3].ID)
	assert.Equal(t, "00:00:00,000", out[3].StartTime)
}

func TestDelete(t *testing.T) {
	out := Delete(2)(sampleCues())
	require.Len(t, out, 2)
	assert.Equal(t, []int{1, 5}, ids(out))

	in := sampleCues()
	assert.Equal(t, in, Delete(99)(in))
}

func TestUpdateField(t *testing.T) {
	in := sampleCues()
	out := UpdateField(2, subtitle.FieldText, "changed")(in)
	assert.Equal(t, "changed", out[1].Text)
	assert.Equal(t, "00:00:04,000", out[1].StartTime)
	assert.Equal(t, "two", in[1].Text, "input must not change")

	out = UpdateField(5, subtitle.FieldEndTime, "00:00:10,000")(in)
	assert.Equal(t, "00:00:10,000", out[2].EndTime)

	assert.Equal(t, in, UpdateField(99, subtitle.FieldText, "x")(in))
	assert.Equal(t, in, UpdateField(1, subtitle.Field("id"), "x")(in))
}

func TestSplit_SpansOriginalInterval(t *testing.T) {
	in := subtitle.Cues{
		{ID: 3, StartTime: "00:00:10,000", EndTime: "00:00:20,001", Text: "a b c d e"},
		{ID: 4, StartTime: "00:00:21,000", EndTime: "00:00:22,000", Text: "tail"},
	}
	out := Split(3)(in)
	require.Len(t, out, 3)

	mid := subtitle.CalculateMidTime("00:00:10,000", "00:00:20,001")
	first, second := out[0], out[1]
	assert.Equal(t, 3, first.ID)
	assert.Equal(t, 5, second.ID)
	assert.Equal(t, "00:00:10,000", first.StartTime)
	assert.Equal(t, mid, first.EndTime)
	assert.Equal(t, mid, second.StartTime)
	assert.Equal(t, "00:00:20,001", second.EndTime)
	assert.Equal(t, "a b", first.Text)
	assert.Equal(t, "c d e", second.Text)
	assert.Equal(t, strings.Fields("a b c d e"), strings.Fields(first.Text+" "+second.Text))
	assert.Equal(t, "tail", out[2].Text)
}

func TestMerge_InverseOfSplit(t *testing.T) {
	orig := subtitle.Cue{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:04,000", Text: "hello big world"}
	split := Split(1)(subtitle.Cues{orig})
	require.Len(t, split, 2)

	merged := Merge(1)(split)
	require.Len(t, merged, 1)
	assert.Equal(t, orig.StartTime, merged[0].StartTime)
	assert.Equal(t, orig.EndTime, merged[0].EndTime)
	assert.Equal(t, split[0].Text+"\n"+split[1].Text, merged[0].Text)
	assert.Equal(t, 1, merged[0].ID)
}

func TestMerge_PicksCloserNeighbour(t *testing.T) {
	cues := subtitle.Cues{
		{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:01,000", Text: "a"},
		{ID: 2, StartTime: "00:00:01,500", EndTime: "00:00:02,000", Text: "b"},
		{ID: 3, StartTime: "00:00:05,000", EndTime: "00:00:06,000", Text: "c"},
	}
	out := Merge(2)(cues)
	require.Len(t, out, 2)
	assert.Equal(t, subtitle.Cue{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:02,000", Text: "a\nb"}, out[0])
	assert.Equal(t, 3, out[1].ID)
}

func TestMerge_TieGoesToSuccessor(t *testing.T) {
	cues := subtitle.Cues{
		{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:01,000", Text: "a"},
		{ID: 2, StartTime: "00:00:02,000", EndTime: "00:00:03,000", Text: "b"},
		{ID: 3, StartTime: "00:00:04,000", EndTime: "00:00:05,000", Text: "c"},
	}
	out := Merge(2)(cues)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, subtitle.Cue{ID: 2, StartTime: "00:00:02,000", EndTime: "00:00:05,000", Text: "b\nc"}, out[1])
}

func TestMerge_SingleNeighbourAndNoNeighbour(t *testing.T) {
	cues := sampleCues()
	out := Merge(5)(cues)
	require.Len(t, out, 2)
	assert.Equal(t, "two\nthree", out[1].Text)
	assert.Equal(t, 2, out[1].ID)

	out = Merge(1)(cues)
	assert.Equal(t, "one\ntwo", out[0].Text)

	lone := subtitle.Cues{{ID: 1, Text: "only"}}
	assert.Equal(t, lone, Merge(1)(lone))
	assert.Equal(t, cues, Merge(99)(cues))
}

func TestRechunk_IntervalCoverage(t *testing.T) {
	in := subtitle.Cues{{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:10,000", Text: "one two three four"}}
	out := Rechunk(2)(in)

	require.Len(t, out, 2)
	assert.Equal(t, subtitle.Cue{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:05,000", Text: "one two"}, out[0])
	assert.Equal(t, subtitle.Cue{ID: 2, StartTime: "00:00:05,000", EndTime: "00:00:10,000", Text: "three four"}, out[1])
}

func TestRechunk_UnevenSpanEndsExactly(t *testing.T) {
	in := subtitle.Cues{{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:01,000", Text: "a b c d e f g"}}
	out := Rechunk(2)(in)

	require.Len(t, out, 4)
	assert.Equal(t, "00:00:00,000", out[0].StartTime)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, out[i-1].EndTime, out[i].StartTime)
	}
	assert.Equal(t, "00:00:01,000", out[3].EndTime)
	assert.Equal(t, "g", out[3].Text)
}

func TestRechunk_SharedIDCounter(t *testing.T) {
	in := subtitle.Cues{
		{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:03,000", Text: "a b c"},
		{ID: 7, StartTime: "00:00:03,000", EndTime: "00:00:04,000", Text: "short"},
		{ID: 2, StartTime: "00:00:04,000", EndTime: "00:00:06,000", Text: "d e f"},
	}
	out := Rechunk(1)(in)

	assert.Equal(t, []int{1, 8, 9, 7, 2, 10, 11}, ids(out))
}

func TestRechunk_RejectsNonPositive(t *testing.T) {
	in := sampleCues()
	assert.Equal(t, in, Rechunk(0)(in))
}

func TestOperationsThroughHistory(t *testing.T) {
	h := history.New(sampleCues())
	h.Perform(Split(1))
	h.Perform(Delete(2))
	h.Perform(Add(5, true))

	assert.Len(t, h.Present(), 4)
	h.Undo()
	h.Undo()
	h.Undo()
	assert.Equal(t, sampleCues(), h.Present())
}

func ids(cues subtitle.Cues) []int {
	out := make([]int, 0, len(cues))
	for _, c := range cues {
		out = append(out, c.ID)
	}
	return out
}
