package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTemplate() *ExerciseTemplate {
	return &ExerciseTemplate{
		ID:          "ex-1",
		RepRange:    "8-10",
		ExpectedRIR: "2",
		RestMinutes: 2,
		OriginOrder: 2,
	}
}

func TestReviseFromOriginReplacesBase(t *testing.T) {
	tmpl := newTemplate()
	assert.True(t, tmpl.Revise(FieldRepRange, "6-8", 2))
	assert.Equal(t, "6-8", tmpl.RepRange)
	assert.Empty(t, tmpl.Revisions)
	assert.False(t, tmpl.Revise(FieldRepRange, "6-8", 2))

	assert.True(t, tmpl.Revise(FieldRestMinutes, "2.5", 1))
	assert.Equal(t, 2.5, tmpl.RestMinutes)
}

func TestReviseLaterOrderKeepsEarlierValue(t *testing.T) {
	tmpl := newTemplate()
	assert.True(t, tmpl.Revise(FieldRepRange, "6-8", 4))

	assert.Equal(t, "8-10", tmpl.ValueAt(FieldRepRange, 2))
	assert.Equal(t, "8-10", tmpl.ValueAt(FieldRepRange, 3))
	assert.Equal(t, "6-8", tmpl.ValueAt(FieldRepRange, 4))
	assert.Equal(t, "6-8", tmpl.ValueAt(FieldRepRange, 9))
	assert.Equal(t, "2", tmpl.ValueAt(FieldExpectedRIR, 9), "other fields unaffected")
}

func TestReviseDropsLaterRevisionsOfSameField(t *testing.T) {
	tmpl := newTemplate()
	tmpl.Revise(FieldRepRange, "6-8", 4)
	tmpl.Revise(FieldRepRange, "5-6", 6)
	tmpl.Revise(FieldNotes, "pause", 6)

	assert.True(t, tmpl.Revise(FieldRepRange, "7-9", 3))
	assert.Equal(t, "8-10", tmpl.ValueAt(FieldRepRange, 2))
	assert.Equal(t, "7-9", tmpl.ValueAt(FieldRepRange, 3))
	assert.Equal(t, "7-9", tmpl.ValueAt(FieldRepRange, 6))
	assert.Equal(t, "pause", tmpl.ValueAt(FieldNotes, 6))
	assert.Len(t, tmpl.Revisions, 2)
}

func TestReviseToCurrentValueIsNoOp(t *testing.T) {
	tmpl := newTemplate()
	assert.False(t, tmpl.Revise(FieldRepRange, "8-10", 5))
	assert.Empty(t, tmpl.Revisions)

	tmpl.Revise(FieldRepRange, "6-8", 4)
	assert.False(t, tmpl.Revise(FieldRepRange, "6-8", 4))
	assert.False(t, tmpl.Revise(FieldRepRange, "6-8", 5))
	assert.Len(t, tmpl.Revisions, 1)
}

func TestReviseDoesNotAliasCopies(t *testing.T) {
	tmpl := newTemplate()
	tmpl.Revise(FieldRepRange, "6-8", 4)
	tmpl.Revise(FieldRepRange, "5-6", 6)
	snapshot := *tmpl

	tmpl.Revise(FieldRepRange, "7-9", 3)
	assert.Equal(t, "5-6", snapshot.ValueAt(FieldRepRange, 6))
}

func TestLiveAtAndRetire(t *testing.T) {
	tmpl := newTemplate()
	assert.False(t, tmpl.LiveAt(1))
	assert.True(t, tmpl.LiveAt(2))
	assert.True(t, tmpl.LiveAt(10))

	tmpl.Retire(5)
	assert.True(t, tmpl.LiveAt(4))
	assert.False(t, tmpl.LiveAt(5))

	tmpl.Retire(7)
	assert.Equal(t, 5, *tmpl.RetiredFromOrder, "retirement never moves later")
	tmpl.Retire(3)
	assert.False(t, tmpl.LiveAt(3))
}

func TestSetTombstones(t *testing.T) {
	tmpl := newTemplate()
	assert.True(t, tmpl.RetireSetPosition(3, 5))
	assert.False(t, tmpl.SetPositionRetired(3, 4))
	assert.True(t, tmpl.SetPositionRetired(3, 5))
	assert.False(t, tmpl.SetPositionRetired(2, 5))

	assert.False(t, tmpl.RetireSetPosition(3, 6))
	assert.True(t, tmpl.RetireSetPosition(3, 4))
	assert.True(t, tmpl.SetPositionRetired(3, 4))
	assert.Len(t, tmpl.SetTombstones, 1)
}
