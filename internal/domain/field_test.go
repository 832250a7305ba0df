package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		field Field
		raw   string
		want  string
		err   error
	}{
		{FieldRepRange, " 6-8 ", "6-8", nil},
		{FieldRepRange, "", "", ErrInvalidValue},
		{FieldRestMinutes, "2.50", "2.5", nil},
		{FieldRestMinutes, "-1", "", ErrInvalidValue},
		{FieldRestMinutes, "two", "", ErrInvalidValue},
		{FieldExpectedRIR, "", "", nil},
		{FieldSetReps, "08", "8", nil},
		{FieldSetReps, "", "", nil},
		{FieldSetReps, "1.5", "", ErrInvalidValue},
		{FieldSetLoad, "62.50", "62.5", nil},
		{FieldSetIsAmrap, "TRUE", "true", nil},
		{FieldSetIsAmrap, "sometimes", "", ErrInvalidValue},
		{FieldSetStatus, "skipped", "skipped", nil},
		{FieldSetStatus, "done", "", ErrInvalidValue},
		{Field("tempo"), "3-1-1", "", ErrUnknownField},
	}
	for _, tc := range cases {
		t.Run(string(tc.field)+"="+tc.raw, func(t *testing.T) {
			got, err := NormalizeValue(tc.field, tc.raw)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFieldLevels(t *testing.T) {
	for _, f := range ExerciseFields {
		assert.Equal(t, LevelExercise, f.Level(), f)
	}
	assert.Equal(t, LevelSet, FieldSetLoad.Level())
	assert.Equal(t, LevelUnknown, Field("sets").Level())

	f, err := ParseField(" repRange ")
	require.NoError(t, err)
	assert.Equal(t, FieldRepRange, f)
	_, err = ParseField("series")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("from-here-forward")
	require.NoError(t, err)
	assert.True(t, s.Forward())

	s, err = ParseScope("from-here-forward-clearing")
	require.NoError(t, err)
	assert.True(t, s.Forward())

	s, err = ParseScope("next-only")
	require.NoError(t, err)
	assert.False(t, s.Forward())

	_, err = ParseScope("")
	assert.ErrorIs(t, err, ErrScopeRequired)
	_, err = ParseScope("false")
	assert.ErrorIs(t, err, ErrUnknownScope)
	assert.False(t, Scope("").Valid())
}

func TestSetFieldRoundTrip(t *testing.T) {
	s := NewSetInstance("ex-1", "mc-1", 1, SetSpec{})
	assert.Equal(t, SetPending, s.Status)

	changed, err := s.SetField(FieldSetLoad, "80")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 80.0, *s.Load)
	assert.Equal(t, "80", s.FieldValue(FieldSetLoad))

	changed, err = s.SetField(FieldSetLoad, "80")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.SetField(FieldSetLoad, "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, s.Load)

	_, err = s.SetField(FieldRepRange, "6-8")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestLocalEditsRollBackInCarriedSpec(t *testing.T) {
	reps := 8
	s := NewSetInstance("ex-1", "mc-1", 1, SetSpec{Reps: &reps})

	changed, err := s.SetLocal(FieldSetReps, "12")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.SetLocal(FieldSetReps, "10")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 10, *s.Reps)
	assert.Equal(t, map[Field]string{FieldSetReps: "8"}, s.LocalEdits)
	assert.Equal(t, 8, *s.CarriedSpec().Reps)

	_, err = s.SetLocal(FieldSetLoad, "60")
	require.NoError(t, err)
	assert.Nil(t, s.CarriedSpec().Load)
	assert.Equal(t, 60.0, *s.Load, "carried spec must not touch the set")

	_, err = s.SetLocal(FieldSetStatus, string(SetCompleted))
	require.NoError(t, err)
	assert.NotContains(t, s.LocalEdits, FieldSetStatus)

	_, err = s.SetLocal(FieldSetLoad, "")
	require.NoError(t, err)
	assert.NotContains(t, s.LocalEdits, FieldSetLoad)

	changed, err = s.SetCarried(FieldSetReps, "10")
	require.NoError(t, err)
	assert.True(t, changed, "dropping the marker is a change")
	assert.Nil(t, s.LocalEdits)
	assert.Equal(t, 10, *s.CarriedSpec().Reps)
}
