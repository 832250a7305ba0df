package seed

import (
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/repository/memory"
	"alcyxob/training-planner/internal/service"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upperLower = `
macrocycle:
  name: Off-season
  studentId: student-1
  coachId: coach-1
mesocycles:
  - name: Accumulation
    weeks: 3
    days:
      - day: 1
        date: 2026-01-05
        exercises:
          - catalogExerciseId: bench-press
            muscleGroup: chest
            repRange: 8-10
            expectedRir: "2"
            restMinutes: 2.5
            sets:
              - {reps: 8, load: 80}
              - {reps: 8, load: 80}
              - {reps: 8, load: 80, isAmrap: true, amrapInstruction: "stop at RIR 1"}
          - catalogExerciseId: barbell-row
            muscleGroup: back
            repRange: 10-12
            sets:
              - {reps: 10, load: 60}
      - day: 2
        rest: true
      - day: 3
        exercises:
          - catalogExerciseId: back-squat
            muscleGroup: quads
            repRange: 5-8
            sets:
              - {reps: 5, load: 120}
`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(upperLower))
	require.NoError(t, err)
	require.Len(t, doc.Mesocycles, 1)
	meso := doc.Mesocycles[0]
	assert.Equal(t, 3, meso.Weeks)
	require.Len(t, meso.Days, 3)
	require.NotNil(t, meso.Days[0].Date)
	assert.Equal(t, 2026, meso.Days[0].Date.Year())
	assert.True(t, meso.Days[1].Rest)

	bench := meso.Days[0].Exercises[0]
	assert.Equal(t, 2.5, bench.RestMinutes)
	require.Len(t, bench.Sets, 3)
	assert.True(t, bench.Sets[2].IsAmrap)
	require.NotNil(t, bench.Sets[0].Load)
	assert.Equal(t, 80.0, *bench.Sets[0].Load)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "macrocycle: {name: A, studentId: s}\nextra: 1\n",
		"missing student": "macrocycle: {name: A}\n",
		"no weeks":        "macrocycle: {name: A, studentId: s}\nmesocycles:\n  - {name: M, weeks: 0}\n",
		"repeated day":    "macrocycle: {name: A, studentId: s}\nmesocycles:\n  - name: M\n    weeks: 1\n    days: [{day: 1}, {day: 1}]\n",
		"busy rest day":   "macrocycle: {name: A, studentId: s}\nmesocycles:\n  - name: M\n    weeks: 1\n    days:\n      - day: 1\n        rest: true\n        exercises: [{catalogExerciseId: x, muscleGroup: y, repRange: 5}]\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(raw))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestImportPropagatesFirstWeek(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewPlanService(store, engine.New(store), nil, service.ExportOptions{}, nil)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(upperLower), 0o600))
	doc, err := ParseFile(path)
	require.NoError(t, err)

	res, err := Import(ctx, svc, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Microcycles)
	assert.Equal(t, 3, res.Exercises)
	require.Len(t, res.Mesocycles, 1)

	micros, err := svc.ListMicrocycles(ctx, res.Mesocycles[0])
	require.NoError(t, err)
	require.Len(t, micros, 3)

	last, err := svc.MicrocycleView(ctx, micros[2].ID)
	require.NoError(t, err)
	require.Len(t, last.Days, 3)
	require.Len(t, last.Days[0].Exercises, 2)
	assert.Empty(t, last.Days[1].Exercises)
	require.Len(t, last.Days[2].Exercises, 1)

	bench := last.Days[0].Exercises[0]
	assert.Equal(t, "bench-press", bench.CatalogExerciseID)
	assert.Len(t, bench.Sets, 3)
	require.NotNil(t, last.Days[0].Date)
	assert.Equal(t, 19, last.Days[0].Date.Day(), "dates shift a week per microcycle")
}
