package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planYAML = `
macrocycle: {name: Base, studentId: student-1, coachId: coach-1}
mesocycles:
  - name: Hypertrophy
    weeks: 2
    days:
      - day: 1
        exercises:
          - catalogExerciseId: squat
            muscleGroup: quads
            repRange: 6-8
            sets: [{reps: 6, load: 100}]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", t.TempDir(), "--log", "prod"}, args...))
	err := rootCmd.Execute()
	application = nil
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o600))

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	var res struct {
		MacrocycleID string `json:"macrocycleId"`
		Microcycles  int    `json:"microcycles"`
		Exercises    int    `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.MacrocycleID)
	assert.Equal(t, 2, res.Microcycles)
	assert.Equal(t, 1, res.Exercises)
}

func TestGCCommand(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	out, err := execute(t, "gc")
	require.NoError(t, err)
	assert.Equal(t, "removed 0 orphaned overrides\n", out)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "coach-1")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	out, err := execute(t, "token", "coach-1", "--role", "coach")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."), "compact JWS has three segments")

	_, err = execute(t, "token", "coach-1", "--role", "admin")
	assert.Error(t, err)
}
