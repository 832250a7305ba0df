// Package seed imports plan documents written in YAML. A document describes
// one macrocycle; each mesocycle lists its day layout and the exercises of
// its first week, and the remaining weeks are appended so every exercise
// propagates forward.
package seed

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/service"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidDocument = errors.New("invalid plan document")

type Document struct {
	Macrocycle MacrocycleSpec  `yaml:"macrocycle"`
	Mesocycles []MesocycleSpec `yaml:"mesocycles"`
}

type MacrocycleSpec struct {
	Name      string `yaml:"name"`
	StudentID string `yaml:"studentId"`
	CoachID   string `yaml:"coachId"`
}

type MesocycleSpec struct {
	Name  string    `yaml:"name"`
	Weeks int       `yaml:"weeks"`
	Days  []DaySpec `yaml:"days"`
}

type DaySpec struct {
	Day       int            `yaml:"day"`
	Rest      bool           `yaml:"rest"`
	Date      *time.Time     `yaml:"date"`
	Exercises []ExerciseSpec `yaml:"exercises"`
}

type ExerciseSpec struct {
	ID                string           `yaml:"id"`
	MuscleGroup       string           `yaml:"muscleGroup"`
	CatalogExerciseID string           `yaml:"catalogExerciseId"`
	RepRange          string           `yaml:"repRange"`
	ExpectedRIR       string           `yaml:"expectedRir"`
	RestMinutes       float64          `yaml:"restMinutes"`
	Notes             string           `yaml:"notes"`
	Sets              []domain.SetSpec `yaml:"sets"`
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFile opens and parses path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (d *Document) Validate() error {
	if d.Macrocycle.Name == "" || d.Macrocycle.StudentID == "" {
		return fmt.Errorf("%w: macrocycle name and studentId are required", ErrInvalidDocument)
	}
	for i, meso := range d.Mesocycles {
		if meso.Weeks < 1 {
			return fmt.Errorf("%w: mesocycle %d needs at least one week", ErrInvalidDocument, i+1)
		}
		seen := map[int]bool{}
		for _, day := range meso.Days {
			if day.Day < 1 {
				return fmt.Errorf("%w: mesocycle %d has a non-positive day number", ErrInvalidDocument, i+1)
			}
			if seen[day.Day] {
				return fmt.Errorf("%w: mesocycle %d repeats day %d", ErrInvalidDocument, i+1, day.Day)
			}
			seen[day.Day] = true
			if day.Rest && len(day.Exercises) > 0 {
				return fmt.Errorf("%w: rest day %d lists exercises", ErrInvalidDocument, day.Day)
			}
		}
	}
	return nil
}

// Result summarizes an import.
type Result struct {
	MacrocycleID string   `json:"macrocycleId"`
	Mesocycles   []string `json:"mesocycles"`
	Microcycles  int      `json:"microcycles"`
	Exercises    int      `json:"exercises"`
}

// Import writes the document through the plan service. Each step is its own
// transaction; a failure part way leaves the plan built so far in place and
// the error names the step.
func Import(ctx context.Context, svc service.PlanService, doc *Document) (*Result, error) {
	macro, err := svc.CreateMacrocycle(ctx, doc.Macrocycle.CoachID, doc.Macrocycle.StudentID, doc.Macrocycle.Name)
	if err != nil {
		return nil, fmt.Errorf("create macrocycle: %w", err)
	}
	res := &Result{MacrocycleID: macro.ID, Mesocycles: []string{}}

	for _, spec := range doc.Mesocycles {
		meso, err := svc.CreateMesocycle(ctx, macro.ID, spec.Name)
		if err != nil {
			return res, fmt.Errorf("create mesocycle %q: %w", spec.Name, err)
		}
		res.Mesocycles = append(res.Mesocycles, meso.ID)

		first, err := svc.AppendMicrocycle(ctx, meso.ID, "")
		if err != nil {
			return res, fmt.Errorf("append first week of %q: %w", spec.Name, err)
		}
		res.Microcycles++
		weekID := first.Microcycle.ID

		for _, day := range spec.Days {
			if _, err := svc.AddDay(ctx, weekID, day.Day, day.Rest, day.Date); err != nil {
				return res, fmt.Errorf("add day %d: %w", day.Day, err)
			}
		}
		for _, day := range spec.Days {
			for _, ex := range day.Exercises {
				_, err := svc.ApplyAdd(ctx, engine.AddCommand{
					Item: engine.AddExercise{
						ID:                ex.ID,
						DayNumber:         day.Day,
						MuscleGroup:       ex.MuscleGroup,
						CatalogExerciseID: ex.CatalogExerciseID,
						RepRange:          ex.RepRange,
						ExpectedRIR:       ex.ExpectedRIR,
						RestMinutes:       ex.RestMinutes,
						Notes:             ex.Notes,
						Sets:              ex.Sets,
					},
					Scope:              domain.ScopeFromHereForward,
					OriginMicrocycleID: weekID,
				})
				if err != nil {
					return res, fmt.Errorf("add %s on day %d: %w", ex.CatalogExerciseID, day.Day, err)
				}
				res.Exercises++
			}
		}

		for week := 2; week <= spec.Weeks; week++ {
			if _, err := svc.AppendMicrocycle(ctx, meso.ID, ""); err != nil {
				return res, fmt.Errorf("append week %d of %q: %w", week, spec.Name, err)
			}
			res.Microcycles++
		}
	}
	return res, nil
}
