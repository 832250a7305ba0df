package api

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository/memory"
	"alcyxob/training-planner/internal/service"
	"alcyxob/training-planner/internal/session"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	coach  string
}

func newAPIFixture(t *testing.T, opts ...engine.Option) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	svc := service.NewPlanService(store, engine.New(store, opts...), nil, service.ExportOptions{}, nil)
	router := NewRouter(gin.TestMode, "planner-test", logger.Nop())
	SetupRoutes(router, testSecret, svc, session.NewMemoryStore(time.Hour), logger.Nop())
	return &apiFixture{t: t, router: router, coach: token(t, "coach-1", domain.RoleCoach)}
}

func token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request as bearer and decodes a JSON response into out when set.
func (f *apiFixture) do(method, path, bearer string, body interface{}, out interface{}) int {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type plan struct {
	macroID, mesoID string
	weeks           []string
	exerciseID      string
}

// buildPlan creates one mesocycle with two weeks and bench press added
// forward from week 1 with two sets.
func (f *apiFixture) buildPlan() plan {
	f.t.Helper()
	t := f.t
	var p plan

	var macro domain.Macrocycle
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/macrocycles", f.coach,
		gin.H{"name": "Off-season", "studentId": "student-1"}, &macro))
	p.macroID = macro.ID

	var meso domain.Mesocycle
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/macrocycles/"+macro.ID+"/mesocycles", f.coach, nil, &meso))
	p.mesoID = meso.ID

	var week1 engine.AppendResult
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/mesocycles/"+meso.ID+"/microcycles", f.coach, nil, &week1))
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/microcycles/"+week1.Microcycle.ID+"/days", f.coach,
		gin.H{"dayNumber": 1}, nil))

	var added engine.EditResult
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/microcycles/"+week1.Microcycle.ID+"/exercises", f.coach, gin.H{
		"dayNumber":         1,
		"catalogExerciseId": "bench-press",
		"muscleGroup":       "chest",
		"repRange":          "8-10",
		"restMinutes":       2,
		"sets":              []gin.H{{"reps": 8, "load": 80}, {"reps": 8, "load": 80}},
		"scope":             "from-here-forward",
	}, &added))
	p.exerciseID = added.ExerciseID

	var week2 engine.AppendResult
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/mesocycles/"+meso.ID+"/microcycles", f.coach, nil, &week2))
	require.Equal(t, []string{added.ExerciseID}, week2.Materialized)

	p.weeks = []string{week1.Microcycle.ID, week2.Microcycle.ID}
	return p
}

func TestPingAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ping", "", nil, &body))
	assert.Equal(t, "pong", body["message"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAndRoles(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/session", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/session", "not-a-token", nil, nil))

	expired, err := IssueToken(testSecret, "coach-1", domain.RoleCoach, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/session", expired, nil, nil))

	forged, err := IssueToken("other-secret", "coach-1", domain.RoleCoach, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/session", forged, nil, nil))

	student := token(t, "student-1", domain.RoleStudent)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/v1/macrocycles", student,
		gin.H{"name": "Mine", "studentId": "student-1"}, nil))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/students/student-1/macrocycles", student, nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/students/student-2/macrocycles", student, nil, nil))
}

func TestSessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/session", f.coach, nil, nil))

	var saved session.Profile
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/v1/session", f.coach,
		gin.H{"displayName": "Coach", "activeStudentId": "student-9"}, &saved))
	assert.Equal(t, "coach-1", saved.UserID)
	assert.Equal(t, "coach", saved.Role)

	// The active student fills in a macrocycle created without one.
	var macro domain.Macrocycle
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/macrocycles", f.coach, gin.H{"name": "Prep"}, &macro))
	assert.Equal(t, "student-9", macro.StudentID)
	assert.Equal(t, "coach-1", macro.CoachID)

	var loaded session.Profile
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/session", f.coach, nil, &loaded))
	assert.Equal(t, "student-9", loaded.ActiveStudentID)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/session", f.coach, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/session", f.coach, nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/macrocycles", f.coach, gin.H{"name": "Prep"}, nil))
}

func TestScopedEditsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	p := f.buildPlan()
	exercisePath := func(week int) string {
		return "/api/v1/microcycles/" + p.weeks[week] + "/exercises/" + p.exerciseID
	}

	// Scope is mandatory.
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, exercisePath(1), f.coach,
		gin.H{"field": "repRange", "value": "6-8"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, exercisePath(1), f.coach,
		gin.H{"field": "repRange", "value": "6-8", "scope": "everywhere"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, exercisePath(1), f.coach,
		gin.H{"field": "tempo", "value": "3010", "scope": "this-only"}, nil))

	var edit engine.EditResult
	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, exercisePath(1), f.coach,
		gin.H{"field": "restMinutes", "value": 3, "scope": "this-only"}, &edit))
	assert.Equal(t, "3", edit.Value)

	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, exercisePath(1)+"/sets/2", f.coach,
		gin.H{"field": "reps", "value": 6, "scope": "from-here-forward"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, exercisePath(1)+"/sets/zero", f.coach,
		gin.H{"field": "reps", "value": 6, "scope": "this-only"}, nil))

	var week1, week2 engine.MicrocycleView
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/microcycles/"+p.weeks[0], f.coach, nil, &week1))
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/microcycles/"+p.weeks[1], f.coach, nil, &week2))
	ex1, ex2 := week1.Days[0].Exercises[0], week2.Days[0].Exercises[0]
	assert.Equal(t, 2.0, ex1.RestMinutes)
	assert.Equal(t, 3.0, ex2.RestMinutes)
	require.Len(t, ex2.Sets, 2)
	assert.Equal(t, 8, *ex1.Sets[1].Reps)
	assert.Equal(t, 6, *ex2.Sets[1].Reps)

	var added engine.EditResult
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, exercisePath(1)+"/sets", f.coach,
		gin.H{"reps": 12, "isAmrap": true, "scope": "this-only"}, &added))
	assert.Equal(t, 3, added.Position)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, exercisePath(1)+"/sets/3", f.coach, nil, nil))
	var removed engine.DeleteResult
	require.Equal(t, http.StatusOK, f.do(http.MethodDelete, exercisePath(1)+"/sets/3?scope=this-only", f.coach, nil, &removed))
	assert.Equal(t, 3, removed.Position)

	require.Equal(t, http.StatusOK, f.do(http.MethodDelete, exercisePath(0)+"?scope=from-here-forward", f.coach, nil, &removed))
	assert.True(t, removed.TemplateDeleted)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPatch, exercisePath(0), f.coach,
		gin.H{"field": "notes", "value": "gone", "scope": "this-only"}, nil))
}

func TestStrictOverridesReturnConflict(t *testing.T) {
	f := newAPIFixture(t, engine.WithStrictOverrides(true))
	p := f.buildPlan()
	path := func(week int) string {
		return "/api/v1/microcycles/" + p.weeks[week] + "/exercises/" + p.exerciseID
	}

	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, path(1), f.coach,
		gin.H{"field": "repRange", "value": "10-12", "scope": "this-only"}, nil))

	var body map[string]interface{}
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPatch, path(0), f.coach,
		gin.H{"field": "repRange", "value": "6-8", "scope": "from-here-forward"}, &body))
	assert.Equal(t, "repRange", body["field"])
	assert.Equal(t, []interface{}{p.weeks[1]}, body["microcycles"])

	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, path(0), f.coach,
		gin.H{"field": "repRange", "value": "6-8", "scope": "from-here-forward-clearing"}, nil))
	var week2 engine.MicrocycleView
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/microcycles/"+p.weeks[1], f.coach, nil, &week2))
	assert.Equal(t, "6-8", week2.Days[0].Exercises[0].RepRange)
}

func TestHierarchyErrorsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	p := f.buildPlan()

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/macrocycles/missing", f.coach, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/microcycles/missing", f.coach, nil, nil))
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/microcycles/"+p.weeks[0]+"/days", f.coach,
		gin.H{"dayNumber": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/microcycles/"+p.weeks[0]+"/days", f.coach,
		gin.H{"dayNumber": 0}, nil))

	var detail service.MacrocycleDetail
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/macrocycles/"+p.macroID, f.coach, nil, &detail))
	require.Len(t, detail.Mesocycles, 1)

	var micros []domain.Microcycle
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/mesocycles/"+p.mesoID+"/microcycles", f.coach, nil, &micros))
	assert.Len(t, micros, 2)

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPost, "/api/v1/macrocycles/"+p.macroID+"/export", f.coach, nil, nil))
}
