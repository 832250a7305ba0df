// internal/api/edit_handler.go
package api

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/service"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// EditHandler serves scoped adds, edits and deletes. The microcycle in the
// path is the origin of the change.
type EditHandler struct {
	planService service.PlanService
}

func NewEditHandler(planService service.PlanService) *EditHandler {
	return &EditHandler{planService: planService}
}

// --- DTOs ---

type AddExerciseRequest struct {
	ID                string           `json:"id"` // Optional; makes the call safe to retry
	DayNumber         int              `json:"dayNumber" binding:"required,min=1"`
	CatalogExerciseID string           `json:"catalogExerciseId" binding:"required"`
	MuscleGroup       string           `json:"muscleGroup" binding:"required"`
	RepRange          string           `json:"repRange" binding:"required"`
	ExpectedRIR       string           `json:"expectedRir"`
	RestMinutes       float64          `json:"restMinutes" binding:"min=0"`
	Notes             string           `json:"notes"`
	Sets              []domain.SetSpec `json:"sets"`
	Scope             string           `json:"scope"`
}

type AddSetRequest struct {
	domain.SetSpec
	Scope string `json:"scope"`
}

// EditFieldRequest carries one field change. Value may be a JSON string,
// number or boolean.
type EditFieldRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
	Scope string      `json:"scope"`
}

// --- Handler Methods ---

// AddExercise godoc
// @Summary Add an exercise to a day, scoped this-only, next-only or forward
// @Tags Edits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exercise body AddExerciseRequest true "Exercise"
// @Success 201 {object} engine.EditResult
// @Router /microcycles/{id}/exercises [post]
func (h *EditHandler) AddExercise(c *gin.Context) {
	var req AddExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		respondWithError(c, err, "")
		return
	}

	res, err := h.planService.ApplyAdd(c.Request.Context(), engine.AddCommand{
		Item: engine.AddExercise{
			ID:                req.ID,
			DayNumber:         req.DayNumber,
			MuscleGroup:       req.MuscleGroup,
			CatalogExerciseID: req.CatalogExerciseID,
			RepRange:          req.RepRange,
			ExpectedRIR:       req.ExpectedRIR,
			RestMinutes:       req.RestMinutes,
			Notes:             req.Notes,
			Sets:              req.Sets,
		},
		Scope:              scope,
		OriginMicrocycleID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, err, "Failed to add exercise.")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// EditExercise godoc
// @Summary Change an exercise-level field
// @Tags Edits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exerciseId path string true "Exercise ID"
// @Param edit body EditFieldRequest true "Field change"
// @Success 200 {object} engine.EditResult
// @Failure 409 {object} gin.H "Overrides in range would shadow the edit"
// @Router /microcycles/{id}/exercises/{exerciseId} [patch]
func (h *EditHandler) EditExercise(c *gin.Context) {
	h.applyEdit(c, engine.ExerciseRef{ExerciseID: c.Param("exerciseId")})
}

// DeleteExercise godoc
// @Summary Remove an exercise from this microcycle or from here forward
// @Tags Edits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exerciseId path string true "Exercise ID"
// @Param scope query string true "this-only or from-here-forward"
// @Success 200 {object} engine.DeleteResult
// @Router /microcycles/{id}/exercises/{exerciseId} [delete]
func (h *EditHandler) DeleteExercise(c *gin.Context) {
	h.applyDelete(c, engine.ExerciseRef{ExerciseID: c.Param("exerciseId")})
}

// AddSet godoc
// @Summary Append a set to an exercise
// @Tags Edits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exerciseId path string true "Exercise ID"
// @Param set body AddSetRequest true "Set"
// @Success 201 {object} engine.EditResult
// @Router /microcycles/{id}/exercises/{exerciseId}/sets [post]
func (h *EditHandler) AddSet(c *gin.Context) {
	var req AddSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		respondWithError(c, err, "")
		return
	}

	res, err := h.planService.ApplyAdd(c.Request.Context(), engine.AddCommand{
		Item:               engine.AddSet{ExerciseID: c.Param("exerciseId"), Spec: req.SetSpec},
		Scope:              scope,
		OriginMicrocycleID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, err, "Failed to add set.")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// EditSet godoc
// @Summary Change a set-level field at a position
// @Tags Edits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exerciseId path string true "Exercise ID"
// @Param position path int true "Set position (1-based)"
// @Param edit body EditFieldRequest true "Field change"
// @Success 200 {object} engine.EditResult
// @Router /microcycles/{id}/exercises/{exerciseId}/sets/{position} [patch]
func (h *EditHandler) EditSet(c *gin.Context) {
	ref, ok := setRefFromPath(c)
	if !ok {
		return
	}
	h.applyEdit(c, ref)
}

// DeleteSet godoc
// @Summary Remove a set position from this microcycle or from here forward
// @Tags Edits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Origin microcycle ID"
// @Param exerciseId path string true "Exercise ID"
// @Param position path int true "Set position (1-based)"
// @Param scope query string true "this-only or from-here-forward"
// @Success 200 {object} engine.DeleteResult
// @Router /microcycles/{id}/exercises/{exerciseId}/sets/{position} [delete]
func (h *EditHandler) DeleteSet(c *gin.Context) {
	ref, ok := setRefFromPath(c)
	if !ok {
		return
	}
	h.applyDelete(c, ref)
}

func (h *EditHandler) applyEdit(c *gin.Context, target engine.Target) {
	var req EditFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		respondWithError(c, err, "")
		return
	}
	field, err := domain.ParseField(req.Field)
	if err != nil {
		respondWithError(c, err, "")
		return
	}
	value, err := scalarString(req.Value)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.planService.ApplyEdit(c.Request.Context(), engine.EditCommand{
		Target:             target,
		Field:              field,
		Value:              value,
		Scope:              scope,
		OriginMicrocycleID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, err, "Failed to apply edit.")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EditHandler) applyDelete(c *gin.Context, target engine.Target) {
	scope, err := domain.ParseScope(c.Query("scope"))
	if err != nil {
		respondWithError(c, err, "")
		return
	}
	res, err := h.planService.DeleteEdit(c.Request.Context(), engine.DeleteCommand{
		Target:             target,
		Scope:              scope,
		OriginMicrocycleID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, err, "Failed to delete.")
		return
	}
	c.JSON(http.StatusOK, res)
}

func setRefFromPath(c *gin.Context) (engine.SetRef, bool) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil || position < 1 {
		abortWithError(c, http.StatusBadRequest, "Set position must be a positive integer.")
		return engine.SetRef{}, false
	}
	return engine.SetRef{ExerciseID: c.Param("exerciseId"), Position: position}, true
}

// scalarString renders a decoded JSON scalar in the form the engine parses.
func scalarString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	}
	return "", fmt.Errorf("value must be a string, number or boolean, got %T", v)
}
