package api

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusForError maps service and engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound),
		errors.Is(err, service.ErrMacrocycleNotFound),
		errors.Is(err, service.ErrMesocycleNotFound),
		errors.Is(err, service.ErrMicrocycleNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidScope),
		errors.Is(err, engine.ErrInvalidValue),
		errors.Is(err, engine.ErrInvalidField),
		errors.Is(err, domain.ErrScopeRequired),
		errors.Is(err, domain.ErrUnknownScope),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrConflictingOverride),
		errors.Is(err, service.ErrDayExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrExportDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondWithError aborts with the mapped status. Internal failures are
// recorded on the context for the request logger and hidden from the client.
func respondWithError(c *gin.Context, err error, internalMsg string) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		abortWithError(c, code, internalMsg)
		return
	}

	var conflict *engine.ConflictingOverrideError
	if errors.As(err, &conflict) {
		c.AbortWithStatusJSON(code, gin.H{
			"error":       err.Error(),
			"field":       conflict.Field,
			"microcycles": conflict.MicrocycleIDs,
		})
		return
	}
	abortWithError(c, code, err.Error())
}
