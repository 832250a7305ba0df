// internal/api/session_handler.go
package api

import (
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/session"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	store session.Store
	log   *logger.Logger
}

func NewSessionHandler(store session.Store, log *logger.Logger) *SessionHandler {
	return &SessionHandler{store: store, log: log.With("handler", "SessionHandler")}
}

// SaveSessionRequest is the mutable part of a profile. Identity comes from the token.
type SaveSessionRequest struct {
	DisplayName        string `json:"displayName"`
	ActiveStudentID    string `json:"activeStudentId"`
	ActiveMacrocycleID string `json:"activeMacrocycleId"`
}

// GetSession godoc
// @Summary Load the caller's session profile
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} session.Profile
// @Failure 404 {object} gin.H "No active session"
// @Router /session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	profile, err := h.store.Load(c.Request.Context(), userID)
	if errors.Is(err, session.ErrNoSession) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveSession godoc
// @Summary Save the caller's active student and plan
// @Tags Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body SaveSessionRequest true "Profile"
// @Success 200 {object} session.Profile
// @Router /session [put]
func (h *SessionHandler) SaveSession(c *gin.Context) {
	var req SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	role, _ := getUserRoleFromContext(c)

	profile := &session.Profile{
		UserID:             userID,
		Role:               string(role),
		DisplayName:        req.DisplayName,
		ActiveStudentID:    req.ActiveStudentID,
		ActiveMacrocycleID: req.ActiveMacrocycleID,
	}
	if err := h.store.Save(c.Request.Context(), profile); err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to save session.")
		return
	}
	h.log.Debug("Session saved", "user", userID, "student", req.ActiveStudentID)
	c.JSON(http.StatusOK, profile)
}

// ClearSession godoc
// @Summary Log out: drop the caller's session profile
// @Tags Session
// @Security BearerAuth
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) ClearSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	if err := h.store.Clear(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to clear session.")
		return
	}
	c.Status(http.StatusNoContent)
}
