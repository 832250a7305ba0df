// internal/api/plan_handler.go
package api

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PlanHandler serves the plan hierarchy, effective reads and exports.
type PlanHandler struct {
	planService service.PlanService
	log         *logger.Logger
}

func NewPlanHandler(planService service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, log: log.With("handler", "PlanHandler")}
}

// --- DTOs ---

// CreateMacrocycleRequest may omit studentId when the coach's session has an
// active student.
type CreateMacrocycleRequest struct {
	Name      string `json:"name" binding:"required"`
	StudentID string `json:"studentId"`
}

type CreateMesocycleRequest struct {
	Name string `json:"name"`
}

type AppendMicrocycleRequest struct {
	Name string `json:"name"`
}

type AddDayRequest struct {
	DayNumber int        `json:"dayNumber" binding:"required,min=1"`
	IsRestDay bool       `json:"isRestDay"`
	Date      *time.Time `json:"date"`
}

// --- Handler Methods ---

// CreateMacrocycle godoc
// @Summary Create a macrocycle for a student
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param macrocycle body CreateMacrocycleRequest true "Macrocycle"
// @Success 201 {object} domain.Macrocycle
// @Failure 400 {object} gin.H "Invalid input"
// @Router /macrocycles [post]
func (h *PlanHandler) CreateMacrocycle(c *gin.Context) {
	var req CreateMacrocycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		if p := profileFromContext(c); p != nil {
			studentID = p.ActiveStudentID
		}
	}

	macro, err := h.planService.CreateMacrocycle(c.Request.Context(), coachID, studentID, req.Name)
	if err != nil {
		respondWithError(c, err, "Failed to create macrocycle.")
		return
	}
	c.JSON(http.StatusCreated, macro)
}

// GetMacrocycle godoc
// @Summary Get a macrocycle with its mesocycles
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Macrocycle ID"
// @Success 200 {object} service.MacrocycleDetail
// @Failure 404 {object} gin.H "Not found"
// @Router /macrocycles/{id} [get]
func (h *PlanHandler) GetMacrocycle(c *gin.Context) {
	detail, err := h.planService.GetMacrocycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err, "Failed to retrieve macrocycle.")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListStudentMacrocycles godoc
// @Summary List a student's macrocycles
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {array} domain.Macrocycle
// @Router /students/{studentId}/macrocycles [get]
func (h *PlanHandler) ListStudentMacrocycles(c *gin.Context) {
	studentID := c.Param("studentId")
	role, _ := getUserRoleFromContext(c)
	if role == domain.RoleStudent {
		if userID, _ := getUserIDFromContext(c); userID != studentID {
			abortWithError(c, http.StatusForbidden, "Students can only list their own plans.")
			return
		}
	}

	list, err := h.planService.ListMacrocycles(c.Request.Context(), studentID)
	if err != nil {
		respondWithError(c, err, "Failed to retrieve macrocycles.")
		return
	}
	if list == nil {
		list = []domain.Macrocycle{} // Return empty JSON array, not null
	}
	c.JSON(http.StatusOK, list)
}

// CreateMesocycle godoc
// @Summary Append a mesocycle to a macrocycle
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Macrocycle ID"
// @Success 201 {object} domain.Mesocycle
// @Router /macrocycles/{id}/mesocycles [post]
func (h *PlanHandler) CreateMesocycle(c *gin.Context) {
	var req CreateMesocycleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	meso, err := h.planService.CreateMesocycle(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondWithError(c, err, "Failed to create mesocycle.")
		return
	}
	c.JSON(http.StatusCreated, meso)
}

// AppendMicrocycle godoc
// @Summary Append a microcycle; forward-scoped exercises materialize into it
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 201 {object} engine.AppendResult
// @Router /mesocycles/{id}/microcycles [post]
func (h *PlanHandler) AppendMicrocycle(c *gin.Context) {
	var req AppendMicrocycleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.planService.AppendMicrocycle(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondWithError(c, err, "Failed to append microcycle.")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListMicrocycles godoc
// @Summary List the microcycles of a mesocycle in order
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 200 {array} domain.Microcycle
// @Router /mesocycles/{id}/microcycles [get]
func (h *PlanHandler) ListMicrocycles(c *gin.Context) {
	list, err := h.planService.ListMicrocycles(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err, "Failed to retrieve microcycles.")
		return
	}
	if list == nil {
		list = []domain.Microcycle{}
	}
	c.JSON(http.StatusOK, list)
}

// AddDay godoc
// @Summary Add a training or rest day to a microcycle
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Microcycle ID"
// @Param day body AddDayRequest true "Day"
// @Success 201 {object} domain.Day
// @Failure 409 {object} gin.H "Day number already used"
// @Router /microcycles/{id}/days [post]
func (h *PlanHandler) AddDay(c *gin.Context) {
	var req AddDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	day, err := h.planService.AddDay(c.Request.Context(), c.Param("id"), req.DayNumber, req.IsRestDay, req.Date)
	if err != nil {
		respondWithError(c, err, "Failed to add day.")
		return
	}
	c.JSON(http.StatusCreated, day)
}

// GetMicrocycle godoc
// @Summary Effective view of a microcycle: templates with overrides applied
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Microcycle ID"
// @Success 200 {object} engine.MicrocycleView
// @Router /microcycles/{id} [get]
func (h *PlanHandler) GetMicrocycle(c *gin.Context) {
	view, err := h.planService.MicrocycleView(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err, "Failed to resolve microcycle.")
		return
	}
	c.JSON(http.StatusOK, view)
}

// ExportMacrocycle godoc
// @Summary Export the effective plan to object storage
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Macrocycle ID"
// @Success 201 {object} domain.PlanExport
// @Failure 503 {object} gin.H "Object storage not configured"
// @Router /macrocycles/{id}/export [post]
func (h *PlanHandler) ExportMacrocycle(c *gin.Context) {
	export, err := h.planService.ExportMacrocycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err, "Failed to export plan.")
		return
	}
	h.log.Info("Export requested", "macrocycle", export.MacrocycleID, "size", export.Size)
	c.JSON(http.StatusCreated, export)
}

// bindOptionalJSON binds a body when one was sent.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
