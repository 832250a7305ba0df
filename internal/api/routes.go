package api

import (
	"alcyxob/training-planner/internal/domain" // Needed for RoleMiddleware
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/service"
	"alcyxob/training-planner/internal/session"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter builds the gin engine with recovery, tracing and request logging.
// mode is a gin mode ("debug", "release", "test").
func NewRouter(mode, serviceName string, log *logger.Logger) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), RequestLogger(log))
	return router
}

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	sessions session.Store,
	log *logger.Logger,
) {
	planHandler := NewPlanHandler(planService, log)
	editHandler := NewEditHandler(planService)
	sessionHandler := NewSessionHandler(sessions, log)

	authMiddleware := AuthMiddleware(jwtSecret)
	coachOnly := RoleMiddleware(domain.RoleCoach)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware, SessionMiddleware(sessions, log))
	{
		sessionGroup := protected.Group("/session")
		{
			sessionGroup.GET("", sessionHandler.GetSession)
			sessionGroup.PUT("", sessionHandler.SaveSession)
			sessionGroup.DELETE("", sessionHandler.ClearSession)
		}

		// --- Plan hierarchy ---
		// Reads are open to coaches and students; every write needs the coach role.
		protected.POST("/macrocycles", coachOnly, planHandler.CreateMacrocycle)
		protected.GET("/macrocycles/:id", planHandler.GetMacrocycle)
		protected.POST("/macrocycles/:id/mesocycles", coachOnly, planHandler.CreateMesocycle)
		protected.POST("/macrocycles/:id/export", coachOnly, planHandler.ExportMacrocycle)
		protected.GET("/students/:studentId/macrocycles", planHandler.ListStudentMacrocycles)

		protected.POST("/mesocycles/:id/microcycles", coachOnly, planHandler.AppendMicrocycle)
		protected.GET("/mesocycles/:id/microcycles", planHandler.ListMicrocycles)

		protected.GET("/microcycles/:id", planHandler.GetMicrocycle)
		protected.POST("/microcycles/:id/days", coachOnly, planHandler.AddDay)

		// --- Scoped edits, origin microcycle in the path ---
		edits := protected.Group("/microcycles/:id/exercises")
		edits.Use(coachOnly)
		{
			edits.POST("", editHandler.AddExercise)
			edits.PATCH("/:exerciseId", editHandler.EditExercise)
			edits.DELETE("/:exerciseId", editHandler.DeleteExercise)
			edits.POST("/:exerciseId/sets", editHandler.AddSet)
			edits.PATCH("/:exerciseId/sets/:position", editHandler.EditSet)
			edits.DELETE("/:exerciseId/sets/:position", editHandler.DeleteSet)
		}
	}
}
