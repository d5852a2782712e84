package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tuition-server-go/middleware"
)

// NewRouter wires the API routes. auth guards every route but /api/ping.
func NewRouter(h *APIHandler, auth gin.HandlerFunc, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(logger), middleware.Recovery(logger))

	api := router.Group("/api")
	if auth != nil {
		api.Use(auth)
	}
	{
		// Ping route
		api.GET("/ping", PingHandler)

		// Import routes
		api.GET("/import/template", h.ImportTemplate)
		api.GET("/import/template.xlsx", h.ImportTemplateWorkbook)
		api.POST("/import/validate", h.ValidateImport)
		api.POST("/import", h.Import)

		// Student routes
		api.GET("/students", h.GetStudents)
		api.POST("/students", h.AddStudent)
		api.GET("/students/:id", h.GetStudent)
		api.DELETE("/students/:id", h.DeleteStudent)
		api.PATCH("/students/:id/target", h.UpdateStudentTarget)
		api.GET("/students/:id/report.xlsx", h.StudentReport)
		api.DELETE("/students/:id/classes", h.ResetStudentClasses)

		// Class routes
		api.GET("/classes", h.GetClasses)
		api.POST("/classes", h.AddClass)
		api.DELETE("/classes/:id", h.DeleteClass)

		// Payment routes
		api.GET("/payments", h.GetPayments)
		api.POST("/payments", h.AddPayment)
		api.DELETE("/payments/:id", h.DeletePayment)

		// Note routes
		api.GET("/notes", h.GetNotes)
		api.POST("/notes", h.AddNote)
		api.PATCH("/notes/:id", h.UpdateNote)
		api.DELETE("/notes/:id", h.DeleteNote)

		// Settings routes
		api.GET("/settings", h.GetSettings)
		api.GET("/settings/:key", h.GetSetting)
		api.PUT("/settings/:key", h.PutSetting)
	}
	return router
}
