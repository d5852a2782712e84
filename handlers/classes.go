package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tuition-server-go/models"
)

// --- Class Handlers ---

// GetClasses handles GET /api/classes?student_id=&from=&to=
func (h *APIHandler) GetClasses(c *gin.Context) {
	filter := models.ClassFilter{
		StudentID: c.Query("student_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	classes, err := h.Repo.FindClasses(c.Request.Context(), filter)
	if err != nil {
		h.storeError(c, err, "Classes", "retrieve classes")
		return
	}
	if classes == nil {
		c.JSON(http.StatusOK, []models.ClassRecord{})
		return
	}
	c.JSON(http.StatusOK, classes)
}

// AddClass handles POST /api/classes
func (h *APIHandler) AddClass(c *gin.Context) {
	var newClass models.NewClassRecord
	if err := c.ShouldBindJSON(&newClass); err != nil {
		badRequest(c, err)
		return
	}
	if newClass.CompletedCount == 0 {
		newClass.CompletedCount = 1
	}

	classes, err := h.Repo.InsertClasses(c.Request.Context(), []models.NewClassRecord{newClass})
	if err != nil {
		h.storeError(c, err, "Class", "add class")
		return
	}
	c.JSON(http.StatusCreated, classes[0])
}

// DeleteClass handles DELETE /api/classes/:id
func (h *APIHandler) DeleteClass(c *gin.Context) {
	if err := h.Repo.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err, "Class", "delete class")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}

// ResetStudentClasses handles DELETE /api/students/:id/classes
func (h *APIHandler) ResetStudentClasses(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.Repo.GetStudent(ctx, id); err != nil {
		h.storeError(c, err, "Student", "retrieve student")
		return
	}
	if err := h.Repo.DeleteClassesByStudent(ctx, id); err != nil {
		h.storeError(c, err, "Student", "reset classes")
		return
	}
	h.Logger.Info("reset classes", zap.String("student_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Classes reset"})
}
