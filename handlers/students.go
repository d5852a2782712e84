package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tuition-server-go/models"
	"tuition-server-go/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- Student Handlers ---

// GetStudents handles GET /api/students?q=
func (h *APIHandler) GetStudents(c *gin.Context) {
	students, err := h.Repo.FindAllStudents(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "Students", "retrieve students")
		return
	}

	filter := models.StudentFilter{Search: c.Query("q")}
	// Return empty list instead of null for JSON consistency
	matched := make([]models.Student, 0, len(students))
	for _, st := range students {
		if filter.Match(st) {
			matched = append(matched, st)
		}
	}
	c.JSON(http.StatusOK, matched)
}

// AddStudent handles POST /api/students
func (h *APIHandler) AddStudent(c *gin.Context) {
	var newStudent models.NewStudent
	if err := c.ShouldBindJSON(&newStudent); err != nil {
		badRequest(c, err)
		return
	}

	students, err := h.Repo.InsertStudents(c.Request.Context(), []models.NewStudent{newStudent})
	if err != nil {
		h.storeError(c, err, "Student", "add student")
		return
	}
	c.JSON(http.StatusCreated, students[0])
}

func (h *APIHandler) studentDetail(c *gin.Context, id string) (models.StudentDetail, error) {
	ctx := c.Request.Context()
	st, err := h.Repo.GetStudent(ctx, id)
	if err != nil {
		return models.StudentDetail{}, err
	}
	detail := models.StudentDetail{Student: st}
	if detail.Classes, err = h.Repo.FindClasses(ctx, models.ClassFilter{StudentID: id}); err != nil {
		return models.StudentDetail{}, err
	}
	if detail.Payments, err = h.Repo.FindPayments(ctx, models.PaymentFilter{StudentID: id}); err != nil {
		return models.StudentDetail{}, err
	}
	if detail.Notes, err = h.Repo.FindNotes(ctx, models.NoteFilter{StudentID: id}); err != nil {
		return models.StudentDetail{}, err
	}
	if detail.Classes == nil {
		detail.Classes = []models.ClassRecord{}
	}
	if detail.Payments == nil {
		detail.Payments = []models.Payment{}
	}
	if detail.Notes == nil {
		detail.Notes = []models.Note{}
	}
	return detail, nil
}

// GetStudent handles GET /api/students/:id
func (h *APIHandler) GetStudent(c *gin.Context) {
	detail, err := h.studentDetail(c, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "Student", "retrieve student details")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteStudent handles DELETE /api/students/:id
func (h *APIHandler) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	if err := h.Repo.DeleteStudent(c.Request.Context(), id); err != nil {
		h.storeError(c, err, "Student", "delete student")
		return
	}
	h.Logger.Info("deleted student", zap.String("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

type targetRequest struct {
	MonthlyTargetClasses *int `json:"monthly_target_classes" binding:"required,gte=0"`
}

// UpdateStudentTarget handles PATCH /api/students/:id/target
func (h *APIHandler) UpdateStudentTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Repo.UpdateStudentTarget(c.Request.Context(), c.Param("id"), *req.MonthlyTargetClasses); err != nil {
		h.storeError(c, err, "Student", "update student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"monthly_target_classes": *req.MonthlyTargetClasses})
}

// StudentReport handles GET /api/students/:id/report.xlsx
func (h *APIHandler) StudentReport(c *gin.Context) {
	detail, err := h.studentDetail(c, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "Student", "retrieve student details")
		return
	}

	f, err := reports.StudentWorkbook(detail)
	if err != nil {
		h.Logger.Error("rendering student report", zap.String("id", detail.Student.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+reports.FileName(detail.Student)+`"`)
	c.Header("Content-Type", xlsxContentType)
	if err := f.Write(c.Writer); err != nil {
		h.Logger.Error("writing student report", zap.String("id", detail.Student.ID), zap.Error(err))
	}
}
