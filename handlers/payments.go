package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tuition-server-go/models"
)

// --- Payment Handlers ---

// GetPayments handles GET /api/payments?student_id=&month=&year=&q=
// q matches the student's name, the month or the year.
func (h *APIHandler) GetPayments(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		Month:     c.Query("month"),
	}
	if year := c.Query("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be a number"})
			return
		}
		filter.Year = y
	}

	ctx := c.Request.Context()
	payments, err := h.Repo.FindPayments(ctx, filter)
	if err != nil {
		h.storeError(c, err, "Payments", "retrieve payments")
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		if payments == nil {
			payments = []models.Payment{}
		}
		c.JSON(http.StatusOK, payments)
		return
	}

	students, err := h.Repo.FindAllStudents(ctx)
	if err != nil {
		h.storeError(c, err, "Students", "retrieve students")
		return
	}
	names := make(map[string]string, len(students))
	for _, st := range students {
		names[st.ID] = strings.ToLower(st.Name)
	}

	matched := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if strings.Contains(names[p.StudentID], q) ||
			strings.Contains(strings.ToLower(p.Month), q) ||
			strings.Contains(strconv.Itoa(p.Year), q) {
			matched = append(matched, p)
		}
	}
	c.JSON(http.StatusOK, matched)
}

// AddPayment handles POST /api/payments
func (h *APIHandler) AddPayment(c *gin.Context) {
	var newPayment models.NewPayment
	if err := c.ShouldBindJSON(&newPayment); err != nil {
		badRequest(c, err)
		return
	}

	payments, err := h.Repo.InsertPayments(c.Request.Context(), []models.NewPayment{newPayment})
	if err != nil {
		h.storeError(c, err, "Payment", "add payment")
		return
	}
	c.JSON(http.StatusCreated, payments[0])
}

// DeletePayment handles DELETE /api/payments/:id
func (h *APIHandler) DeletePayment(c *gin.Context) {
	if err := h.Repo.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err, "Payment", "delete payment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}
