package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tuition-server-go/models"
)

// --- Note Handlers ---

// GetNotes handles GET /api/notes?student_id=&q=
func (h *APIHandler) GetNotes(c *gin.Context) {
	filter := models.NoteFilter{StudentID: c.Query("student_id"), Search: c.Query("q")}
	notes, err := h.Repo.FindNotes(c.Request.Context(), filter)
	if err != nil {
		h.storeError(c, err, "Notes", "retrieve notes")
		return
	}
	if notes == nil {
		c.JSON(http.StatusOK, []models.Note{})
		return
	}
	c.JSON(http.StatusOK, notes)
}

// AddNote handles POST /api/notes
func (h *APIHandler) AddNote(c *gin.Context) {
	var newNote models.NewNote
	if err := c.ShouldBindJSON(&newNote); err != nil {
		badRequest(c, err)
		return
	}

	notes, err := h.Repo.InsertNotes(c.Request.Context(), []models.NewNote{newNote})
	if err != nil {
		h.storeError(c, err, "Note", "add note")
		return
	}
	c.JSON(http.StatusCreated, notes[0])
}

type noteTextRequest struct {
	NoteText string `json:"note_text" binding:"required"`
}

// UpdateNote handles PATCH /api/notes/:id
func (h *APIHandler) UpdateNote(c *gin.Context) {
	var req noteTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Repo.UpdateNoteText(c.Request.Context(), c.Param("id"), req.NoteText); err != nil {
		h.storeError(c, err, "Note", "update note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "note_text": req.NoteText})
}

// DeleteNote handles DELETE /api/notes/:id
func (h *APIHandler) DeleteNote(c *gin.Context) {
	if err := h.Repo.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err, "Note", "delete note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}
