package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tuition-server-go/db"
)

// DefaultSettings apply to keys that were never saved.
var DefaultSettings = map[string]string{
	"app_name":      "TMS",
	"app_logo_text": "TMS",
	"app_tagline":   "Tuition Management System",
}

// GetSettings handles GET /api/settings
func (h *APIHandler) GetSettings(c *gin.Context) {
	stored, err := h.Repo.GetSettings(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "Settings", "retrieve settings")
		return
	}
	settings := make(map[string]string, len(DefaultSettings)+len(stored))
	for k, v := range DefaultSettings {
		settings[k] = v
	}
	for k, v := range stored {
		settings[k] = v
	}
	c.JSON(http.StatusOK, settings)
}

// GetSetting handles GET /api/settings/:key
func (h *APIHandler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := h.Repo.GetSetting(c.Request.Context(), key)
	if errors.Is(err, db.ErrNotFound) {
		if def, ok := DefaultSettings[key]; ok {
			value, err = def, nil
		}
	}
	if err != nil {
		h.storeError(c, err, "Setting", "retrieve setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

type settingRequest struct {
	Value *string `json:"value" binding:"required"`
}

// PutSetting handles PUT /api/settings/:key
func (h *APIHandler) PutSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	key := c.Param("key")
	if err := h.Repo.UpsertSetting(c.Request.Context(), key, *req.Value); err != nil {
		h.storeError(c, err, "Setting", "save setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": *req.Value})
}
