package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tuition-server-go/db"
	"tuition-server-go/importer"
)

// APIHandler holds the dependencies for API handlers, like the repository and the importer
type APIHandler struct {
	Repo     db.Repository
	Importer *importer.Importer
	Logger   *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(repo db.Repository, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		Repo:     repo,
		Importer: importer.New(repo, logger),
		Logger:   logger,
	}
}

// storeError answers a failed repository call: 404 for a missing entity, 400 for a
// rejected row, 500 otherwise.
func (h *APIHandler) storeError(c *gin.Context, err error, entity, action string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
	case db.IsBatchError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("store call failed", zap.String("action", action), zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
