package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tuition-server-go/importer"
)

const maxUploadSize = 10 << 20

// readImportDocument accepts either a raw JSON body or a multipart upload in
// the "file" field (.json or .xlsx).
func (h *APIHandler) readImportDocument(c *gin.Context) (any, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
		return importer.Parse(data)
	}

	file, header, err := c.Request.FormFile("file") // "file" is the name attribute in the form
	if err != nil {
		return nil, errors.Wrap(err, "retrieving uploaded file")
	}
	defer file.Close()

	h.Logger.Info("received import upload", zap.String("file", header.Filename), zap.Int64("size", header.Size))

	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		return importer.ParseWorkbook(file)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	return importer.Parse(data)
}

// ValidateImport handles POST /api/import/validate
func (h *APIHandler) ValidateImport(c *gin.Context) {
	doc, err := h.readImportDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, importer.Validate(doc))
}

// Import handles POST /api/import
func (h *APIHandler) Import(c *gin.Context) {
	doc, err := h.readImportDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := importer.Validate(doc)
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"valid":  false,
			"errors": result.Errors,
		})
		return
	}

	report, err := h.Importer.Import(c.Request.Context(), importer.Decode(doc))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImportTemplate handles GET /api/import/template
func (h *APIHandler) ImportTemplate(c *gin.Context) {
	data, err := importer.TemplateJSON()
	if err != nil {
		h.Logger.Error("rendering template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render template"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+importer.TemplateFileName+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportTemplateWorkbook handles GET /api/import/template.xlsx
func (h *APIHandler) ImportTemplateWorkbook(c *gin.Context) {
	f, err := importer.TemplateWorkbook()
	if err != nil {
		h.Logger.Error("rendering workbook template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render template"})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+importer.WorkbookTemplateFileName+`"`)
	c.Header("Content-Type", xlsxContentType)
	if err := f.Write(c.Writer); err != nil {
		h.Logger.Error("writing workbook template", zap.Error(err))
	}
}
