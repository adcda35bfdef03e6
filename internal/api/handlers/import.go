package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"catalogsync/internal/importer"
)

type ImportHandler struct {
	importer *importer.Importer
	logger   zerolog.Logger
}

func NewImportHandler(imp *importer.Importer, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		importer: imp,
		logger:   logger,
	}
}

// Products handles a bulk catalog upload: multipart file + business_id,
// optional enrich flag.
func (h *ImportHandler) Products(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	businessID := c.PostForm("business_id")
	if businessID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
		return
	}
	enrich := c.PostForm("enrich") == "true"

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), file, fileHeader.Filename, businessID, enrich)
	if err != nil {
		var validationErr *importer.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
			return
		}
		h.logger.Error().Err(err).Str("business_id", businessID).Msg("import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"created": result.Created,
		"updated": result.Updated,
		"errors":  result.Errors,
	})
}
