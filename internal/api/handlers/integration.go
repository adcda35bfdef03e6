package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"catalogsync/internal/catalog"
	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

type IntegrationHandler struct {
	db     *gorm.DB
	syncer *catalog.Syncer
	logger zerolog.Logger
}

func NewIntegrationHandler(db *gorm.DB, syncer *catalog.Syncer, logger zerolog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		db:     db,
		syncer: syncer,
		logger: logger,
	}
}

func (h *IntegrationHandler) List(c *gin.Context) {
	var integrations []models.Integration

	query := h.db.Model(&models.Integration{})
	if businessID := c.Query("business_id"); businessID != "" {
		query = query.Where("business_id = ?", businessID)
	}

	if err := query.Find(&integrations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch integrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": integrations})
}

func (h *IntegrationHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var integration models.Integration
	if err := h.db.First(&integration, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch integration"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": integration})
}

// Sync runs a full sync pass synchronously and returns its counters.
func (h *IntegrationHandler) Sync(c *gin.Context) {
	id := c.Param("id")

	var request struct {
		BusinessID string `json:"businessId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var integration models.Integration
	err := h.db.First(&integration, "id = ? AND business_id = ?", id, request.BusinessID).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch integration"})
		return
	}

	if integration.Status != models.IntegrationStatusActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Integration is not active"})
		return
	}

	client := shopify.NewClient(integration.ShopDomain, integration.AccessToken, h.logger)
	result, err := h.syncer.FullSync(c.Request.Context(), &integration, client)
	if err != nil {
		h.logger.Error().Err(err).Str("integration_id", integration.ID).Msg("manual sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed", "stats": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sync completed",
		"stats": gin.H{
			"totalProducts": result.TotalProducts,
			"created":       result.Created,
			"updated":       result.Updated,
			"skipped":       result.Skipped,
			"errors":        result.Errors,
		},
	})
}

// Disconnect marks the integration disconnected. Synced products stay.
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	id := c.Param("id")

	result := h.db.Model(&models.Integration{}).
		Where("id = ?", id).
		Update("status", models.IntegrationStatusDisconnected)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect integration"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Integration disconnected"})
}
