package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"catalogsync/internal/config"
	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

// JobEnqueuer persists and publishes a sync job. Satisfied by the queue
// publisher; narrowed here so handler tests do not need Kafka.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, integrationID string, jobType models.SyncJobType, payload []byte) (*models.SyncJob, error)
}

var webhookTopics = []string{"products/create", "products/update", "products/delete"}

type ShopifyHandler struct {
	db           *gorm.DB
	config       *config.Config
	oauthService *shopify.OAuthService
	jobs         JobEnqueuer
	logger       zerolog.Logger
}

func NewShopifyHandler(db *gorm.DB, cfg *config.Config, jobs JobEnqueuer, logger zerolog.Logger) *ShopifyHandler {
	return &ShopifyHandler{
		db:           db,
		config:       cfg,
		oauthService: shopify.NewOAuthService(cfg, logger),
		jobs:         jobs,
		logger:       logger,
	}
}

// Install starts the OAuth flow: a pending integration row holds the state
// token the callback must echo back.
func (h *ShopifyHandler) Install(c *gin.Context) {
	var request struct {
		ShopDomain string `json:"shop_domain" binding:"required"`
		BusinessID string `json:"business_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirectURI := h.config.AppURL + "/api/v1/shopify/callback"
	authURL, state, err := h.oauthService.GenerateAuthURL(request.ShopDomain, redirectURI)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate auth URL")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authorization URL"})
		return
	}

	integration := &models.Integration{
		BusinessID: request.BusinessID,
		ShopDomain: normalizeShopDomain(request.ShopDomain),
		Status:     models.IntegrationStatusPending,
		StateToken: state,
	}
	if err := h.db.Create(integration).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to create integration")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create integration"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auth_url":       authURL,
		"integration_id": integration.ID,
		"message":        "Redirect user to the auth_url to complete OAuth flow",
	})
}

// Callback finishes the OAuth flow: token exchange, webhook registration,
// activation, then a fire-and-forget initial full sync via the job queue.
// All failures redirect to the dashboard error page, never render JSON.
func (h *ShopifyHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	shop := c.Query("shop")

	if code == "" || state == "" || shop == "" {
		h.redirectError(c, "Missing required parameters")
		return
	}

	var integration models.Integration
	err := h.db.First(&integration, "state_token = ? AND status = ?", state, models.IntegrationStatusPending).Error
	if err == gorm.ErrRecordNotFound {
		h.redirectError(c, "Invalid or expired state token")
		return
	}
	if err != nil {
		h.redirectError(c, "Failed to look up connection")
		return
	}

	tokenResp, err := h.oauthService.ExchangeCodeForToken(c.Request.Context(), shop, code)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("token exchange failed")
		h.redirectError(c, "Failed to exchange authorization code")
		return
	}

	client := shopify.NewClient(shop, tokenResp.AccessToken, h.logger)
	webhookAddress := h.config.AppURL + "/api/v1/shopify/webhook"
	for _, topic := range webhookTopics {
		if _, err := client.RegisterWebhook(c.Request.Context(), topic, webhookAddress); err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Msg("webhook registration failed")
		}
	}

	integration.AccessToken = tokenResp.AccessToken
	integration.Status = models.IntegrationStatusActive
	integration.ShopDomain = normalizeShopDomain(shop)
	integration.StateToken = ""
	if err := h.db.Save(&integration).Error; err != nil {
		h.logger.Error().Err(err).Str("integration_id", integration.ID).Msg("failed to activate integration")
		h.redirectError(c, "Failed to save connection")
		return
	}

	if _, err := h.jobs.Enqueue(c.Request.Context(), integration.ID, models.SyncJobTypeFull, nil); err != nil {
		// The store is connected; the merchant can trigger a sync manually.
		h.logger.Error().Err(err).Str("integration_id", integration.ID).Msg("failed to enqueue initial sync")
	}

	c.Redirect(http.StatusFound, h.config.DashboardURL+"?success=true")
}

// Webhook receives product events. The HMAC check runs on the raw body
// before anything else; an unverified request never reaches the store.
func (h *ShopifyHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if err := shopify.VerifyWebhookSignature(body, signature, h.config.ShopifyWebhookSecret); err != nil {
		h.logger.Warn().Str("shop", c.GetHeader("X-Shopify-Shop-Domain")).Msg("webhook signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	shopDomain := normalizeShopDomain(c.GetHeader("X-Shopify-Shop-Domain"))
	topic := c.GetHeader("X-Shopify-Topic")

	var integration models.Integration
	err = h.db.First(&integration, "shop_domain = ? AND status = ?", shopDomain, models.IntegrationStatusActive).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active integration for shop"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up integration"})
		return
	}

	var jobType models.SyncJobType
	switch topic {
	case "products/create", "products/update":
		jobType = models.SyncJobTypeItem
	case "products/delete":
		jobType = models.SyncJobTypeItemDelete
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Topic %s ignored", topic)})
		return
	}

	// Respond inside Shopify's response-time budget; reconciliation happens
	// on the worker.
	if _, err := h.jobs.Enqueue(c.Request.Context(), integration.ID, jobType, body); err != nil {
		h.logger.Error().Err(err).Str("integration_id", integration.ID).Str("topic", topic).Msg("failed to enqueue webhook job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ShopifyHandler) redirectError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, h.config.DashboardURL+"/error?message="+url.QueryEscape(message))
}

// normalizeShopDomain canonicalizes to the full myshopify hostname so the
// value stored at install time matches the webhook header later.
func normalizeShopDomain(domain string) string {
	if domain == "" {
		return domain
	}
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")
	if !strings.Contains(domain, ".") {
		domain = domain + ".myshopify.com"
	}
	return strings.ToLower(domain)
}
