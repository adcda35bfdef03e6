package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"catalogsync/internal/config"
	"catalogsync/internal/database"
	"catalogsync/internal/models"
)

type stubEnqueuer struct {
	jobs []*models.SyncJob
	db   *gorm.DB
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, integrationID string, jobType models.SyncJobType, payload []byte) (*models.SyncJob, error) {
	job := &models.SyncJob{
		IntegrationID: integrationID,
		Type:          jobType,
		Status:        models.SyncJobStatusQueued,
		Payload:       payload,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}
	s.jobs = append(s.jobs, job)
	return job, nil
}

func newWebhookTest(t *testing.T) (*gin.Engine, *gorm.DB, *stubEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{ShopifyWebhookSecret: "shhh", DashboardURL: "http://localhost:3000/dashboard"}
	jobs := &stubEnqueuer{db: db}
	handler := NewShopifyHandler(db, cfg, jobs, zerolog.Nop())

	router := gin.New()
	router.POST("/webhook", handler.Webhook)
	return router, db, jobs
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, body []byte, signature, shop, topic string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", signature)
	req.Header.Set("X-Shopify-Shop-Domain", shop)
	req.Header.Set("X-Shopify-Topic", topic)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func activeIntegration(t *testing.T, db *gorm.DB) *models.Integration {
	t.Helper()
	integ := &models.Integration{
		BusinessID: "biz-1",
		ShopDomain: "acme.myshopify.com",
		Status:     models.IntegrationStatusActive,
	}
	require.NoError(t, db.Create(integ).Error)
	return integ
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, db, jobs := newWebhookTest(t)
	activeIntegration(t, db)

	body := []byte(`{"id":123,"title":"Silla"}`)
	w := postWebhook(router, body, signBody(body, "wrong-secret"), "acme.myshopify.com", "products/create")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Nothing may be written before the signature check passes.
	assert.Empty(t, jobs.jobs)
	var count int64
	db.Model(&models.SyncJob{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestWebhookEnqueuesItemJob(t *testing.T) {
	router, db, jobs := newWebhookTest(t)
	integ := activeIntegration(t, db)

	body := []byte(`{"id":123,"title":"Silla"}`)
	w := postWebhook(router, body, signBody(body, "shhh"), "acme.myshopify.com", "products/update")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	require.Len(t, jobs.jobs, 1)
	job := jobs.jobs[0]
	assert.Equal(t, integ.ID, job.IntegrationID)
	assert.Equal(t, models.SyncJobTypeItem, job.Type)
	assert.Equal(t, body, job.Payload)
}

func TestWebhookEnqueuesDeleteJob(t *testing.T) {
	router, db, jobs := newWebhookTest(t)
	activeIntegration(t, db)

	body := []byte(`{"id":123}`)
	w := postWebhook(router, body, signBody(body, "shhh"), "acme.myshopify.com", "products/delete")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, models.SyncJobTypeItemDelete, jobs.jobs[0].Type)
}

func TestWebhookUnknownShop(t *testing.T) {
	router, _, jobs := newWebhookTest(t)

	body := []byte(`{"id":123}`)
	w := postWebhook(router, body, signBody(body, "shhh"), "nobody.myshopify.com", "products/create")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, jobs.jobs)
}

func TestWebhookIgnoresUnhandledTopic(t *testing.T) {
	router, db, jobs := newWebhookTest(t)
	activeIntegration(t, db)

	body := []byte(`{}`)
	w := postWebhook(router, body, signBody(body, "shhh"), "acme.myshopify.com", "orders/create")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, jobs.jobs)
}
