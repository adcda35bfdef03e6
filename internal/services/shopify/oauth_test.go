package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/config"
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":123,"title":"Silla"}`)
	secret := "shhh"

	assert.NoError(t, VerifyWebhookSignature(payload, sign(payload, secret), secret))
}

func TestVerifyWebhookSignatureMismatch(t *testing.T) {
	payload := []byte(`{"id":123}`)

	err := VerifyWebhookSignature(payload, sign(payload, "other-secret"), "shhh")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	err = VerifyWebhookSignature(payload, "", "shhh")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Tampered body fails against the original signature.
	signature := sign(payload, "shhh")
	err = VerifyWebhookSignature([]byte(`{"id":999}`), signature, "shhh")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestGenerateAuthURL(t *testing.T) {
	cfg := &config.Config{ShopifyClientID: "client-id"}
	svc := NewOAuthService(cfg, zerolog.Nop())

	url, state, err := svc.GenerateAuthURL("acme", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Contains(t, url, "https://acme.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "state="+state)
	assert.Len(t, state, 64)

	// State is single use per call.
	_, state2, err := svc.GenerateAuthURL("acme", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.NotEqual(t, state, state2)
}
