package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"catalogsync/internal/config"
)

// ErrInvalidSignature is returned when a webhook body does not match its
// HMAC header. Callers must reject the request before touching the store.
var ErrInvalidSignature = errors.New("webhook signature mismatch")

type OAuthService struct {
	config *config.Config
	logger zerolog.Logger
}

func NewOAuthService(cfg *config.Config, logger zerolog.Logger) *OAuthService {
	return &OAuthService{
		config: cfg,
		logger: logger,
	}
}

// GenerateAuthURL creates the Shopify OAuth authorization URL together with
// the single-use state token the callback must echo back.
func (s *OAuthService) GenerateAuthURL(shopDomain, redirectURI string) (string, string, error) {
	state, err := s.generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	scopes := "read_products,write_products,read_inventory,read_product_listings"

	// Clean the shop domain (remove .myshopify.com if present)
	cleanDomain := strings.TrimSuffix(shopDomain, ".myshopify.com")

	authURL := fmt.Sprintf(
		"https://%s.myshopify.com/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		cleanDomain,
		s.config.ShopifyClientID,
		scopes,
		url.QueryEscape(redirectURI),
		state,
	)

	return authURL, state, nil
}

// ExchangeCodeForToken exchanges the authorization code for an access token
func (s *OAuthService) ExchangeCodeForToken(ctx context.Context, shopDomain, code string) (*TokenResponse, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)

	data := url.Values{}
	data.Set("client_id", s.config.ShopifyClientID)
	data.Set("client_secret", s.config.ShopifyClientSecret)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	return &tokenResp, nil
}

// VerifyWebhookSignature checks the base64 HMAC-SHA256 of the raw body
// against the value Shopify sent in X-Shopify-Hmac-Sha256.
func VerifyWebhookSignature(payload []byte, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// generateState generates a cryptographically secure random state
func (s *OAuthService) generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
