package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const apiVersion = "2023-10"

// DefaultPageLimit is the maximum page size the products listing accepts.
const DefaultPageLimit = 250

// UpstreamError is returned when the Shopify API answers with a non-success
// status. It aborts the current sync pass.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify API request failed: %d - %s", e.StatusCode, e.Body)
}

type Client struct {
	shopDomain  string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      zerolog.Logger
}

func NewClient(shopDomain, accessToken string, logger zerolog.Logger) *Client {
	domain := shopDomain
	if !strings.Contains(domain, ".") {
		domain = domain + ".myshopify.com"
	}
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		baseURL:     "https://" + domain,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// GetProducts fetches one page of products from Shopify. pageInfo is the
// opaque cursor from a previous response link; empty for the first page.
func (c *Client) GetProducts(ctx context.Context, limit int, pageInfo string) (*ProductsResponse, error) {
	url := fmt.Sprintf("%s/admin/api/%s/products.json", c.baseURL, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var productsResp ProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&productsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if link := resp.Header.Get("Link"); link != "" {
		if next := parseNextPageInfo(link); next != "" {
			productsResp.Link = &next
		}
	}

	return &productsResp, nil
}

// GetShopInfo fetches shop metadata
func (c *Client) GetShopInfo(ctx context.Context) (*Shop, error) {
	url := fmt.Sprintf("%s/admin/api/%s/shop.json", c.baseURL, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var shopResp struct {
		Shop Shop `json:"shop"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shopResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &shopResp.Shop, nil
}

// RegisterWebhook subscribes the given address to one topic. Registration is
// best effort per topic; callers collect individual failures.
func (c *Client) RegisterWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	url := fmt.Sprintf("%s/admin/api/%s/webhooks.json", c.baseURL, apiVersion)

	payload := struct {
		Webhook Webhook `json:"webhook"`
	}{
		Webhook: Webhook{Topic: topic, Address: address, Format: "json"},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var webhookResp struct {
		Webhook Webhook `json:"webhook"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&webhookResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &webhookResp.Webhook, nil
}

// parseNextPageInfo extracts the page_info cursor from a Shopify Link
// header, e.g. <https://x.myshopify.com/...products.json?page_info=abc&limit=250>; rel="next".
func parseNextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "page_info=")
		if start == -1 {
			return ""
		}
		cursor := part[start+len("page_info="):]
		for _, stop := range []string{"&", ">"} {
			if idx := strings.Index(cursor, stop); idx != -1 {
				cursor = cursor[:idx]
			}
		}
		return cursor
	}
	return ""
}
