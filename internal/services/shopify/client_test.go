package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient("acme", "test-token", zerolog.Nop())
	c.baseURL = serverURL
	return c
}

func TestGetProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2023-10/products.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "250", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"products":[{"id":123,"title":"Silla","vendor":"Acme"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.GetProducts(context.Background(), DefaultPageLimit, "")
	require.NoError(t, err)

	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(123), resp.Products[0].ID)
	assert.Equal(t, "Silla", resp.Products[0].Title)
	assert.Nil(t, resp.Link)
}

func TestGetProductsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", `<https://acme.myshopify.com/admin/api/2023-10/products.json?page_info=abc123&limit=250>; rel="next"`)
		}
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.GetProducts(context.Background(), DefaultPageLimit, "")
	require.NoError(t, err)
	require.NotNil(t, resp.Link)
	assert.Equal(t, "abc123", *resp.Link)

	resp, err = client.GetProducts(context.Background(), DefaultPageLimit, *resp.Link)
	require.NoError(t, err)
	assert.Nil(t, resp.Link)
}

func TestGetProductsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":"throttled"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetProducts(context.Background(), DefaultPageLimit, "")
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "throttled")
}

func TestRegisterWebhook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2023-10/webhooks.json", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"webhook":{"id":9,"topic":"products/create","address":"https://app.example.com/webhook","format":"json"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	webhook, err := client.RegisterWebhook(context.Background(), "products/create", "https://app.example.com/webhook")
	require.NoError(t, err)
	assert.Equal(t, int64(9), webhook.ID)
	assert.Equal(t, "products/create", webhook.Topic)
}

func TestParseNextPageInfo(t *testing.T) {
	link := `<https://acme.myshopify.com/admin/api/2023-10/products.json?page_info=prev1&limit=250>; rel="previous", <https://acme.myshopify.com/admin/api/2023-10/products.json?page_info=next1&limit=250>; rel="next"`
	assert.Equal(t, "next1", parseNextPageInfo(link))

	assert.Equal(t, "", parseNextPageInfo(`<https://acme.myshopify.com/x?page_info=a>; rel="previous"`))
	assert.Equal(t, "", parseNextPageInfo(""))
}

func TestNewClientDomainNormalization(t *testing.T) {
	c := NewClient("acme", "tok", zerolog.Nop())
	assert.Equal(t, "https://acme.myshopify.com", c.baseURL)

	c = NewClient("acme.myshopify.com", "tok", zerolog.Nop())
	assert.Equal(t, "https://acme.myshopify.com", c.baseURL)
}
