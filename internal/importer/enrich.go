package importer

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

	"catalogsync/internal/catalog"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// AIEnricher fills missing descriptive fields on import rows using the
// OpenAI chat API. With no API key configured it is a no-op.
type AIEnricher struct {
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAIEnricher(apiKey string, logger zerolog.Logger) *AIEnricher {
	return &AIEnricher{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type enrichedFields struct {
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Keywords         []string `json:"keywords"`
}

// Enrich fills description, short description and keywords when the row left
// them empty. Fields the row already carries are never overwritten.
func (e *AIEnricher) Enrich(ctx context.Context, payload *catalog.ProductPayload) error {
	if e.apiKey == "" {
		return nil
	}
	if payload.Description != "" && payload.ShortDescription != "" && len(payload.Keywords) > 0 {
		return nil
	}

	prompt := fmt.Sprintf(`You are an e-commerce catalog assistant. Given this product, fill in the missing descriptive fields.

Product name: %s
Brand present: %t
Existing description: %q
Existing keywords: %s

Respond with ONLY a JSON object:
{"description": "...", "short_description": "...", "keywords": ["...", "..."]}

The short description must be under 150 characters. Keywords: 3-8 relevant search terms.`,
		payload.Name, payload.BrandID != nil, payload.Description, strings.Join(payload.Keywords, ", "))

	content, err := e.complete(ctx, prompt)
	if err != nil {
		return err
	}

	var fields enrichedFields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return fmt.Errorf("failed to parse enrichment response: %w", err)
	}

	if payload.Description == "" && fields.Description != "" {
		payload.Description = fields.Description
	}
	if payload.ShortDescription == "" && fields.ShortDescription != "" {
		payload.ShortDescription = catalog.Truncate(fields.ShortDescription, 150)
	}
	if len(payload.Keywords) == 0 && len(fields.Keywords) > 0 {
		payload.Keywords = fields.Keywords
	}

	return nil
}

func (e *AIEnricher) complete(ctx context.Context, prompt string) (string, error) {
	request := chatRequest{
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   500,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an e-commerce catalog assistant."},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error: %s", string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
