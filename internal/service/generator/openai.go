package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const OpenAIProviderName = "openai"

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger
}

// NewOpenAIProvider builds a provider. baseURL includes the /v1 prefix.
func NewOpenAIProvider(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:    strings.TrimSpace(apiKey),
		model:     strings.TrimSpace(model),
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (Generation, bool) {
	start := time.Now()
	text, err := p.complete(ctx, prompt)
	if err != nil {
		p.logger.Warn("Generation failed",
			zap.String("model", p.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return Generation{}, false
	}

	p.logger.Debug("Generation completed",
		zap.String("model", p.model),
		zap.Int("length", len(text)),
		zap.Duration("duration", time.Since(start)))

	return Generation{Text: text, Provider: OpenAIProviderName}, true
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   p.maxTokens,
		Temperature: 0.7,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("openai api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("openai api error: %s", resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
