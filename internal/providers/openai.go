package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// OpenAIBackend implements Backend for OpenAI-compatible chat APIs
// (OpenAI, Groq, OpenRouter, DeepSeek, VLLM, etc.)
type OpenAIBackend struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
	limiter      *rate.Limiter
}

// NewOpenAIBackend creates a backend. rpm caps client-side requests per
// minute (0 = no limit).
func NewOpenAIBackend(name, apiKey, apiBase, defaultModel string, rpm int) *OpenAIBackend {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	apiBase = strings.TrimRight(apiBase, "/")

	var limiter *rate.Limiter
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
	}

	return &OpenAIBackend{
		name:         name,
		apiKey:       apiKey,
		apiBase:      apiBase,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 60 * time.Second},
		limiter:      limiter,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body := map[string]interface{}{
		"model":       model,
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}

	respBody, err := b.doRequest(ctx, body)
	if err != nil {
		return "", err
	}
	defer respBody.Close()

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(respBody).Decode(&oaiResp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", b.name, err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices in response", b.name)
	}
	return oaiResp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) AnalyzeIntent(ctx context.Context, prompt string) (json.RawMessage, error) {
	text, err := b.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "Reply with a single JSON object and nothing else."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(extractJSON(text)), nil
}

func (b *OpenAIBackend) doRequest(ctx context.Context, body map[string]interface{}) (io.ReadCloser, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", b.name, err)
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", b.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", b.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", b.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("%s: API error %d: %s", b.name, resp.StatusCode, string(msg))
	}
	return resp.Body, nil
}

// extractJSON strips markdown fences and returns the outermost JSON object
// in text. Models wrap JSON in prose more often than not.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
