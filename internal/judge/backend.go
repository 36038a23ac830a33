package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sales-crm-workers/internal/common/config"
	commonhttp "sales-crm-workers/internal/common/http"
)

// Backend turns a prompt into raw model text.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

var errEmptyResponse = errors.New("empty response")

// HTTPBackend calls a generation endpoint that accepts {prompt} and answers
// {text}.
type HTTPBackend struct {
	baseURL     string
	apiKey      string
	temperature float64
	maxRetries  int
	client      *commonhttp.Client
}

func NewHTTPBackend(baseURL, apiKey string, temperature float64, maxRetries int, client *commonhttp.Client) *HTTPBackend {
	if client == nil {
		client = commonhttp.NewClient(30*time.Second, 0, 1)
	}
	return &HTTPBackend{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		temperature: temperature,
		maxRetries:  maxRetries,
		client:      client,
	}
}

func (b *HTTPBackend) Name() string { return "http" }

func (b *HTTPBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"temperature": b.temperature,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := b.call(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (b *HTTPBackend) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", errEmptyResponse
	}
	return out.Text, nil
}

// NewBackend builds the backend named by cfg.Provider. It returns a nil
// Backend for "none" or an empty provider.
func NewBackend(ctx context.Context, cfg config.JudgeConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "http":
		timeout := config.GetDuration(cfg.Timeout)
		return NewHTTPBackend(cfg.BaseURL, cfg.APIKey, cfg.Temperature, cfg.MaxRetries,
			commonhttp.NewClient(timeout, 0, 1)), nil
	case "gemini":
		g, err := NewGeminiBackend(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("judge provider %q not supported", cfg.Provider)
	}
}
