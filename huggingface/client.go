// Package huggingface generates short user biographies through the Hugging
// Face router's chat completions endpoint.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://router.huggingface.co/v1"
	defaultModel   = "deepseek-ai/DeepSeek-V3.2-Exp:novita"

	// FallbackBio is stored whenever bio generation fails for any reason.
	FallbackBio = "Bio not available"

	// maxBioLen matches the schema bound so a verbose model can never
	// produce a record that fails validation.
	maxBioLen = 500
)

// Cache is an optional read-through cache for generated bios. Both methods
// are best-effort: a failing cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, name, role string) (string, bool)
	Set(ctx context.Context, name, role, bio string)
}

// Client calls the Hugging Face chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	cache      Cache
	lg         *zap.Logger
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) {
		c.lg = lg
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	ans := Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		lg: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&ans)
	}

	return &ans
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
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

// GenerateBio returns a short professional biography for the given name and
// role. It never fails: any transport error, non-2xx response, malformed
// payload or missing credential yields FallbackBio instead.
func (c *Client) GenerateBio(ctx context.Context, name, role string) string {
	if c.cache != nil {
		if bio, ok := c.cache.Get(ctx, name, role); ok {
			return bio
		}
	}

	bio, err := c.generate(ctx, name, role)
	if err != nil {
		c.lg.Warn("bio generation failed, using fallback",
			zap.String("name", name),
			zap.String("role", role),
			zap.Error(err),
		)

		return FallbackBio
	}

	if c.cache != nil {
		c.cache.Set(ctx, name, role, bio)
	}

	return bio
}

func (c *Client) generate(ctx context.Context, name, role string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("missing api key")
	}

	prompt := fmt.Sprintf(
		"Write a professional bio for %s, a %s. Keep it to 2 sentences and under 400 characters.",
		name, role,
	)

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	bio := strings.TrimSpace(response.Choices[0].Message.Content)
	if bio == "" {
		return "", fmt.Errorf("empty completion")
	}

	return clamp(bio, maxBioLen), nil
}

func clamp(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
