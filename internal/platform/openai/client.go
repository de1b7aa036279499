// Package openai is a minimal client for the OpenAI embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/platform/httpx"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultEmbedModel = "text-embedding-3-small"
	defaultTimeout    = 30 * time.Second
	defaultMaxBatch   = 256
	initialBackoff    = 500 * time.Millisecond
	maxBackoff        = 10 * time.Second
)

type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	// Dimensions is forwarded to models that support shortened embeddings.
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	// MaxBatch bounds inputs per request; larger calls are split.
	MaxBatch int
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.EmbedModel = strings.TrimSpace(c.EmbedModel); c.EmbedModel == "" {
		c.EmbedModel = defaultEmbedModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = defaultMaxBatch
	}
	return c
}

// Client calls POST /v1/embeddings with bounded retries on transient failures.
type Client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

var ErrMissingAPIKey = errors.New("openai: missing api key")

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()
	return &Client{
		log:  log.With("client", "openai", "model", cfg.EmbedModel),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// APIError is a non-2xx response. Its status drives retry classification.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: http %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed satisfies the single-text provider contract.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedMany returns one vector per input, in input order. Blank inputs are
// sent as a single space since the API rejects empty strings.
func (c *Client) EmbedMany(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += c.cfg.MaxBatch {
		end := min(start+c.cfg.MaxBatch, len(inputs))
		vecs, err := c.embedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	req := embeddingsRequest{Model: c.cfg.EmbedModel, Input: make([]string, len(inputs)), Dimensions: c.cfg.Dimensions}
	for i, s := range inputs {
		if s = strings.TrimSpace(s); s == "" {
			s = " "
		}
		req.Input[i] = s
	}

	var resp embeddingsResponse
	if err := c.postWithRetry(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai: response missing index %d of %d", i, len(inputs))
		}
	}
	return out, nil
}

func (c *Client) postWithRetry(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai: encode: %w", err)
	}
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		resp, raw, err := c.post(ctx, path, payload)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai: decode: %w", uErr)
			}
			return nil
		}
		if attempt >= c.cfg.MaxRetries || !httpx.IsRetryableError(err) {
			return err
		}
		wait := httpx.Jitter(httpx.RetryAfter(resp, backoff, maxBackoff))
		c.log.Warn("openai retry", "path", path, "attempt", attempt+1, "wait", wait.String(), "error", err)
		if err := httpx.Sleep(ctx, wait); err != nil {
			return err
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	if resp.StatusCode/100 != 2 {
		return resp, raw, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, raw, nil
}
