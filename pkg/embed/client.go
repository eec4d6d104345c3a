// Package embed provides an HTTP client for an OpenAI-compatible sentence
// embedding service. The remote model is loaded lazily: the first Embed call
// probes the service exactly once per process, and every later call reuses
// that handle.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
)

// probeText is the fixed input used to force the remote model load and
// discover the vector dimensionality.
const probeText = "ping"

// Config configures the embedding client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client embeds text via a remote inference service. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	initMu  sync.Mutex
	ready   bool
	initErr error
	dims    int
}

// NewClient creates an embedding client. Defaults: all-MiniLM-L6-v2, 15s timeout.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Normalize is the input normalization applied before encoding. The forum
// corpus was embedded with the same rule; changing it desynchronizes query
// and ingestion vectors and breaks similarity scoring.
func Normalize(text string) string {
	return strings.TrimSpace(text)
}

// Embed returns the L2-normalized embedding of the normalized text.
// Identical normalized inputs yield identical vectors.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = Normalize(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}

	if err := c.ensureModel(ctx); err != nil {
		return nil, err
	}

	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return l2Normalize(vec)
}

// Dims returns the vector dimensionality, or 0 before the first Embed call.
func (c *Client) Dims() int { return c.dims }

// ensureModel performs the one-time model probe. Concurrent cold-start calls
// share a single probe. A genuine load failure is cached for the process
// lifetime; a failure caused by the caller's context (timeout, disconnect)
// is returned but not cached, so the next request retries the probe.
func (c *Client) ensureModel(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.ready {
		return nil
	}
	if c.initErr != nil {
		return c.initErr
	}

	vec, err := c.embed(ctx, probeText)
	if err != nil {
		wrapped := fmt.Errorf("embed: load model %s: %w", c.model, err)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return wrapped
		}
		c.initErr = wrapped
		return c.initErr
	}

	c.dims = len(vec)
	c.ready = true
	return nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse accepts both the OpenAI shape (data[0].embedding) and the
// flat single-vector shape some inference servers answer with.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Embedding []float32 `json:"embedding"`
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &domain.UpstreamResponseError{Service: "embed", Detail: "invalid JSON: " + err.Error()}
	}

	switch {
	case len(result.Data) > 0 && len(result.Data[0].Embedding) > 0:
		return result.Data[0].Embedding, nil
	case len(result.Embedding) > 0:
		return result.Embedding, nil
	default:
		return nil, &domain.UpstreamResponseError{Service: "embed", Detail: "no embedding in response"}
	}
}

// l2Normalize scales the vector to unit length so cosine similarity over the
// store is well-defined regardless of server-side pooling config.
func l2Normalize(vec []float32) ([]float32, error) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, &domain.UpstreamResponseError{Service: "embed", Detail: "zero-norm embedding"}
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}
