// Package embedding turns text into fixed-length vectors via an
// OpenAI-compatible embeddings endpoint. Every call re-embeds; an optional
// in-process cache keyed by content hash sits in front (see cache.go).
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
)

// Client converts a single text into an embedding vector.
type Client interface {
	// Embed returns the vector for text. Empty text is rejected as invalid
	// input; provider failures are tagged embedding_unavailable.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length produced by the configured model.
	Dimensions() int
}

// HTTPClient talks to an OpenAI-compatible POST /embeddings endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	timeout    time.Duration
	httpClient *http.Client
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewHTTPClient creates a client for the given provider endpoint.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		dimensions: opts.Dimensions,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Dimensions returns the configured vector length.
func (c *HTTPClient) Dimensions() int { return c.dimensions }

// embedRequest is the JSON body for POST /embeddings.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse mirrors the JSON returned by POST /embeddings.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.New("cannot embed empty text", goerr.T(errs.TagInvalidInput))
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "creating embed request", goerr.T(errs.TagEmbeddingUnavailable))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "embed request", goerr.T(errs.TagEmbeddingUnavailable))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, goerr.New("embed: unexpected status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(respBody)),
			goerr.T(errs.TagEmbeddingUnavailable))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "decoding embed response", goerr.T(errs.TagEmbeddingUnavailable))
	}
	if len(result.Data) == 0 {
		return nil, goerr.New("embed: empty data array", goerr.T(errs.TagEmbeddingUnavailable))
	}

	vec := result.Data[0].Embedding
	if c.dimensions > 0 && len(vec) != c.dimensions {
		return nil, goerr.New("embed: provider returned wrong dimensionality",
			goerr.V("got", len(vec)),
			goerr.V("want", c.dimensions),
			goerr.T(errs.TagEmbeddingUnavailable))
	}
	return vec, nil
}
