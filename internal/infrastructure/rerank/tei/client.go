package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/agri-assistant/internal/infrastructure/resilience"
)

// Client scores (query, passage) pairs against a text-embeddings-inference
// rerank endpoint backed by a cross-encoder model.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		exec:       exec,
	}
}

// Score reranks all contents in one batch and returns scores positionally
// aligned with the input.
func (c *Client) Score(ctx context.Context, query string, contents []string) ([]float64, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"query": query,
		"texts": contents,
	}

	var response []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	err := c.exec.Execute(ctx, "rerank", func(ctx context.Context) error {
		return c.postJSON(ctx, "/rerank", request, &response)
	}, classifyRerankError)
	if err != nil {
		return nil, err
	}
	if len(response) != len(contents) {
		return nil, fmt.Errorf("rerank response size mismatch: got %d, want %d", len(response), len(contents))
	}

	out := make([]float64, len(contents))
	for _, ranked := range response {
		if ranked.Index < 0 || ranked.Index >= len(out) {
			return nil, fmt.Errorf("rerank response index out of range: %d", ranked.Index)
		}
		out[ranked.Index] = ranked.Score
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}
