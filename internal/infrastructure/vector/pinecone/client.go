package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/agri-assistant/internal/core/ports"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/resilience"
)

// Client queries one Pinecone index over its data-plane HTTP API. A process
// holds one client per retrieval domain, each pointed at the domain's index
// host.
type Client struct {
	host       string
	apiKey     string
	operation  string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(host, apiKey, operation string, exec *resilience.Executor) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		operation:  operation,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
	}
}

func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]ports.SemanticHit, error) {
	request := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}

	var response struct {
		Matches []struct {
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	err := c.exec.Execute(ctx, c.operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/query", request, &response)
	}, classifyPineconeError)
	if err != nil {
		return nil, err
	}

	out := make([]ports.SemanticHit, 0, len(response.Matches))
	for _, match := range response.Matches {
		metadata := stringMetadata(match.Metadata)
		out = append(out, ports.SemanticHit{
			Text:     metadata["text"],
			Metadata: metadata,
			Score:    match.Score,
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal query body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone query request: %w", err)
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
		return fmt.Errorf("decode query response: %w", err)
	}
	return nil
}

// stringMetadata keeps the string-valued payload fields; the corpora store
// text and source as strings.
func stringMetadata(payload map[string]any) map[string]string {
	out := make(map[string]string, len(payload))
	for key, value := range payload {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	return out
}
