package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/agri-assistant/internal/infrastructure/resilience"
)

// Client serves both capability ports backed by an Ollama server: text
// completion (classification and answer generation) and query embedding.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

// Complete runs one /api/generate call at temperature zero with a bounded
// completion length.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := map[string]any{
		"model":  c.genModel,
		"system": systemPrompt,
		"prompt": userPrompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0,
			"num_predict": 512,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.exec.Execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", request, &response, "generate")
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": c.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := c.exec.Execute(ctx, "ollama_embed", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", request, &response, "embed")
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}
