package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/agri-assistant/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 1,
		BreakerEnabled:   false,
	})
}

func TestQuerySendsVectorAndAPIKey(t *testing.T) {
	var payload map[string]any
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		apiKey = r.Header.Get("Api-Key")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"matches":[
			{"score":0.87,"metadata":{"text":"canker lesions on fruit","source":"diseases.pdf","page":12}},
			{"score":0.51,"metadata":{"source":"diseases.pdf"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret-key", "pinecone_disease", newTestExecutor())
	hits, err := client.Query(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if apiKey != "secret-key" {
		t.Fatalf("expected Api-Key header, got %q", apiKey)
	}
	if payload["topK"] != float64(5) || payload["includeMetadata"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Text != "canker lesions on fruit" || hits[0].Metadata["source"] != "diseases.pdf" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	// Hits with no stored text still come back as empty-content candidates.
	if hits[1].Text != "" {
		t.Fatalf("expected empty text for payload without text, got %q", hits[1].Text)
	}
	if _, ok := hits[0].Metadata["page"]; ok {
		t.Fatalf("non-string metadata values must be dropped")
	}
}

func TestQueryStatusErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "k", "pinecone_disease", newTestExecutor())
	_, err := client.Query(context.Background(), []float32{0.1}, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestQueryRetriesTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "overloaded", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 2, BreakerEnabled: false})
	client := New(server.URL, "k", "pinecone_disease", exec)
	hits, err := client.Query(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits) != 0 || attempts != 2 {
		t.Fatalf("expected retry to recover, got hits=%d attempts=%d", len(hits), attempts)
	}
}
