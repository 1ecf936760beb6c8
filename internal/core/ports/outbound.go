package ports

import (
	"context"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SemanticHit is one nearest-neighbor match from a vector index. Text may be
// empty when the stored payload carries no text; such hits are kept as
// empty-content candidates and fall out at deduplication.
type SemanticHit struct {
	Text     string
	Metadata map[string]string
	Score    float64
}

// SemanticIndex queries an external vector store for one retrieval domain.
type SemanticIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]SemanticHit, error)
}

// LexicalIndex scores a tokenized query against a precomputed per-domain
// corpus. Implementations must return only candidates with strictly positive
// scores, highest first.
type LexicalIndex interface {
	Search(tokens []string, topK int) []domain.RankedDocument
}

// Reranker scores (query, content) pairs in one batch. The returned slice is
// positionally aligned with contents.
type Reranker interface {
	Score(ctx context.Context, query string, contents []string) ([]float64, error)
}

// LanguageModel is a stateless text-completion client.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ConversationStore persists per-session message history. Both operations are
// best-effort: callers swallow errors and proceed statelessly.
type ConversationStore interface {
	LastN(ctx context.Context, sessionID string, n int) ([]domain.Message, error)
	Append(ctx context.Context, sessionID string, messages []domain.Message) error
	Ping(ctx context.Context) error
}
