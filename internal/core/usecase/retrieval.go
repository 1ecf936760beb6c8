package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
	"github.com/kirillkom/agri-assistant/internal/core/ports"
)

// DomainSource bundles the two first-pass retrievers of one document domain.
type DomainSource struct {
	Name     domain.Domain
	Semantic ports.SemanticIndex
	Lexical  ports.LexicalIndex
}

type RetrievalConfig struct {
	SemanticTopK int
	LexicalTopK  int
	MaxDocuments int
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.SemanticTopK <= 0 {
		out.SemanticTopK = 5
	}
	if out.LexicalTopK <= 0 {
		out.LexicalTopK = 5
	}
	if out.MaxDocuments <= 0 {
		out.MaxDocuments = 4
	}
	return out
}

// RetrievalEngine fuses semantic and lexical candidates per domain,
// deduplicates the pooled result and reranks it.
type RetrievalEngine struct {
	cfg      RetrievalConfig
	embedder ports.Embedder
	reranker ports.Reranker
	disease  DomainSource
	scheme   DomainSource
}

func NewRetrievalEngine(
	cfg RetrievalConfig,
	embedder ports.Embedder,
	reranker ports.Reranker,
	disease DomainSource,
	scheme DomainSource,
) *RetrievalEngine {
	return &RetrievalEngine{
		cfg:      cfg.normalize(),
		embedder: embedder,
		reranker: reranker,
		disease:  disease,
		scheme:   scheme,
	}
}

// Retrieve returns at most MaxDocuments documents, highest reranker score
// first. A failing domain contributes an empty candidate set; a reranker
// failure is fatal since an ungraded result set would corrupt answer
// grounding.
func (e *RetrievalEngine) Retrieve(ctx context.Context, query string, intent domain.Intent) ([]domain.RankedDocument, error) {
	var pool []domain.RankedDocument
	if intent.SearchesDisease() {
		pool = append(pool, e.searchDomain(ctx, e.disease, query)...)
	}
	if intent.SearchesScheme() {
		pool = append(pool, e.searchDomain(ctx, e.scheme, query)...)
	}

	pool = dedupeByContent(pool)
	if len(pool) == 0 {
		return []domain.RankedDocument{}, nil
	}

	contents := make([]string, 0, len(pool))
	for _, doc := range pool {
		contents = append(contents, doc.Content)
	}

	scores, err := e.reranker.Score(ctx, query, contents)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}
	if len(scores) != len(pool) {
		return nil, fmt.Errorf("rerank score count mismatch: got %d, want %d", len(scores), len(pool))
	}

	for i := range pool {
		pool[i].Score = scores[i]
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})

	if len(pool) > e.cfg.MaxDocuments {
		pool = pool[:e.cfg.MaxDocuments]
	}
	return pool, nil
}

// searchDomain runs semantic then lexical search for one domain. Any failure
// is logged and degrades that source to empty; it never aborts the sibling
// domain.
func (e *RetrievalEngine) searchDomain(ctx context.Context, src DomainSource, query string) []domain.RankedDocument {
	out := make([]domain.RankedDocument, 0, e.cfg.SemanticTopK+e.cfg.LexicalTopK)

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("query_embedding_failed", "domain", src.Name, "error", err)
	} else {
		hits, err := src.Semantic.Query(ctx, vector, e.cfg.SemanticTopK)
		if err != nil {
			slog.Warn("semantic_search_failed", "domain", src.Name, "error", err)
		} else {
			for _, hit := range hits {
				// Hits with no stored text stay in the pool as
				// empty-content candidates; dedup collapses them.
				out = append(out, domain.RankedDocument{
					Content:  hit.Text,
					Metadata: hit.Metadata,
				})
			}
		}
	}

	out = append(out, src.Lexical.Search(tokenizeQuery(query), e.cfg.LexicalTopK)...)
	return out
}

// dedupeByContent keeps one candidate per exact content string. Position is
// the first occurrence, value is the last: later candidates silently
// overwrite earlier ones with the same content. Built as an ordered list plus
// seen-index map so the output never depends on map iteration order.
func dedupeByContent(candidates []domain.RankedDocument) []domain.RankedDocument {
	if len(candidates) == 0 {
		return candidates
	}
	out := make([]domain.RankedDocument, 0, len(candidates))
	seen := make(map[string]int, len(candidates))
	for _, candidate := range candidates {
		if at, ok := seen[candidate.Content]; ok {
			out[at] = candidate
			continue
		}
		seen[candidate.Content] = len(out)
		out = append(out, candidate)
	}
	return out
}
