package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kirillkom/agri-assistant/internal/config"
	"github.com/kirillkom/agri-assistant/internal/core/domain"
	"github.com/kirillkom/agri-assistant/internal/core/ports"
	"github.com/kirillkom/agri-assistant/internal/core/usecase"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/conversation/mongodb"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/corpus"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/rerank/tei"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/search/bm25"
	"github.com/kirillkom/agri-assistant/internal/infrastructure/vector/pinecone"
)

type App struct {
	Config config.Config

	Chat  ports.ChatService
	Store ports.ConversationStore

	closeFn func(context.Context)
}

// New assembles the chat pipeline. An unreachable MongoDB is not fatal: the
// service starts stateless and /health reports the store as unavailable.
// Missing corpus files are fatal since lexical retrieval cannot run without
// them.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	exec := resilience.NewExecutor(resilience.DefaultConfig())

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec)

	diseaseIndex := pinecone.New(cfg.PineconeDiseaseHost, cfg.PineconeAPIKey, "pinecone_disease_query", exec)
	schemeIndex := pinecone.New(cfg.PineconeSchemeHost, cfg.PineconeAPIKey, "pinecone_scheme_query", exec)

	reranker := tei.New(cfg.RerankerURL, exec)

	loader := corpus.NewLoader(cfg.ChunkSize, cfg.ChunkOverlap)
	diseaseLexical, err := buildLexicalIndex(loader, cfg.DataDir, cfg.DiseaseCorpusFile, domain.DomainDisease)
	if err != nil {
		return nil, err
	}
	schemeLexical, err := buildLexicalIndex(loader, cfg.DataDir, cfg.SchemeCorpusFile, domain.DomainScheme)
	if err != nil {
		return nil, err
	}

	retriever := usecase.NewRetrievalEngine(
		usecase.RetrievalConfig{
			SemanticTopK: cfg.SemanticTopK,
			LexicalTopK:  cfg.LexicalTopK,
			MaxDocuments: cfg.MaxDocuments,
		},
		ollamaClient,
		reranker,
		usecase.DomainSource{Name: domain.DomainDisease, Semantic: diseaseIndex, Lexical: diseaseLexical},
		usecase.DomainSource{Name: domain.DomainScheme, Semantic: schemeIndex, Lexical: schemeLexical},
	)
	chat := usecase.NewPipelineUseCase(ollamaClient, retriever)

	var store ports.ConversationStore
	var closeFn func(context.Context)
	mongoStore, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		slog.Warn("mongodb_unavailable_running_stateless", "error", err)
	} else {
		store = mongoStore
		closeFn = func(ctx context.Context) {
			if err := mongoStore.Close(ctx); err != nil {
				slog.Warn("mongodb_close_failed", "error", err)
			}
		}
	}

	return &App{
		Config:  cfg,
		Chat:    chat,
		Store:   store,
		closeFn: closeFn,
	}, nil
}

func buildLexicalIndex(loader *corpus.Loader, dataDir, file string, name domain.Domain) (*bm25.Index, error) {
	path := filepath.Join(dataDir, file)
	docs, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s corpus: %w", name, err)
	}
	index := bm25.NewIndex(docs)
	slog.Info("lexical_index_built", "domain", string(name), "path", path, "chunks", index.Size())
	return index, nil
}

func (a *App) Close(ctx context.Context) {
	if a.closeFn != nil {
		a.closeFn(ctx)
	}
}
