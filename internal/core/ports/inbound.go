package ports

import (
	"context"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

// ChatService is the inbound contract for one question-answering run.
type ChatService interface {
	Run(ctx context.Context, question, chatHistory string) (*domain.ChatResult, error)
}

// Retriever produces ranked documents for a classified query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, intent domain.Intent) ([]domain.RankedDocument, error)
}
