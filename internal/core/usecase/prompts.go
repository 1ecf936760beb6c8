package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

const classifySystemPrompt = "Classify query: 'disease', 'scheme', 'hybrid', 'unclear'. Return ONLY category."

const answerSystemPrompt = `You are an expert Agricultural Assistant.
Answer the user's question concisely using ONLY the context provided.
- Give a clear, direct answer in 2-4 sentences
- If asking about amounts/subsidies, extract the specific numbers
- Cite the source document at the end
- Do NOT repeat information or generate tables`

func buildClassifyUserPrompt(chatHistory, question string) string {
	return fmt.Sprintf("History: %s\nQuery: %s", chatHistory, question)
}

func buildAnswerUserPrompt(question string, docs []domain.RankedDocument) string {
	stanzas := make([]string, 0, len(docs))
	for _, doc := range docs {
		stanzas = append(stanzas, fmt.Sprintf("Source: %s\n%s", doc.Source(), doc.Content))
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(stanzas, "\n\n"), question)
}
