package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
	"github.com/kirillkom/agri-assistant/internal/core/ports"
)

const (
	clarificationAnswer = "Could you clarify if you mean a disease or a scheme?"
	noContextAnswer     = "I couldn't find relevant info."
)

type pipelineStep string

const (
	stepClassify pipelineStep = "classify"
	stepRetrieve pipelineStep = "retrieve"
	stepGenerate pipelineStep = "generate"
	stepClarify  pipelineStep = "clarify"
	stepDone     pipelineStep = "done"
)

// PipelineUseCase sequences classification, retrieval, generation and
// clarification over a PipelineState passed by value between steps. The
// machine has no cycles and terminates in at most three hops.
type PipelineUseCase struct {
	llm       ports.LanguageModel
	retriever ports.Retriever
}

func NewPipelineUseCase(llm ports.LanguageModel, retriever ports.Retriever) *PipelineUseCase {
	return &PipelineUseCase{
		llm:       llm,
		retriever: retriever,
	}
}

func (uc *PipelineUseCase) Run(ctx context.Context, question, chatHistory string) (*domain.ChatResult, error) {
	state := domain.PipelineState{
		Question:    question,
		ChatHistory: chatHistory,
	}

	step := stepClassify
	for step != stepDone {
		var err error
		switch step {
		case stepClassify:
			state = uc.classify(ctx, state)
			step = nextAfterClassify(state.Intent)
		case stepRetrieve:
			state, err = uc.retrieve(ctx, state)
			if err != nil {
				return nil, err
			}
			step = stepGenerate
		case stepGenerate:
			state, err = uc.generate(ctx, state)
			if err != nil {
				return nil, err
			}
			step = stepDone
		case stepClarify:
			state.Answer = clarificationAnswer
			step = stepDone
		}
	}

	return &domain.ChatResult{
		Answer:    state.Answer,
		Intent:    state.Intent,
		Documents: len(state.Documents),
	}, nil
}

// nextAfterClassify is the only branching transition; it depends on nothing
// but the just-written intent.
func nextAfterClassify(intent domain.Intent) pipelineStep {
	if intent == domain.IntentUnclear {
		return stepClarify
	}
	return stepRetrieve
}

// classify never fails: a classifier error or out-of-vocabulary output
// coerces to unclear so the controller fails toward clarification, not a
// crash.
func (uc *PipelineUseCase) classify(ctx context.Context, state domain.PipelineState) domain.PipelineState {
	raw, err := uc.llm.Complete(ctx, classifySystemPrompt, buildClassifyUserPrompt(state.ChatHistory, state.Question))
	if err != nil {
		slog.Warn("intent_classification_failed", "error", err)
		state.Intent = domain.IntentUnclear
		return state
	}
	state.Intent = domain.ParseIntent(raw)
	return state
}

func (uc *PipelineUseCase) retrieve(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	docs, err := uc.retriever.Retrieve(ctx, state.Question, state.Intent)
	if err != nil {
		return state, fmt.Errorf("retrieve documents: %w", err)
	}
	if docs == nil {
		docs = []domain.RankedDocument{}
	}
	state.Documents = docs
	return state, nil
}

func (uc *PipelineUseCase) generate(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if len(state.Documents) == 0 {
		state.Answer = noContextAnswer
		return state, nil
	}

	answer, err := uc.llm.Complete(ctx, answerSystemPrompt, buildAnswerUserPrompt(state.Question, state.Documents))
	if err != nil {
		return state, fmt.Errorf("generate answer: %w", err)
	}
	state.Answer = answer
	return state, nil
}
