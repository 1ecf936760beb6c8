package domain

import "strings"

type Intent string

const (
	IntentDisease Intent = "disease"
	IntentScheme  Intent = "scheme"
	IntentHybrid  Intent = "hybrid"
	IntentUnclear Intent = "unclear"
)

// ParseIntent normalizes a raw classifier output. Anything outside the four
// recognized categories coerces to IntentUnclear; this is the only defense
// against malformed model output.
func ParseIntent(raw string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case IntentDisease:
		return IntentDisease
	case IntentScheme:
		return IntentScheme
	case IntentHybrid:
		return IntentHybrid
	case IntentUnclear:
		return IntentUnclear
	default:
		return IntentUnclear
	}
}

func (i Intent) SearchesDisease() bool {
	return i == IntentDisease || i == IntentHybrid
}

func (i Intent) SearchesScheme() bool {
	return i == IntentScheme || i == IntentHybrid
}

type Domain string

const (
	DomainDisease Domain = "disease"
	DomainScheme  Domain = "scheme"
)

// RankedDocument is a retrieval candidate. Two documents are identical iff
// their Content strings are byte-equal; Score is reranker-assigned, not a
// first-pass retrieval score.
type RankedDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

func (d RankedDocument) Source() string {
	return d.Metadata["source"]
}

// PipelineState is threaded through one pipeline run. Each field is written
// by exactly one stage: Question and ChatHistory are immutable inputs, Intent
// is set by classification, Documents by retrieval, Answer by generation or
// clarification. A zero Documents slice from retrieval is valid and distinct
// from "not yet computed".
type PipelineState struct {
	Question    string
	ChatHistory string
	Intent      Intent
	Documents   []RankedDocument
	Answer      string
}

// ChatResult is the outward shape of a completed pipeline run. Documents
// counts the context chunks that grounded the answer; it is zero for
// clarifications and no-context answers.
type ChatResult struct {
	Answer    string `json:"answer"`
	Intent    Intent `json:"intent"`
	Documents int    `json:"-"`
}
