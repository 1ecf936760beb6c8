package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/agri-assistant/internal/config"
	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

type chatFake struct {
	result *domain.ChatResult
	err    error

	lastQuestion string
	lastHistory  string
	calls        int
}

func (f *chatFake) Run(_ context.Context, question, chatHistory string) (*domain.ChatResult, error) {
	f.calls++
	f.lastQuestion = question
	f.lastHistory = chatHistory
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type storeFake struct {
	history   []domain.Message
	lastNErr  error
	appendErr error
	pingErr   error

	lastSession string
	appended    []domain.Message
}

func (f *storeFake) LastN(_ context.Context, sessionID string, _ int) ([]domain.Message, error) {
	f.lastSession = sessionID
	if f.lastNErr != nil {
		return nil, f.lastNErr
	}
	return f.history, nil
}

func (f *storeFake) Append(_ context.Context, sessionID string, messages []domain.Message) error {
	f.lastSession = sessionID
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, messages...)
	return nil
}

func (f *storeFake) Ping(context.Context) error {
	return f.pingErr
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestChatReturnsAnswerAndIntent(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "Use copper fungicide.", Intent: domain.IntentDisease}}
	store := &storeFake{history: []domain.Message{
		{Role: domain.RoleUser, Content: "hello", Timestamp: 1},
		{Role: domain.RoleAssistant, Content: "hi", Timestamp: 2},
	}}
	handler := NewRouter(config.Config{}, chat, store, nil).Handler()

	res := postChat(t, handler, `{"query":"leaf spots on tomato","session_id":"farmer-1"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body chatResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Answer != "Use copper fungicide." {
		t.Fatalf("unexpected answer %q", body.Answer)
	}
	if body.Intent != "disease" {
		t.Fatalf("unexpected intent %q", body.Intent)
	}
	if body.ProcessingTime < 0 {
		t.Fatalf("negative processing time %f", body.ProcessingTime)
	}

	if chat.lastHistory != "user: hello\nassistant: hi" {
		t.Fatalf("unexpected history passed to pipeline: %q", chat.lastHistory)
	}
	if len(store.appended) != 2 {
		t.Fatalf("expected user and assistant messages appended, got %d", len(store.appended))
	}
	if store.appended[0].Role != domain.RoleUser || store.appended[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected appended roles: %+v", store.appended)
	}
}

func TestChatDefaultsSessionID(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentScheme}}
	store := &storeFake{}
	handler := NewRouter(config.Config{}, chat, store, nil).Handler()

	res := postChat(t, handler, `{"query":"crop insurance subsidy"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if store.lastSession != "default_user" {
		t.Fatalf("expected default session, got %q", store.lastSession)
	}
}

func TestChatWorksWithoutStore(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentUnclear}}
	handler := NewRouter(config.Config{}, chat, nil, nil).Handler()

	res := postChat(t, handler, `{"query":"what about it?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 in stateless mode, got %d", res.Code)
	}
	if chat.lastHistory != "" {
		t.Fatalf("expected empty history without store, got %q", chat.lastHistory)
	}
}

func TestChatDegradesOnStoreFailures(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentDisease}}
	store := &storeFake{
		lastNErr:  errors.New("mongo down"),
		appendErr: errors.New("mongo down"),
	}
	handler := NewRouter(config.Config{}, chat, store, nil).Handler()

	res := postChat(t, handler, `{"query":"wilting leaves","session_id":"s1"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("store failure must not fail the request, got %d", res.Code)
	}
	if chat.lastHistory != "" {
		t.Fatalf("expected empty history when read fails, got %q", chat.lastHistory)
	}
}

func TestChatRejectsBadInput(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentDisease}}
	handler := NewRouter(config.Config{}, chat, nil, nil).Handler()

	if res := postChat(t, handler, `{not json`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", res.Code)
	}
	if res := postChat(t, handler, `{"query":"   "}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", res.Code)
	}
	if chat.calls != 0 {
		t.Fatalf("pipeline must not run for rejected input, got %d calls", chat.calls)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", res.Code)
	}
}

func TestChatMapsTemporaryErrorTo503(t *testing.T) {
	chat := &chatFake{err: domain.WrapError(domain.ErrTemporary, "retrieve", errors.New("circuit open"))}
	handler := NewRouter(config.Config{}, chat, nil, nil).Handler()

	res := postChat(t, handler, `{"query":"leaf rust"}`)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestChatClarifiesUnclearQueries(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{
		Answer: "Could you clarify if you mean a disease or a scheme?",
		Intent: domain.IntentUnclear,
	}}
	handler := NewRouter(config.Config{}, chat, nil, nil).Handler()

	res := postChat(t, handler, `{"query":"help"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body chatResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Intent != "unclear" {
		t.Fatalf("expected unclear intent, got %q", body.Intent)
	}
	if body.Answer != "Could you clarify if you mean a disease or a scheme?" {
		t.Fatalf("unexpected clarification %q", body.Answer)
	}
}

func TestHealthReportsStatelessWithoutStore(t *testing.T) {
	handler := NewRouter(config.Config{}, &chatFake{}, nil, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "active" {
		t.Fatalf("unexpected status %q", body["status"])
	}
	if body["mongodb"] != "unavailable (stateless)" {
		t.Fatalf("unexpected mongodb status %q", body["mongodb"])
	}
}

func TestHealthReportsConnectedStore(t *testing.T) {
	handler := NewRouter(config.Config{}, &chatFake{}, &storeFake{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["mongodb"] != "connected" {
		t.Fatalf("expected connected, got %q", body["mongodb"])
	}
}

func TestHealthReportsUnreachableStoreAsStateless(t *testing.T) {
	store := &storeFake{pingErr: errors.New("no reachable servers")}
	handler := NewRouter(config.Config{}, &chatFake{}, store, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["mongodb"] != "unavailable (stateless)" {
		t.Fatalf("expected unavailable, got %q", body["mongodb"])
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentDisease}}
	cfg := config.Config{APIRateLimitRPS: 0.001, APIRateLimitBurst: 1}
	handler := NewRouter(cfg, chat, nil, nil).Handler()

	first := postChat(t, handler, `{"query":"q1"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := postChat(t, handler, `{"query":"q2"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header, got %q", second.Header().Get("Retry-After"))
	}
}

func TestChatHonorsPipelineTimeoutConfig(t *testing.T) {
	chat := &chatFake{result: &domain.ChatResult{Answer: "ok", Intent: domain.IntentDisease}}
	cfg := config.Config{PipelineTimeout: 50 * time.Millisecond}
	handler := NewRouter(cfg, chat, nil, nil).Handler()

	res := postChat(t, handler, `{"query":"fast enough"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 within timeout, got %d", res.Code)
	}
}
