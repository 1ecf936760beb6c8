package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/agri-assistant/internal/config"
	"github.com/kirillkom/agri-assistant/internal/core/domain"
	"github.com/kirillkom/agri-assistant/internal/core/ports"
	"github.com/kirillkom/agri-assistant/internal/observability/metrics"
)

const defaultSessionID = "default_user"

type Router struct {
	cfg     config.Config
	chat    ports.ChatService
	store   ports.ConversationStore
	metrics *metrics.HTTPServerMetrics
}

// NewRouter wires the chat pipeline behind the HTTP surface. store may be nil
// when MongoDB was unreachable at startup; the service then runs stateless.
func NewRouter(cfg config.Config, chat ports.ChatService, store ports.ConversationStore, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:     cfg,
		chat:    chat,
		store:   store,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", rt.chatEndpoint)
	mux.HandleFunc("/health", rt.health)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Answer         string  `json:"answer"`
	Intent         string  `json:"intent"`
	ProcessingTime float64 `json:"processing_time"`
}

func (rt *Router) chatEndpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	start := time.Now()
	ctx := r.Context()
	if rt.cfg.PipelineTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.PipelineTimeout)
		defer cancel()
	}

	history := rt.loadHistory(ctx, req.SessionID)
	result, err := rt.chat.Run(ctx, req.Query, history)
	if err != nil {
		slog.Error("chat_pipeline_failed",
			"request_id", requestIDFromContext(ctx),
			"session_id", req.SessionID,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.saveInteraction(ctx, req.SessionID, req.Query, result.Answer)

	elapsed := time.Since(start)
	if rt.metrics != nil {
		rt.metrics.RecordChatRequest(string(result.Intent), elapsed)
		if result.Intent != domain.IntentUnclear {
			rt.metrics.RecordRetrievedDocuments(result.Documents)
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:         result.Answer,
		Intent:         string(result.Intent),
		ProcessingTime: elapsed.Seconds(),
	})
}

// loadHistory is best-effort: a missing or failing store degrades to an empty
// history, never to an error.
func (rt *Router) loadHistory(ctx context.Context, sessionID string) string {
	if rt.store == nil {
		return ""
	}
	messages, err := rt.store.LastN(ctx, sessionID, domain.HistoryWindow)
	if err != nil {
		slog.Warn("conversation_history_read_failed", "session_id", sessionID, "error", err)
		return ""
	}
	return domain.FormatHistory(messages)
}

func (rt *Router) saveInteraction(ctx context.Context, sessionID, query, answer string) {
	if rt.store == nil {
		return
	}
	now := float64(time.Now().UnixNano()) / 1e9
	err := rt.store.Append(ctx, sessionID, []domain.Message{
		{Role: domain.RoleUser, Content: query, Timestamp: now},
		{Role: domain.RoleAssistant, Content: answer, Timestamp: now},
	})
	if err != nil {
		slog.Warn("conversation_history_write_failed", "session_id", sessionID, "error", err)
	}
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	mongoStatus := "unavailable (stateless)"
	if rt.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.store.Ping(ctx); err == nil {
			mongoStatus = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"mongodb": mongoStatus,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
