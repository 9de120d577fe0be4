// Package api exposes the conversation service over HTTP: chat turns,
// semantic search, market analysis, memory purge, and the relational
// conversation log.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ideawell/cofounderd/internal/chat"
	"github.com/ideawell/cofounderd/internal/errs"
	"github.com/ideawell/cofounderd/internal/insights"
	"github.com/ideawell/cofounderd/internal/retrieval"
	"github.com/ideawell/cofounderd/internal/storage"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

const maxRequestBodySize = 1 << 20 // 1MB

// MessageLog serves and purges the relational conversation log.
type MessageLog interface {
	ListMessages(ctx context.Context, projectID string, limit int) ([]storage.Message, error)
	DeleteProjectMessages(ctx context.Context, projectID string) (int64, error)
}

// Deps holds handler dependencies.
type Deps struct {
	Chat      *chat.Orchestrator
	Retriever *retrieval.Retriever
	Analyzer  *insights.Analyzer
	Memory    vectorstore.Store
	Log       MessageLog // optional; message-log routes 404 without it
}

// NewHandler builds the HTTP routing table.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/chat", handleChat(deps.Chat))
	r.Post("/search", handleSearch(deps.Retriever))
	r.Post("/market-analysis", handleMarketAnalysis(deps.Analyzer))
	r.Delete("/memory/{id}", handleDeleteMemory(deps.Memory))
	r.Delete("/projects/{projectID}/memory", handlePurgeProject(deps.Memory, deps.Log))
	if deps.Log != nil {
		r.Get("/projects/{projectID}/messages", handleListMessages(deps.Log))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []retrieval.Turn `json:"conversationHistory"`
	ProjectID           string           `json:"projectId"`
}

type chatResponse struct {
	Response        string            `json:"response"`
	Success         bool              `json:"success"`
	Recommendations []chat.Suggestion `json:"recommendations,omitempty"`
	Error           string            `json:"error,omitempty"`
}

func handleChat(orch *chat.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, _, err := orch.Converse(r.Context(), req.Message, req.ConversationHistory, req.ProjectID)
		if err != nil {
			if errs.IsInvalidInput(err) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "Message is required")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "chat turn failed: %v", err)
			return
		}

		resp := chatResponse{
			Response:        res.Reply,
			Success:         !res.Degraded,
			Recommendations: res.Suggestions,
		}
		// Degraded turns still answer 200; the UI keeps the conversation going.
		if res.Degraded {
			resp.Error = "API temporarily unavailable"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type searchRequest struct {
	Query     string `json:"query"`
	ProjectID string `json:"projectId"`
	Limit     int    `json:"limit"`
}

type idea struct {
	ID        string            `json:"id"`
	Score     float32           `json:"score"`
	Content   string            `json:"content"`
	ProjectID string            `json:"projectId,omitempty"`
	Type      string            `json:"type,omitempty"`
	CreatedAt string            `json:"createdAt,omitempty"`
	Extra     map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Ideas   []idea `json:"ideas"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func handleSearch(retriever *retrieval.Retriever) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		cands, err := retriever.Search(r.Context(), req.Query, req.ProjectID, req.Limit)
		if err != nil {
			if errs.IsInvalidInput(err) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "Query is required")
				return
			}
			// Provider failures degrade like the original UI expects.
			writeJSON(w, http.StatusOK, searchResponse{
				Ideas:   []idea{},
				Success: false,
				Error:   "Search temporarily unavailable",
			})
			return
		}

		ideas := make([]idea, 0, len(cands))
		for _, c := range cands {
			ideas = append(ideas, candidateToIdea(c))
		}
		writeJSON(w, http.StatusOK, searchResponse{Ideas: ideas, Success: true})
	}
}

func candidateToIdea(c vectorstore.Candidate) idea {
	out := idea{
		ID:        c.ID,
		Score:     c.Score,
		Content:   c.Content,
		ProjectID: c.Metadata.ProjectID,
		Type:      c.Metadata.Type,
		Extra:     c.Metadata.Extra,
	}
	if !c.Metadata.CreatedAt.IsZero() {
		out.CreatedAt = c.Metadata.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

type marketAnalysisRequest struct {
	Idea      string `json:"idea"`
	ProjectID string `json:"projectId"`
}

func handleMarketAnalysis(analyzer *insights.Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req marketAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		ins, err := analyzer.Analyze(r.Context(), req.Idea, req.ProjectID)
		if err != nil {
			if errs.IsInvalidInput(err) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "Idea is required")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to analyze market")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"insights": ins,
		})
	}
}

func handleDeleteMemory(store vectorstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := store.DeleteByID(r.Context(), id); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to delete memory: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handlePurgeProject(store vectorstore.Store, log MessageLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if err := store.DeleteByFilter(r.Context(), vectorstore.Filter{ProjectID: projectID}); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to purge project memory: %v", err)
			return
		}
		var deleted int64
		if log != nil {
			n, err := log.DeleteProjectMessages(r.Context(), projectID)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "purged vectors but failed to purge message log: %v", err)
				return
			}
			deleted = n
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"messagesDeleted": deleted,
		})
	}
}

func handleListMessages(log MessageLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		msgs, err := log.ListMessages(r.Context(), projectID, 0)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list messages: %v", err)
			return
		}
		if msgs == nil {
			msgs = []storage.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": msgs,
			"success":  true,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
