// Package chat orchestrates one conversation turn: persist the user message,
// retrieve relevant memory, compose the enriched prompt, generate the reply,
// and persist the assistant turn. Enrichment steps are best-effort; only an
// invalid request fails the turn.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/completion"
	"github.com/ideawell/cofounderd/internal/composer"
	"github.com/ideawell/cofounderd/internal/errs"
	"github.com/ideawell/cofounderd/internal/memory"
	"github.com/ideawell/cofounderd/internal/retrieval"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

// TurnLog records conversation turns in relational storage. Log writes are
// enrichment; failures never surface to the caller.
type TurnLog interface {
	SaveMessage(ctx context.Context, projectID, role, content string) error
}

// Result is the outcome of one conversation turn.
type Result struct {
	Reply       string
	Degraded    bool
	Suggestions []Suggestion
}

// Suggestion is one memory-backed recommendation attached to a reply. The UI
// keys entries by id and renders score and recency alongside the content.
type Suggestion struct {
	ID        string  `json:"id"`
	Score     float32 `json:"score"`
	Content   string  `json:"content"`
	ProjectID string  `json:"projectId,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// Metadata captures diagnostic information about a turn.
type Metadata struct {
	CandidatesUsed   []string
	PipelineDuration time.Duration
}

// Orchestrator wires the turn pipeline together.
type Orchestrator struct {
	retriever *retrieval.Retriever
	composer  *composer.Composer
	completer completion.Completer
	fallback  *completion.Fallback
	writer    *memory.Writer
	log       TurnLog
}

// NewOrchestrator creates an Orchestrator. log may be nil when relational
// turn history is disabled.
func NewOrchestrator(
	retriever *retrieval.Retriever,
	comp *composer.Composer,
	completer completion.Completer,
	fallback *completion.Fallback,
	writer *memory.Writer,
	log TurnLog,
) *Orchestrator {
	if fallback == nil {
		fallback = completion.NewFallback(nil)
	}
	return &Orchestrator{
		retriever: retriever,
		composer:  comp,
		completer: completer,
		fallback:  fallback,
		writer:    writer,
		log:       log,
	}
}

// Converse runs one turn:
//  1. Persist the user message (best-effort, vector and relational)
//  2. Retrieve memory for the trailing conversation window
//  3. Compose the enriched completion request
//  4. Generate the reply, falling back to the canned pool on provider failure
//  5. Persist the assistant reply (best-effort)
//
// Only an empty message is an error. Every downstream failure degrades the
// reply instead of failing the turn.
func (o *Orchestrator) Converse(ctx context.Context, message string, history []retrieval.Turn, projectID string) (Result, Metadata, error) {
	start := time.Now()
	var meta Metadata
	defer func() {
		meta.PipelineDuration = time.Since(start)
	}()

	if strings.TrimSpace(message) == "" {
		return Result{}, meta, goerr.New("empty chat message", goerr.T(errs.TagInvalidInput))
	}

	o.recordTurn(ctx, projectID, "user", message)

	window := append(append([]retrieval.Turn{}, history...), retrieval.Turn{Role: "user", Content: message})
	candidates := o.retriever.Retrieve(ctx, window, projectID)
	for _, c := range candidates {
		meta.CandidatesUsed = append(meta.CandidatesUsed, c.ID)
	}

	req := o.composer.Compose(message, history, candidates)

	res := Result{Suggestions: suggestions(candidates)}
	reply, err := o.completer.Complete(ctx, req)
	if err != nil {
		slog.Warn("chat: completion failed, serving fallback reply", "error", err)
		res.Reply = o.fallback.Reply()
		res.Degraded = true
	} else {
		res.Reply = reply
	}

	o.recordTurn(ctx, projectID, "assistant", res.Reply)

	slog.Debug("chat turn complete",
		"project_id", projectID,
		"candidates_used", len(meta.CandidatesUsed),
		"degraded", res.Degraded,
	)
	return res, meta, nil
}

// recordTurn writes one turn to the vector store and the relational log,
// dropping failures with a log line.
func (o *Orchestrator) recordTurn(ctx context.Context, projectID, role, content string) {
	if projectID == "" {
		return
	}
	o.writer.TryRecordTurn(ctx, projectID, role, content)
	if o.log != nil {
		if err := o.log.SaveMessage(ctx, projectID, role, content); err != nil {
			slog.Warn("chat: turn log write dropped",
				"project_id", projectID,
				"role", role,
				"error", err)
		}
	}
}

// suggestions turns retrieved candidates into follow-up recommendations,
// preserving ranked order.
func suggestions(candidates []vectorstore.Candidate) []Suggestion {
	var out []Suggestion
	for _, c := range candidates {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		s := Suggestion{
			ID:        c.ID,
			Score:     c.Score,
			Content:   content,
			ProjectID: c.Metadata.ProjectID,
		}
		if !c.Metadata.CreatedAt.IsZero() {
			s.CreatedAt = c.Metadata.CreatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out
}
