// Package memory persists conversation turns and derived analyses as vector
// records. Writes are enrichment, not the primary conversation path: the
// best-effort entry points drop failed writes with a log line instead of
// failing the surrounding turn.
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/embedding"
	"github.com/ideawell/cofounderd/internal/errs"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

// Writer embeds content and upserts it into the vector store.
type Writer struct {
	embedder embedding.Client
	store    vectorstore.Store
	now      func() time.Time
}

// NewWriter creates a Writer over the given embedder and store.
func NewWriter(embedder embedding.Client, store vectorstore.Store) *Writer {
	return &Writer{
		embedder: embedder,
		store:    store,
		now:      time.Now,
	}
}

// RecordTurn persists one conversation turn. role must be "user" or
// "assistant"; the record type is derived from it.
func (w *Writer) RecordTurn(ctx context.Context, projectID, role, content string) (vectorstore.Record, error) {
	var typ string
	switch role {
	case "user":
		typ = vectorstore.TypeUserMessage
	case "assistant":
		typ = vectorstore.TypeAIResponse
	default:
		return vectorstore.Record{}, goerr.New("unknown turn role",
			goerr.V("role", role),
			goerr.T(errs.TagInvalidInput))
	}
	return w.Record(ctx, projectID, typ, content, nil)
}

// Record persists arbitrary content of the given type. extra metadata is
// stored alongside the reserved fields.
func (w *Writer) Record(ctx context.Context, projectID, typ, content string, extra map[string]string) (vectorstore.Record, error) {
	if projectID == "" {
		return vectorstore.Record{}, goerr.New("empty project id", goerr.T(errs.TagInvalidInput))
	}

	vec, err := w.embedder.Embed(ctx, content)
	if err != nil {
		return vectorstore.Record{}, goerr.Wrap(err, "embedding memory content")
	}

	rec := vectorstore.Record{
		ID:     uuid.NewString(),
		Vector: vec,
		Metadata: vectorstore.Metadata{
			ProjectID: projectID,
			Content:   content,
			Type:      typ,
			CreatedAt: w.now().UTC(),
			Extra:     extra,
		},
	}

	if err := w.store.Upsert(ctx, []vectorstore.Record{rec}); err != nil {
		return vectorstore.Record{}, goerr.Wrap(err, "upserting memory record")
	}
	return rec, nil
}

// TryRecordTurn is the best-effort form of RecordTurn used on the chat path.
// Failures are logged and dropped.
func (w *Writer) TryRecordTurn(ctx context.Context, projectID, role, content string) {
	if _, err := w.RecordTurn(ctx, projectID, role, content); err != nil {
		slog.Warn("memory write dropped",
			"project_id", projectID,
			"role", role,
			"error", err)
	}
}

// TryRecord is the best-effort form of Record.
func (w *Writer) TryRecord(ctx context.Context, projectID, typ, content string, extra map[string]string) {
	if _, err := w.Record(ctx, projectID, typ, content, extra); err != nil {
		slog.Warn("memory write dropped",
			"project_id", projectID,
			"type", typ,
			"error", err)
	}
}
