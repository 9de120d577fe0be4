// Package retrieval turns a conversation window into a vector query and
// returns ranked, threshold-filtered candidates from prior memory.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/embedding"
	"github.com/ideawell/cofounderd/internal/errs"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

const (
	defaultTopK     = 5
	defaultMinScore = 0.7
	defaultWindow   = 5
)

// Turn is one conversation message in the caller-supplied history window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a Retriever. Zero values select the defaults.
type Options struct {
	// TopK bounds the number of returned candidates.
	TopK int
	// MinScore is the strict similarity threshold: candidates scoring at or
	// below it are discarded. Low-similarity matches are worse than no
	// suggestion.
	MinScore float64
	// Window is the number of trailing turns used to build the query.
	Window int
}

// Retriever combines the embedding client and vector store into the
// context-retrieval pipeline.
type Retriever struct {
	embedder embedding.Client
	store    vectorstore.Store
	topK     int
	minScore float32
	window   int
}

// NewRetriever creates a Retriever with the given options.
func NewRetriever(embedder embedding.Client, store vectorstore.Store, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.MinScore <= 0 {
		opts.MinScore = defaultMinScore
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     opts.TopK,
		minScore: float32(opts.MinScore),
		window:   opts.Window,
	}
}

// Retrieve returns the most relevant memory candidates for the trailing
// window of the conversation, scoped to projectID when non-empty (global
// otherwise). Retrieval is best-effort enrichment: provider failures degrade
// to an empty result with a log line, never an error.
func (r *Retriever) Retrieve(ctx context.Context, window []Turn, projectID string) []vectorstore.Candidate {
	query := r.buildQuery(window)
	if query == "" {
		return nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("retrieval: embedding query failed", "error", err)
		return nil
	}

	cands, err := r.store.Query(ctx, vec, r.topK, vectorstore.Filter{ProjectID: projectID})
	if err != nil {
		slog.Warn("retrieval: vector query failed", "error", err)
		return nil
	}

	return r.rank(cands)
}

// Search embeds an explicit query string and returns raw nearest neighbors
// without threshold filtering. Unlike Retrieve it propagates failures, since
// search is the caller's primary operation rather than enrichment.
func (r *Retriever) Search(ctx context.Context, query, projectID string, limit int) ([]vectorstore.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, goerr.New("empty search query", goerr.T(errs.TagInvalidInput))
	}
	if limit <= 0 {
		limit = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "embedding search query")
	}

	cands, err := r.store.Query(ctx, vec, limit, vectorstore.Filter{ProjectID: projectID})
	if err != nil {
		return nil, goerr.Wrap(err, "searching vector store")
	}
	return cands, nil
}

// buildQuery space-joins the content of the last window turns in
// chronological order. Blank turns contribute nothing.
func (r *Retriever) buildQuery(window []Turn) string {
	if len(window) == 0 {
		return ""
	}
	start := len(window) - r.window
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, t := range window[start:] {
		if c := strings.TrimSpace(t.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// rank applies the strict threshold, re-sorts defensively, and truncates.
// Adapters promise descending similarity but not a total order; sorting here
// keeps results deterministic regardless of backend.
func (r *Retriever) rank(cands []vectorstore.Candidate) []vectorstore.Candidate {
	kept := cands[:0]
	for _, c := range cands {
		if c.Score > r.minScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Metadata.CreatedAt.After(kept[j].Metadata.CreatedAt)
	})

	if len(kept) > r.topK {
		kept = kept[:r.topK]
	}
	return kept
}
