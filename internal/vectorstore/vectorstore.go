// Package vectorstore adapts hosted and embedded vector indexes behind a
// single interface. Records are append/overwrite-only and queries read a
// possibly stale snapshot; there is no read-after-write guarantee and no
// application-level locking.
package vectorstore

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
)

// Store is the interface for vector index backends.
//
// Ordering contract: Query returns at most topK candidates by descending
// similarity; ties are broken by insertion recency (most recent first) and
// the order is stable across repeated calls given unchanged data.
type Store interface {
	// Upsert writes records, replacing any record sharing the same ID.
	// Re-upserting an identical record is a no-op in effect.
	Upsert(ctx context.Context, records []Record) error

	// Query returns the nearest neighbors of vector, optionally restricted
	// by filter. An empty filter searches across all projects.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Candidate, error)

	// DeleteByID removes a single record.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByFilter removes every record matching the filter.
	DeleteByFilter(ctx context.Context, filter Filter) error
}

// Record types stored in the index.
const (
	TypeUserMessage    = "user_message"
	TypeAIResponse     = "ai_response"
	TypeMarketAnalysis = "market_analysis"
)

// Record is a vector record with its searchable metadata.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Metadata carries a record's attributes. ProjectID must be non-empty.
type Metadata struct {
	ProjectID string
	Content   string
	Type      string
	CreatedAt time.Time
	Extra     map[string]string
}

// Candidate is a single query result with its cosine similarity score.
type Candidate struct {
	ID       string
	Score    float32
	Content  string
	Metadata Metadata
}

// Filter restricts queries and deletions to records whose metadata matches
// every non-empty field exactly.
type Filter struct {
	ProjectID string
	Type      string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.ProjectID == "" && f.Type == ""
}

// validateRecords checks the invariants shared by all backends: fixed
// dimensionality and a non-empty project id on every record.
func validateRecords(records []Record, dimensions int) error {
	for _, r := range records {
		if r.ID == "" {
			return goerr.New("record has empty id", goerr.T(errs.TagInvalidInput))
		}
		if r.Metadata.ProjectID == "" {
			return goerr.New("record has empty project id",
				goerr.V("id", r.ID),
				goerr.T(errs.TagInvalidInput))
		}
		if dimensions > 0 && len(r.Vector) != dimensions {
			return goerr.New("record vector has wrong dimensionality",
				goerr.V("id", r.ID),
				goerr.V("got", len(r.Vector)),
				goerr.V("want", dimensions),
				goerr.T(errs.TagInvalidInput))
		}
	}
	return nil
}

// sortCandidates orders candidates by descending score, breaking ties by
// insertion recency (most recent CreatedAt first). Stable so that repeated
// calls over unchanged data produce identical orderings.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Metadata.CreatedAt.After(cands[j].Metadata.CreatedAt)
	})
}
