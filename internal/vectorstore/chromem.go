package vectorstore

import (
	"context"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
)

// Compile-time check that ChromemStore implements Store.
var _ Store = (*ChromemStore)(nil)

// ChromemStore is the embedded backend: a pure-Go in-process vector index.
// It serves local development and tests where no hosted index is available,
// and implements the same ordering and idempotence contract.
type ChromemStore struct {
	db         *chromem.DB
	name       string
	dimensions int

	mu  sync.RWMutex
	col *chromem.Collection
}

// ChromemOptions configures a ChromemStore.
type ChromemOptions struct {
	// Name is the collection name records live in.
	Name       string
	Dimensions int
	// DataDir enables on-disk persistence. Empty means in-memory only.
	DataDir string
}

// NewChromemStore creates an embedded store.
func NewChromemStore(opts ChromemOptions) (*ChromemStore, error) {
	name := opts.Name
	if name == "" {
		name = "cofounder-memory"
	}

	var db *chromem.DB
	var err error
	if opts.DataDir != "" {
		db, err = chromem.NewPersistentDB(opts.DataDir, false)
		if err != nil {
			return nil, goerr.Wrap(err, "opening persistent vector db", goerr.T(errs.TagVectorStoreUnavailable))
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "creating vector collection", goerr.T(errs.TagVectorStoreUnavailable))
	}

	return &ChromemStore{
		db:         db,
		name:       name,
		dimensions: opts.Dimensions,
		col:        col,
	}, nil
}

func (s *ChromemStore) collection() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col
}

// Upsert writes records. chromem keys documents by ID, so re-adding a record
// with an existing ID replaces it, which gives the idempotence contract.
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records, s.dimensions); err != nil {
		return err
	}

	col := s.collection()
	for _, r := range records {
		doc := chromem.Document{
			ID:        r.ID,
			Content:   r.Metadata.Content,
			Embedding: r.Vector,
			Metadata:  encodeMetadata(r.Metadata),
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return goerr.Wrap(err, "adding document",
				goerr.V("id", r.ID),
				goerr.T(errs.TagVectorStoreUnavailable))
		}
	}
	return nil
}

// Query returns at most topK nearest neighbors, most similar first with
// recency tie-break.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Candidate, error) {
	col := s.collection()

	n := topK
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	where := encodeWhere(filter)

	// chromem rejects nResults larger than the number of matching documents;
	// a metadata filter can shrink the match set below Count(). Walk the
	// limit down until the query fits.
	var results []chromem.Result
	for ; n >= 1; n-- {
		var err error
		results, err = col.QueryEmbedding(ctx, vector, n, where, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, goerr.Wrap(err, "querying vector collection", goerr.T(errs.TagVectorStoreUnavailable))
	}

	cands := make([]Candidate, 0, len(results))
	for _, r := range results {
		meta := decodeMetadata(r.Metadata)
		cands = append(cands, Candidate{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  meta.Content,
			Metadata: meta,
		})
	}
	sortCandidates(cands)
	return cands, nil
}

// DeleteByID removes a single record.
func (s *ChromemStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.collection().Delete(ctx, nil, nil, id); err != nil {
		return goerr.Wrap(err, "deleting record",
			goerr.V("id", id),
			goerr.T(errs.TagVectorStoreUnavailable))
	}
	return nil
}

// DeleteByFilter removes every record matching the filter. A zero filter
// drops and recreates the whole collection.
func (s *ChromemStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	if filter.IsZero() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.db.DeleteCollection(s.name); err != nil {
			return goerr.Wrap(err, "dropping vector collection", goerr.T(errs.TagVectorStoreUnavailable))
		}
		col, err := s.db.GetOrCreateCollection(s.name, nil, nil)
		if err != nil {
			return goerr.Wrap(err, "recreating vector collection", goerr.T(errs.TagVectorStoreUnavailable))
		}
		s.col = col
		return nil
	}

	col := s.collection()
	if col.Count() == 0 {
		return nil
	}
	if err := col.Delete(ctx, encodeWhere(filter), nil); err != nil {
		return goerr.Wrap(err, "deleting records by filter", goerr.T(errs.TagVectorStoreUnavailable))
	}
	return nil
}

func encodeWhere(f Filter) map[string]string {
	if f.IsZero() {
		return nil
	}
	where := make(map[string]string)
	if f.ProjectID != "" {
		where["projectId"] = f.ProjectID
	}
	if f.Type != "" {
		where["type"] = f.Type
	}
	return where
}

func isTooFewDocsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "nResults")
}
