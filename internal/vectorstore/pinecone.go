package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
)

// Compile-time check that PineconeStore implements Store.
var _ Store = (*PineconeStore)(nil)

// PineconeStore talks to a hosted Pinecone index over its data-plane HTTP
// API. All records live in a single namespace.
type PineconeStore struct {
	host       string
	apiKey     string
	namespace  string
	dimensions int
	timeout    time.Duration
	httpClient *http.Client
}

// PineconeOptions configures a PineconeStore.
type PineconeOptions struct {
	// Host is the index data-plane URL, e.g. https://idx-abc123.svc.pinecone.io.
	Host       string
	APIKey     string
	Namespace  string
	Dimensions int
	Timeout    time.Duration
}

// NewPineconeStore creates a store for the given index host.
func NewPineconeStore(opts PineconeOptions) *PineconeStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PineconeStore{
		host:       strings.TrimRight(opts.Host, "/"),
		apiKey:     opts.APIKey,
		namespace:  opts.Namespace,
		dimensions: opts.Dimensions,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// pineconeVector is the wire form of a record.
type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float32           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	IDs       []string       `json:"ids,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

// Upsert writes records to the index, replacing records with the same id.
func (s *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records, s.dimensions); err != nil {
		return err
	}

	vectors := make([]pineconeVector, len(records))
	for i, r := range records {
		vectors[i] = pineconeVector{
			ID:       r.ID,
			Values:   r.Vector,
			Metadata: encodeMetadata(r.Metadata),
		}
	}

	return s.post(ctx, "/vectors/upsert", upsertRequest{
		Vectors:   vectors,
		Namespace: s.namespace,
	}, nil)
}

// Query returns at most topK nearest neighbors, most similar first.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Candidate, error) {
	var resp queryResponse
	err := s.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       s.namespace,
		Filter:          encodeFilter(filter),
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		meta := decodeMetadata(m.Metadata)
		cands = append(cands, Candidate{
			ID:       m.ID,
			Score:    m.Score,
			Content:  meta.Content,
			Metadata: meta,
		})
	}

	// The provider returns descending similarity but does not define tie
	// order; re-sort for the stable ordering contract.
	sortCandidates(cands)
	return cands, nil
}

// DeleteByID removes a single record from the namespace.
func (s *PineconeStore) DeleteByID(ctx context.Context, id string) error {
	return s.post(ctx, "/vectors/delete", deleteRequest{
		IDs:       []string{id},
		Namespace: s.namespace,
	}, nil)
}

// DeleteByFilter removes every record matching the filter. A zero filter
// clears the whole namespace.
func (s *PineconeStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	req := deleteRequest{Namespace: s.namespace}
	if filter.IsZero() {
		req.DeleteAll = true
	} else {
		req.Filter = encodeFilter(filter)
	}
	return s.post(ctx, "/vectors/delete", req, nil)
}

func (s *PineconeStore) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return goerr.Wrap(err, "creating vector request", goerr.T(errs.TagVectorStoreUnavailable))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "vector request", goerr.V("path", path), goerr.T(errs.TagVectorStoreUnavailable))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return goerr.New("vector store: unexpected status",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(respBody)),
			goerr.T(errs.TagVectorStoreUnavailable))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return goerr.Wrap(err, "decoding vector response", goerr.T(errs.TagVectorStoreUnavailable))
		}
	}
	return nil
}

func encodeFilter(f Filter) map[string]any {
	if f.IsZero() {
		return nil
	}
	m := make(map[string]any)
	if f.ProjectID != "" {
		m["projectId"] = map[string]any{"$eq": f.ProjectID}
	}
	if f.Type != "" {
		m["type"] = map[string]any{"$eq": f.Type}
	}
	return m
}

func encodeMetadata(m Metadata) map[string]string {
	out := map[string]string{
		"projectId": m.ProjectID,
		"content":   m.Content,
		"type":      m.Type,
		"createdAt": m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range m.Extra {
		if _, reserved := out[k]; !reserved {
			out[k] = v
		}
	}
	return out
}

func decodeMetadata(raw map[string]string) Metadata {
	m := Metadata{
		ProjectID: raw["projectId"],
		Content:   raw["content"],
		Type:      raw["type"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw["createdAt"]); err == nil {
		m.CreatedAt = ts
	}
	for k, v := range raw {
		switch k {
		case "projectId", "content", "type", "createdAt":
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}
	return m
}
