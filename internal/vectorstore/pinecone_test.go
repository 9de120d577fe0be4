package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ideawell/cofounderd/internal/errs"
)

func TestPineconeUpsertSendsVectorsAndMetadata(t *testing.T) {
	var got upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Errorf("Api-Key = %q", r.Header.Get("Api-Key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		w.Write([]byte(`{"upsertedCount":1}`))
	}))
	defer srv.Close()

	s := NewPineconeStore(PineconeOptions{Host: srv.URL, APIKey: "pc-key", Namespace: "ns", Dimensions: 3})
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err := s.Upsert(context.Background(), []Record{{
		ID:     "rec-1",
		Vector: []float32{0.1, 0.2, 0.3},
		Metadata: Metadata{
			ProjectID: "p1",
			Content:   "user loves plants",
			Type:      TypeUserMessage,
			CreatedAt: created,
		},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if got.Namespace != "ns" {
		t.Errorf("namespace = %q, want ns", got.Namespace)
	}
	if len(got.Vectors) != 1 {
		t.Fatalf("got %d vectors, want 1", len(got.Vectors))
	}
	v := got.Vectors[0]
	if v.ID != "rec-1" || len(v.Values) != 3 {
		t.Errorf("vector = %+v", v)
	}
	if v.Metadata["projectId"] != "p1" || v.Metadata["type"] != TypeUserMessage {
		t.Errorf("metadata = %+v", v.Metadata)
	}
	if v.Metadata["createdAt"] != created.Format(time.RFC3339Nano) {
		t.Errorf("createdAt = %q", v.Metadata["createdAt"])
	}
}

func TestPineconeUpsertRejectsWrongDimensionality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be reached")
	}))
	defer srv.Close()

	s := NewPineconeStore(PineconeOptions{Host: srv.URL, APIKey: "k", Dimensions: 3})
	err := s.Upsert(context.Background(), []Record{{
		ID:       "rec-1",
		Vector:   []float32{0.1, 0.2},
		Metadata: Metadata{ProjectID: "p1", Content: "x", Type: TypeUserMessage},
	}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsInvalidInput(err) {
		t.Errorf("error not tagged invalid_input: %v", err)
	}
}

func TestPineconeUpsertRejectsEmptyProjectID(t *testing.T) {
	s := NewPineconeStore(PineconeOptions{Host: "http://unused", APIKey: "k", Dimensions: 2})
	err := s.Upsert(context.Background(), []Record{{
		ID:       "rec-1",
		Vector:   []float32{0.1, 0.2},
		Metadata: Metadata{Content: "x", Type: TypeUserMessage},
	}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsInvalidInput(err) {
		t.Errorf("error not tagged invalid_input: %v", err)
	}
}

func TestPineconeQueryFilterAndOrdering(t *testing.T) {
	var got queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		// Same score for m2/m3; m3 is newer and must sort first.
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "m2", "score": 0.8, "metadata": map[string]string{
					"projectId": "p1", "content": "b", "type": TypeUserMessage,
					"createdAt": "2026-08-01T10:00:00Z",
				}},
				{"id": "m1", "score": 0.9, "metadata": map[string]string{
					"projectId": "p1", "content": "a", "type": TypeUserMessage,
					"createdAt": "2026-08-01T09:00:00Z",
				}},
				{"id": "m3", "score": 0.8, "metadata": map[string]string{
					"projectId": "p1", "content": "c", "type": TypeAIResponse,
					"createdAt": "2026-08-01T11:00:00Z",
				}},
			},
		})
	}))
	defer srv.Close()

	s := NewPineconeStore(PineconeOptions{Host: srv.URL, APIKey: "k", Namespace: "ns", Dimensions: 2})
	cands, err := s.Query(context.Background(), []float32{0.5, 0.5}, 5, Filter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if got.TopK != 5 || !got.IncludeMetadata {
		t.Errorf("request = %+v", got)
	}
	if got.Filter == nil {
		t.Fatal("filter missing from request")
	}
	pid, ok := got.Filter["projectId"].(map[string]any)
	if !ok || pid["$eq"] != "p1" {
		t.Errorf("projectId filter = %v", got.Filter["projectId"])
	}

	wantOrder := []string{"m1", "m3", "m2"}
	if len(cands) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d", len(cands), len(wantOrder))
	}
	for i, want := range wantOrder {
		if cands[i].ID != want {
			t.Errorf("cands[%d].ID = %q, want %q", i, cands[i].ID, want)
		}
	}
	if cands[0].Content != "a" {
		t.Errorf("cands[0].Content = %q, want a", cands[0].Content)
	}
}

func TestPineconeQueryGlobalWhenNoProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Filter != nil {
			t.Errorf("expected no filter for global query, got %v", req.Filter)
		}
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	s := NewPineconeStore(PineconeOptions{Host: srv.URL, APIKey: "k", Dimensions: 2})
	cands, err := s.Query(context.Background(), []float32{1, 0}, 5, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0", len(cands))
	}
}

func TestPineconeUnreachableIsUnavailable(t *testing.T) {
	s := NewPineconeStore(PineconeOptions{
		Host: "http://127.0.0.1:1", APIKey: "k", Dimensions: 2,
		Timeout: 500 * time.Millisecond,
	})
	_, err := s.Query(context.Background(), []float32{1, 0}, 5, Filter{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsVectorStoreUnavailable(err) {
		t.Errorf("error not tagged vector_store_unavailable: %v", err)
	}
}

func TestPineconeDeleteByFilterAndAll(t *testing.T) {
	var reqs []deleteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req deleteRequest
		json.NewDecoder(r.Body).Decode(&req)
		reqs = append(reqs, req)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewPineconeStore(PineconeOptions{Host: srv.URL, APIKey: "k", Namespace: "ns", Dimensions: 2})

	if err := s.DeleteByID(context.Background(), "rec-1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := s.DeleteByFilter(context.Background(), Filter{ProjectID: "p1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	if err := s.DeleteByFilter(context.Background(), Filter{}); err != nil {
		t.Fatalf("DeleteByFilter(all): %v", err)
	}

	if len(reqs) != 3 {
		t.Fatalf("got %d delete requests, want 3", len(reqs))
	}
	if len(reqs[0].IDs) != 1 || reqs[0].IDs[0] != "rec-1" {
		t.Errorf("first delete = %+v", reqs[0])
	}
	if reqs[1].Filter == nil {
		t.Errorf("second delete missing filter: %+v", reqs[1])
	}
	if !reqs[2].DeleteAll {
		t.Errorf("third delete should set deleteAll: %+v", reqs[2])
	}
}
