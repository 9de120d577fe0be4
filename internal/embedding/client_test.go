package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ideawell/cofounderd/internal/errs"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func embedHandler(t *testing.T, dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Input == "" {
			t.Error("empty input reached the provider")
		}
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = 0.1
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}
}

func TestEmbedReturnsFixedLengthVector(t *testing.T) {
	srv := newTestServer(t, embedHandler(t, 8))
	c := NewHTTPClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-embed", Dimensions: 8})

	vec, err := c.Embed(context.Background(), "startup idea about plant care")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("len(vec) = %d, want 8", len(vec))
	}
}

func TestEmbedEmptyTextIsInvalidInput(t *testing.T) {
	called := false
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c := NewHTTPClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-embed", Dimensions: 8})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Embed(context.Background(), text)
		if err == nil {
			t.Fatalf("Embed(%q): expected error", text)
		}
		if !errs.IsInvalidInput(err) {
			t.Errorf("Embed(%q): error not tagged invalid_input: %v", text, err)
		}
	}
	if called {
		t.Error("provider was called for empty input")
	}
}

func TestEmbedProviderErrorIsUnavailable(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	})
	c := NewHTTPClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-embed", Dimensions: 8})

	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsEmbeddingUnavailable(err) {
		t.Errorf("error not tagged embedding_unavailable: %v", err)
	}
}

func TestEmbedUnreachableProviderIsUnavailable(t *testing.T) {
	c := NewHTTPClient(Options{
		BaseURL: "http://127.0.0.1:1", APIKey: "test-key", Model: "test-embed",
		Dimensions: 8, Timeout: 500 * time.Millisecond,
	})

	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsEmbeddingUnavailable(err) {
		t.Errorf("error not tagged embedding_unavailable: %v", err)
	}
}

func TestEmbedWrongDimensionality(t *testing.T) {
	srv := newTestServer(t, embedHandler(t, 4))
	c := NewHTTPClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-embed", Dimensions: 8})

	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for mismatched dimensionality")
	}
	if !errs.IsEmbeddingUnavailable(err) {
		t.Errorf("error not tagged embedding_unavailable: %v", err)
	}
}
