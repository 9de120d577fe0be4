package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ideawell/cofounderd/internal/errs"
)

func TestOpenAICompleteSendsSystemAndMessages(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Начни с интервью пользователей."}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		MaxTokens: 300,
	})

	reply, err := c.Complete(context.Background(), Request{
		System: "persona",
		Messages: []Message{
			{Role: "user", Content: "привет"},
			{Role: "assistant", Content: "здравствуй"},
			{Role: "user", Content: "что дальше?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Начни с интервью пользователей." {
		t.Errorf("reply = %q", reply)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 300 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "persona" {
		t.Errorf("messages[0] = %+v", got.Messages[0])
	}
	if got.Messages[3].Content != "что дальше?" {
		t.Errorf("messages[3] = %+v", got.Messages[3])
	}
}

func TestOpenAICompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsCompletionUnavailable(err) {
		t.Errorf("error not tagged completion_unavailable: %v", err)
	}
}

func TestOpenAICompleteUnreachableProvider(t *testing.T) {
	c := NewOpenAIClient(OpenAIOptions{BaseURL: "http://127.0.0.1:1", Model: "gpt-4o-mini"})
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsCompletionUnavailable(err) {
		t.Errorf("error not tagged completion_unavailable: %v", err)
	}
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsCompletionUnavailable(err) {
		t.Errorf("error not tagged completion_unavailable: %v", err)
	}
}
