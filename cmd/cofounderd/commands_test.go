package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestChatRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /chat": `{"response":"Отличная идея!","success":true,"recommendations":[{"id":"r1","score":0.91,"content":"прошлая заметка","projectId":"p1","createdAt":"2026-08-30T12:00:00Z"}]}`,
	})

	client := ts.client()
	req := map[string]any{
		"message":   "hello",
		"projectId": "p1",
	}

	resp, err := client.post(ctx, "/chat", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Response        string `json:"response"`
		Success         bool   `json:"success"`
		Recommendations []struct {
			ID      string  `json:"id"`
			Score   float32 `json:"score"`
			Content string  `json:"content"`
		} `json:"recommendations"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if !result.Success {
		t.Error("success = false, want true")
	}
	if result.Response != "Отличная идея!" {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.Recommendations) != 1 {
		t.Fatalf("recommendations = %v", result.Recommendations)
	}
	if result.Recommendations[0].ID != "r1" || result.Recommendations[0].Content != "прошлая заметка" {
		t.Errorf("recommendation = %+v", result.Recommendations[0])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "hello" {
		t.Errorf("body.message = %v, want hello", body["message"])
	}
	if body["projectId"] != "p1" {
		t.Errorf("body.projectId = %v, want p1", body["projectId"])
	}
}

func TestChatDegradedResponse(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /chat": `{"response":"Интересно! А кто твоя целевая аудитория?","success":false,"error":"API temporarily unavailable"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/chat", map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Response string `json:"response"`
		Success  bool   `json:"success"`
		Error    string `json:"error"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result.Success {
		t.Error("success = true, want false for degraded turn")
	}
	if result.Response == "" {
		t.Error("degraded turn should still carry a reply")
	}
	if result.Error != "API temporarily unavailable" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestSearchRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /search": `{"ideas":[{"id":"r1","score":0.91,"content":"user loves plants","type":"user_message"}],"success":true}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/search", map[string]any{
		"query":     "plants",
		"projectId": "p1",
		"limit":     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Ideas []struct {
			ID    string  `json:"id"`
			Score float32 `json:"score"`
		} `json:"ideas"`
		Success bool `json:"success"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(result.Ideas) != 1 {
		t.Fatalf("expected 1 idea, got %d", len(result.Ideas))
	}
	if result.Ideas[0].Score < 0.9 {
		t.Errorf("score = %f, want > 0.9", result.Ideas[0].Score)
	}
}

func TestChatCommand_MissingMessage(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"chat"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing message argument")
	}
	if !strings.Contains(err.Error(), "arg") {
		t.Errorf("error = %q, want it to mention arguments", err.Error())
	}
}

func TestPurgeRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /projects/p1/memory": `{"success":true,"messagesDeleted":4}`,
	})

	client := ts.client()
	resp, err := client.delete(ctx, "/projects/p1/memory")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Success         bool  `json:"success"`
		MessagesDeleted int64 `json:"messagesDeleted"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if !result.Success {
		t.Error("success = false, want true")
	}
	if result.MessagesDeleted != 4 {
		t.Errorf("messagesDeleted = %d, want 4", result.MessagesDeleted)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestAPIClientNoTokenSkipsHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = ""

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "" {
		t.Errorf("auth = %q, want empty when no token configured", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/profile")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want > 0", pid)
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error reading removed PID file")
	}
}
