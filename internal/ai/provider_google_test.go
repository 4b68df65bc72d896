package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogleProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("unexpected key: %s", r.URL.Query().Get("key"))
		}

		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)

		// system messages are skipped, only the user turn remains
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Xin chào!"}]}}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 4}
		}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "chào"},
		},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Xin chào!" {
		t.Errorf("content = %q, want %q", resp.Content, "Xin chào!")
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 4 {
		t.Errorf("tokens = %d/%d, want 8/4", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGoogleProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "invalid key"}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("bad-key", WithGoogleBaseURL(server.URL))

	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "chào"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error on API error")
	}
}
