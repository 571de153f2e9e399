package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeChoices(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{APIKey: "test", BaseURL: url, Model: "demo-model"}, opts...)
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		writeChoices(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoices(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
	}))
	defer server.Close()

	err := newTestClient(server.URL).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if !IsUnavailable(err) {
		t.Fatalf("expected 401 to classify as unavailable, got %v", err)
	}
}

func TestClientMissingAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0", Model: "demo"})
	_, err := client.CompleteVisionJSON(context.Background(), "", "describe", "data:image/jpeg;base64,AAAA")
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
	if !IsUnavailable(err) {
		t.Fatal("expected missing key to classify as unavailable")
	}
}

func TestCompleteVisionJSONSendsImagePart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "demo-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
			return
		}
		var parts []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
		}
		if err := json.Unmarshal(req.Messages[1].Content, &parts); err != nil {
			t.Errorf("user content is not a part list: %v", err)
			return
		}
		if len(parts) != 2 || parts[0].Type != "text" || parts[0].Text != "describe" {
			t.Errorf("unexpected text part %+v", parts)
			return
		}
		if parts[1].Type != "image_url" || parts[1].ImageURL == nil || parts[1].ImageURL.URL != "data:image/jpeg;base64,AAAA" {
			t.Errorf("unexpected image part %+v", parts[1])
		}
		writeChoices(t, w, map[string]any{"message": map[string]any{"content": `{"description":"a slide"}`}})
	}))
	defer server.Close()

	content, err := newTestClient(server.URL).CompleteVisionJSON(context.Background(), "json only", "describe", "data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("CompleteVisionJSON returned error: %v", err)
	}
	if content != `{"description":"a slide"}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestCompleteJSONExtractsAlternatePayloads(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{"tool call", map[string]any{"message": map[string]any{
			"content":    "",
			"tool_calls": []any{map[string]any{"function": map[string]any{"arguments": `{"text":"x"}`}}},
		}}},
		{"delta", map[string]any{"delta": map[string]any{"content": `{"text":"x"}`}}},
		{"legacy text", map[string]any{"text": `{"text":"x"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeChoices(t, w, tt.choice)
			}))
			defer server.Close()

			content, err := newTestClient(server.URL).CompleteJSON(context.Background(), "sys", "user")
			if err != nil {
				t.Fatalf("CompleteJSON returned error: %v", err)
			}
			var parsed struct {
				Text string `json:"text"`
			}
			if err := DecodeLLMJSON(content, &parsed); err != nil || parsed.Text != "x" {
				t.Fatalf("unexpected payload %q (err=%v)", content, err)
			}
		})
	}
}

func TestCompleteJSONRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChoices(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(server.URL, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected one Retry-After sleep of 2s, got %v", slept)
	}
}

func TestCompleteJSONRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeChoices(t, w, map[string]any{"message": map[string]any{"content": ""}, "finish_reason": "length"})
			return
		}
		writeChoices(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).CompleteJSON(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestCompleteJSONGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithRetryMaxAttempts(2)).CompleteJSON(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped 503, got %v", err)
	}
	if !IsUnavailable(err) {
		t.Fatal("expected 503 to classify as unavailable")
	}
}

func TestCompleteJSONDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad image")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteJSON(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "bad image") {
		t.Fatalf("expected body in error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if IsUnavailable(err) {
		t.Fatal("400 should not classify as unavailable")
	}
}

func TestDecodeLLMJSONToleratesProse(t *testing.T) {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := DecodeLLMJSON("Sure! Here you go: {\"text\":\"hi\"} Thanks.", &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if parsed.Text != "hi" {
		t.Fatalf("unexpected text %q", parsed.Text)
	}
	if err := DecodeLLMJSON("   ", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
