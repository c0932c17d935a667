package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/retry"
)

func TestParseKeywordList(t *testing.T) {
	t.Parallel()

	text := "1. AI chips\n2. - record revenue.\n\n- supply constraints\n10. export limits\n"
	got := ParseKeywordList(text)
	want := []string{"AI chips", "record revenue", "supply constraints", "export limits"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	var long []string
	for i := 0; i < 15; i++ {
		long = append(long, "keyword")
	}
	if n := len(ParseKeywordList(strings.Join(long, "\n"))); n != domain.MaxKeywords {
		t.Fatalf("expected cap at %d, got %d", domain.MaxKeywords, n)
	}
}

func TestNormalizePrediction(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Increase.":   "increase",
		" decrease\n": "decrease",
		"\"Unclear\"": "unclear",
	}
	for in, want := range cases {
		if got := normalizePrediction(in); got != want {
			t.Fatalf("normalizePrediction(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzeRunsThreePrompts(t *testing.T) {
	t.Parallel()

	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		user := req.Messages[len(req.Messages)-1].Content
		prompts = append(prompts, user)

		answer := "Acme is doing well."
		switch {
		case strings.Contains(user, "ONLY one word"):
			answer = "Increase"
		case strings.Contains(user, "numbered list"):
			answer = "1. chips\n2. demand"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": answer}}},
		})
	}))
	defer srv.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "m", APIKey: "key"})
	from := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	window := domain.Window{From: from, To: from.AddDate(0, 0, 30), HalfOpen: true}

	got, err := c.Analyze(context.Background(), "ACME", window, []domain.ReportArticle{{Title: "Acme wins", Content: "body"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], "from 2025-04-01 to 2025-04-30") || !strings.Contains(prompts[0], "1. Acme wins - body") {
		t.Fatalf("unexpected summary prompt: %s", prompts[0])
	}
	if got.Summary != "Acme is doing well." || got.Prediction != "increase" {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"chips", "demand"}) {
		t.Fatalf("unexpected keywords %v", got.Keywords)
	}
}

func TestAnalyzeMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewChatGPTClient(config.ChatGPTConfig{})
	if _, err := c.Analyze(context.Background(), "ACME", domain.Window{}, nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestCompleteRetriesThrottling(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "m", APIKey: "key"})
	c.retry.Delay = time.Millisecond

	got, err := c.complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls.Load() != 2 {
		t.Fatalf("expected one retry, got %q after %d calls", got, calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "m", APIKey: "key"})
	c.retry.Delay = time.Millisecond

	_, err := c.complete(context.Background(), "hello")
	var status *retry.StatusError
	if !errors.As(err, &status) || status.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors should not be retried, got %d calls", calls.Load())
	}
}
