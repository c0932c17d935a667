package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"NewsMatcher/internal/domain"
)

func TestParseCheckFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseCheckFlags([]string{"-msg", "in.json", "-lookback_min", "60", "-timeout", "5", "-loop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.MessagePath != "in.json" || opts.Lookback != time.Hour || opts.PageTimeout != 5*time.Second || !opts.Loop {
		t.Fatalf("unexpected options %+v", opts)
	}

	defaults, err := parseCheckFlags(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if defaults.MessagePath != "message.json" || defaults.Lookback != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
}

func TestParsePriorFlags(t *testing.T) {
	t.Parallel()

	req, err := parsePriorFlags([]string{"-ticker", "nvda", "-start", "04-01-2025", "-end", "04-15-2025", "-fetch-text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Ticker != "nvda" || req.LookbackDays != 30 || !req.FetchText {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := exitCode(fmt.Errorf("wrap: %w", domain.ErrInvalidWindow)); got != exitConfig {
		t.Fatalf("expected config exit, got %d", got)
	}
	if got := exitCode(errors.New("disk full")); got != exitRuntime {
		t.Fatalf("expected runtime exit, got %d", got)
	}
}

func TestParseMatchesFlags(t *testing.T) {
	t.Parallel()

	ticker, limit, err := parseMatchesFlags([]string{"-ticker", "ACME", "-limit", "3"})
	if err != nil || ticker != "ACME" || limit != 3 {
		t.Fatalf("unexpected flags ticker=%q limit=%d err=%v", ticker, limit, err)
	}
	if _, limit, _ := parseMatchesFlags(nil); limit != 20 {
		t.Fatalf("unexpected default limit %d", limit)
	}
}

func TestWriteMatches(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	records := []domain.MatchRecord{{
		ID:         4,
		Match:      domain.MatchArtifact{Ticker: "ACME", StartDate: "2025-04-01"},
		Decision:   domain.SimilarityDecision{KeywordJaccard: 0.5, IsSimilar: true},
		DetectedAt: time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC),
	}}
	if err := writeMatches(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"id": 4`) || !strings.Contains(out, `"startDate": "2025-04-01"`) || !strings.Contains(out, `"detected_at": "2025-05-10T12:00:00Z"`) {
		t.Fatalf("unexpected output %s", out)
	}

	buf.Reset()
	if err := writeMatches(&buf, nil); err != nil || strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty history should print an empty list, got %q", buf.String())
	}
}

func TestExitCodeRepositoryMissing(t *testing.T) {
	t.Parallel()

	if got := exitCode(domain.ErrRepositoryNotConfigured); got != exitConfig {
		t.Fatalf("expected config exit, got %d", got)
	}
}
