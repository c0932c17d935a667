package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/infrastructure/storage"
	"NewsMatcher/internal/newsfeed"
	"NewsMatcher/internal/sampler"
	"NewsMatcher/internal/similarity"
)

var checkNow = time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

type stubFeed struct {
	items []domain.FeedItem
	err   error
}

func (s *stubFeed) Name() string { return "stub" }

func (s *stubFeed) CompanyNews(ctx context.Context, symbol string, window domain.Window) ([]domain.FeedItem, error) {
	return s.items, s.err
}

type stubPageText struct {
	texts map[string]string
}

func (s *stubPageText) FetchText(ctx context.Context, url string, timeout time.Duration) string {
	return s.texts[url]
}

// recordingStore checks that the transient signature is on disk at write time.
type recordingStore struct {
	*storage.FileStore
	written    []domain.Signature
	sawOnDisk  bool
	writeError error
}

func (r *recordingStore) WriteSignature(sig domain.Signature) (string, error) {
	if r.writeError != nil {
		return "", r.writeError
	}
	path, err := r.FileStore.WriteSignature(sig)
	if err == nil {
		_, statErr := os.Stat(path)
		r.sawOnDisk = statErr == nil
		r.written = append(r.written, sig)
	}
	return path, err
}

type fakeRepository struct {
	latest  domain.SignatureRecord
	inserts []domain.SignatureRecord
	matches []domain.MatchRecord
}

func (f *fakeRepository) InsertSignature(ctx context.Context, rec domain.SignatureRecord) (int64, error) {
	f.inserts = append(f.inserts, rec)
	return int64(len(f.inserts)), nil
}

func (f *fakeRepository) FindLatestSignature(ctx context.Context, ticker string) (domain.SignatureRecord, error) {
	if f.latest.Ticker == "" {
		return domain.SignatureRecord{}, domain.ErrSignatureNotFound
	}
	return f.latest, nil
}

func (f *fakeRepository) InsertMatch(ctx context.Context, rec domain.MatchRecord) (int64, error) {
	f.matches = append(f.matches, rec)
	return int64(len(f.matches)), nil
}

func (f *fakeRepository) FindMatches(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error) {
	return f.matches, nil
}

type fakeNotifier struct {
	published []domain.MatchArtifact
	err       error
}

func (f *fakeNotifier) PublishMatch(ctx context.Context, match domain.MatchArtifact, decision domain.SimilarityDecision) error {
	f.published = append(f.published, match)
	return f.err
}

type checkFixture struct {
	checker  *Checker
	store    *recordingStore
	repo     *fakeRepository
	notifier *fakeNotifier
	dir      string
}

func newCheckFixture(t *testing.T, feed *stubFeed, pages map[string]string) checkFixture {
	t.Helper()
	dir := t.TempDir()
	store := &recordingStore{FileStore: storage.NewFileStore(dir)}
	repo := &fakeRepository{}
	notifier := &fakeNotifier{}

	checker := NewChecker(CheckerDeps{
		Sampler:     sampler.New(newsfeed.NewFetcher(feed, nil), sampler.Config{}, nil),
		PageText:    &stubPageText{texts: pages},
		Store:       store,
		Repository:  repo,
		Notifier:    notifier,
		Policy:      similarity.DefaultPolicy(),
		PageTimeout: time.Second,
		Clock:       func() time.Time { return checkNow },
	})
	return checkFixture{checker: checker, store: store, repo: repo, notifier: notifier, dir: dir}
}

func matchFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "match_*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return files
}

func TestCheckCollapsesTrackingDuplicates(t *testing.T) {
	t.Parallel()

	ts := checkNow.Add(-time.Hour).Unix()
	feed := &stubFeed{items: []domain.FeedItem{
		{Title: "A wins big", URL: "https://ex.com/a", Source: "Wire", PublishedUnix: ts},
		{Title: "A wins big", URL: "https://ex.com/a?utm_source=x", Source: "Wire", PublishedUnix: ts + 60},
		{Title: "B loses", URL: "https://ex.com/b", Source: "Wire", PublishedUnix: ts + 120},
	}}
	fx := newCheckFixture(t, feed, nil)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, 1440*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Articles != 2 {
		t.Fatalf("expected 2 unique articles, got %d", res.Articles)
	}
	if res.Signature.Window.Minutes != 1440 || !res.Signature.Window.To.Equal(checkNow) {
		t.Fatalf("unexpected window %+v", res.Signature.Window)
	}
}

func TestCheckFeedFailureStillWritesAndRemovesSignature(t *testing.T) {
	t.Parallel()

	fx := newCheckFixture(t, &stubFeed{err: errors.New("connection refused")}, nil)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME", Summary: "zebra crossing"}, time.Hour)
	if err != nil {
		t.Fatalf("feed failure must not fail the run: %v", err)
	}
	if res.Articles != 0 || len(res.Signature.Keywords) != 0 {
		t.Fatalf("expected empty batch, got %+v", res)
	}
	if !strings.Contains(res.Signature.Summary, "No new ACME articles") {
		t.Fatalf("unexpected summary %q", res.Signature.Summary)
	}
	if !fx.store.sawOnDisk || len(fx.store.written) != 1 {
		t.Fatalf("transient signature should have been written")
	}
	if _, err := os.Stat(fx.store.SignaturePath("ACME")); !os.IsNotExist(err) {
		t.Fatalf("transient signature should be removed after the run")
	}
	if res.Decision.IsSimilar || len(matchFiles(t, fx.dir)) != 0 {
		t.Fatalf("no match expected for an empty batch")
	}
}

func TestCheckKeywordOverlapWritesMatch(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{items: []domain.FeedItem{
		{Title: "Growth expansion", URL: "https://ex.com/g", Source: "Wire", PublishedUnix: checkNow.Add(-30 * time.Minute).Unix()},
	}}
	fx := newCheckFixture(t, feed, nil)

	msg := domain.Message{
		Ticker:    "ACME",
		Company:   "Acme",
		StartDate: "2025-04-01",
		EndDate:   "2025-04-15",
		Summary:   "Unrelated zebra text",
		Keywords:  []string{"growth", "ai"},
	}
	res, err := fx.checker.Run(context.Background(), msg, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Decision.IsSimilar {
		t.Fatalf("expected keyword overlap to qualify, got %+v", res.Decision)
	}
	if res.Decision.KeywordJaccard < 0.33 || res.Decision.KeywordJaccard > 0.34 {
		t.Fatalf("unexpected jaccard %v", res.Decision.KeywordJaccard)
	}

	files := matchFiles(t, fx.dir)
	if len(files) != 1 || filepath.Base(files[0]) != "match_ACME_20250510T120000Z.json" {
		t.Fatalf("unexpected match files %v", files)
	}
	if res.MatchPath != files[0] {
		t.Fatalf("result should point at the match file")
	}
	if len(fx.repo.matches) != 1 || fx.repo.matches[0].Match.StartDate != "2025-04-01" {
		t.Fatalf("match should be recorded in the repository: %+v", fx.repo.matches)
	}
	if len(fx.notifier.published) != 1 {
		t.Fatalf("match should be announced")
	}
}

func TestCheckNoMatchWritesNothing(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{items: []domain.FeedItem{
		{Title: "Quarterly earnings beat", URL: "https://ex.com/e", Source: "Wire", PublishedUnix: checkNow.Add(-time.Minute).Unix()},
	}}
	fx := newCheckFixture(t, feed, nil)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME", Summary: "zebra", Keywords: []string{"zebra"}}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision.IsSimilar || res.MatchPath != "" {
		t.Fatalf("expected no match, got %+v", res.Decision)
	}
	if len(matchFiles(t, fx.dir)) != 0 || len(fx.repo.matches) != 0 || len(fx.notifier.published) != 0 {
		t.Fatalf("no artifacts expected without a match")
	}
}

func TestCheckUsesPageText(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{items: []domain.FeedItem{
		{Title: "Short title", URL: "https://ex.com/p?utm_medium=rss", Source: "Wire", PublishedUnix: checkNow.Add(-time.Minute).Unix(), Summary: "feed blurb"},
	}}
	pages := map[string]string{"https://ex.com/p": "semiconductor semiconductor semiconductor"}
	fx := newCheckFixture(t, feed, pages)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Signature.Keywords) == 0 || res.Signature.Keywords[0] != "semiconductor" {
		t.Fatalf("page text should dominate keywords, got %v", res.Signature.Keywords)
	}
	for _, kw := range res.Signature.Keywords {
		if kw == "blurb" {
			t.Fatalf("feed summary should be replaced by page text")
		}
	}
}

func TestCheckIgnoresFeedSummaryWhenPageFetchFails(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{items: []domain.FeedItem{
		{Title: "Acme news", URL: "https://ex.com/z", Source: "Wire", PublishedUnix: checkNow.Add(-time.Minute).Unix(), Summary: "zebra zebra zebra zebra"},
	}}
	fx := newCheckFixture(t, feed, nil)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Signature.Keywords) != 2 || res.Signature.Keywords[0] != "acme" || res.Signature.Keywords[1] != "news" {
		t.Fatalf("keywords should come from the title only, got %v", res.Signature.Keywords)
	}
	if strings.Contains(res.Signature.Summary, "zebra") {
		t.Fatalf("feed summary leaked into the signature: %q", res.Signature.Summary)
	}
}

func TestCheckClampsLookbackToSamplerCeiling(t *testing.T) {
	t.Parallel()

	fx := newCheckFixture(t, &stubFeed{}, nil)

	res, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, 45*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window := res.Signature.Window
	if window.Minutes != 30*24*60 || !window.From.Equal(checkNow.Add(-30*24*time.Hour)) {
		t.Fatalf("window should reflect the sampled range, got %+v", window)
	}
}

func TestCheckValidation(t *testing.T) {
	t.Parallel()

	fx := newCheckFixture(t, &stubFeed{}, nil)
	if _, err := fx.checker.Run(context.Background(), domain.Message{}, time.Hour); !errors.Is(err, domain.ErrMissingTicker) {
		t.Fatalf("expected missing ticker, got %v", err)
	}
	if _, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, 0); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
	if len(fx.store.written) != 0 {
		t.Fatalf("validation errors must abort before any work")
	}
}

func TestCheckSignatureWriteFailure(t *testing.T) {
	t.Parallel()

	fx := newCheckFixture(t, &stubFeed{}, nil)
	fx.store.writeError = errors.New("disk full")
	if _, err := fx.checker.Run(context.Background(), domain.Message{Ticker: "ACME"}, time.Hour); err == nil {
		t.Fatalf("expected write failure to surface")
	}
}

func TestStoredMessage(t *testing.T) {
	t.Parallel()

	fx := newCheckFixture(t, &stubFeed{}, nil)
	if _, err := fx.checker.StoredMessage(context.Background(), "ACME"); !errors.Is(err, domain.ErrSignatureNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	fx.repo.latest = domain.SignatureRecord{Ticker: "ACME", Summary: "s", Keywords: []string{"k"}}
	msg, err := fx.checker.StoredMessage(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Ticker != "ACME" || msg.Keywords[0] != "k" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestReadMessage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "message.json")
	if err := os.WriteFile(path, []byte(`{"ticker":"acme","start":"2025-04-01","keywords":["a",1]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg, err := ReadMessage(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Ticker != "ACME" || msg.StartDate != "2025-04-01" || len(msg.Keywords) != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := ReadMessage(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
