package ports

import (
	"context"
	"time"

	"NewsMatcher/internal/domain"
)

// NewsFeed queries an upstream provider for company news in a date range.
type NewsFeed interface {
	Name() string
	CompanyNews(ctx context.Context, symbol string, window domain.Window) ([]domain.FeedItem, error)
}

// WindowFetcher returns normalized articles published inside a window.
// Implementations never fail: upstream errors degrade to an empty batch.
type WindowFetcher interface {
	Fetch(ctx context.Context, symbol string, window domain.Window) []domain.Article
}

// ArticleSampler collects a bounded, deduplicated batch over [end-lookback, end).
type ArticleSampler interface {
	Sample(ctx context.Context, symbol string, end time.Time, lookback time.Duration) []domain.Article
	// EffectiveLookback is the lookback Sample actually covers.
	EffectiveLookback(lookback time.Duration) time.Duration
}

// PriceSource reports how a ticker moved over a window.
type PriceSource interface {
	WindowChange(ctx context.Context, symbol string, window domain.Window) (domain.PriceMove, error)
}

// PageTextFetcher extracts plain text from an article page, returning an empty
// string on any failure.
type PageTextFetcher interface {
	FetchText(ctx context.Context, url string, timeout time.Duration) string
}

// ArtifactStore persists run artifacts on disk.
type ArtifactStore interface {
	WriteSignature(sig domain.Signature) (string, error)
	RemoveSignature(ticker string) error
	WriteMatch(match domain.MatchArtifact, at time.Time) (string, error)
	WriteReport(report domain.WindowReport) (string, error)
}

// SignatureRepository is the document store holding signatures and detections.
type SignatureRepository interface {
	InsertSignature(ctx context.Context, rec domain.SignatureRecord) (int64, error)
	FindLatestSignature(ctx context.Context, ticker string) (domain.SignatureRecord, error)
	InsertMatch(ctx context.Context, rec domain.MatchRecord) (int64, error)
	FindMatches(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error)
}

// Analyzer turns article text into a summary, a prediction and keywords.
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, window domain.Window, articles []domain.ReportArticle) (domain.Analysis, error)
}

// Notifier announces positive detections.
type Notifier interface {
	PublishMatch(ctx context.Context, match domain.MatchArtifact, decision domain.SimilarityDecision) error
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
