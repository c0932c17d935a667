// Package newsfeed maps provider results into windowed article batches.
package newsfeed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

// Fetcher is the windowed fetcher: one provider call per Fetch, items mapped
// into articles and filtered to the window. Provider failures are logged and
// turned into an empty batch.
type Fetcher struct {
	feed   ports.NewsFeed
	logger *slog.Logger
}

var _ ports.WindowFetcher = (*Fetcher)(nil)

// NewFetcher wraps a provider.
func NewFetcher(feed ports.NewsFeed, log *slog.Logger) *Fetcher {
	return &Fetcher{feed: feed, logger: log}
}

// Fetch returns the articles whose published time lies inside window.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, window domain.Window) []domain.Article {
	if f.feed == nil || window.Empty() {
		return nil
	}

	items, err := f.feed.CompanyNews(ctx, symbol, window)
	if err != nil {
		f.warn("feed request failed, treating as no results",
			"feed", f.feed.Name(), "symbol", symbol, "error", err)
		return nil
	}

	articles := make([]domain.Article, 0, len(items))
	for _, it := range items {
		article, ok := toArticle(it, f.feed.Name())
		if !ok || !window.Contains(article.PublishedAt) {
			continue
		}
		articles = append(articles, article)
	}

	f.debug("window fetched",
		"feed", f.feed.Name(),
		"symbol", symbol,
		"from", window.From.Format(time.RFC3339),
		"to", window.To.Format(time.RFC3339),
		"raw", len(items),
		"kept", len(articles))
	return articles
}

func toArticle(it domain.FeedItem, defaultSource string) (domain.Article, bool) {
	title := strings.TrimSpace(it.Title)
	link := strings.TrimSpace(it.URL)
	if title == "" || link == "" || it.PublishedUnix <= 0 {
		return domain.Article{}, false
	}

	source := strings.TrimSpace(it.Source)
	if source == "" {
		source = defaultSource
	}

	return domain.Article{
		Title:       title,
		URL:         link,
		Source:      source,
		PublishedAt: time.Unix(it.PublishedUnix, 0).UTC(),
		Text:        strings.TrimSpace(it.Summary),
	}, true
}

func (f *Fetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
