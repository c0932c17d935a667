package rssfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

// Feed reads per-ticker headline RSS. The provider has no date filter, so the
// window is applied downstream by the fetcher.
type Feed struct {
	urlTemplate string
	parser      *gofeed.Parser
	logger      *slog.Logger
}

var _ ports.NewsFeed = (*Feed)(nil)

// New builds a feed reader; urlTemplate must contain one %s for the ticker.
func New(cfg config.FeedConfig, log *slog.Logger) *Feed {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "NewsMatcher/1.0"
	parser.Client = &http.Client{Timeout: timeout}
	return &Feed{urlTemplate: cfg.RSSURLTemplate, parser: parser, logger: log}
}

// Name identifies the provider inside the registry.
func (f *Feed) Name() string {
	return config.ProviderRSS
}

// CompanyNews parses the ticker feed and maps every entry into a feed item.
func (f *Feed) CompanyNews(ctx context.Context, symbol string, window domain.Window) ([]domain.FeedItem, error) {
	feedURL := fmt.Sprintf(f.urlTemplate, url.QueryEscape(strings.ToUpper(symbol)))

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(parsed.Title)
	items := make([]domain.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		items = append(items, domain.FeedItem{
			Title:         it.Title,
			URL:           it.Link,
			Source:        source,
			PublishedUnix: published(it),
			Summary:       it.Description,
		})
	}

	if f.logger != nil {
		f.logger.Debug("rss parsed", "symbol", symbol, "entries", len(items))
	}
	return items, nil
}

func published(it *gofeed.Item) int64 {
	if it.PublishedParsed != nil {
		return it.PublishedParsed.Unix()
	}
	if it.UpdatedParsed != nil {
		return it.UpdatedParsed.Unix()
	}
	return 0
}
