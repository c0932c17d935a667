package parser

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/ports"
)

const maxPageBytes = 4 << 20

// PageText downloads an article page and reduces it to plain text. Every
// failure yields an empty string.
type PageText struct {
	client    *http.Client
	extractor string
	maxChars  int
	logger    *slog.Logger
}

var _ ports.PageTextFetcher = (*PageText)(nil)

// NewPageText wires an HTTP client; extractor is goquery or readability.
func NewPageText(client *http.Client, extractor string, maxChars int, log *slog.Logger) *PageText {
	if client == nil {
		client = &http.Client{}
	}
	if extractor == "" {
		extractor = config.ExtractorGoquery
	}
	return &PageText{client: client, extractor: extractor, maxChars: maxChars, logger: log}
}

// FetchText returns at most maxChars characters of whitespace-collapsed page text.
func (p *PageText) FetchText(ctx context.Context, pageURL string, timeout time.Duration) string {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := p.fetch(ctx, pageURL)
	if err != nil {
		p.debug("page fetch failed", "url", pageURL, "error", err)
		return ""
	}

	var text string
	if p.extractor == config.ExtractorReadability {
		text = readableText(raw, pageURL)
	}
	if text == "" {
		text = paragraphText(raw)
	}
	return truncate(text, p.maxChars)
}

func (p *PageText) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (NewsMatcher/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.Status}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// paragraphText joins <p> text inside the first <article>, or across the whole
// page when there is none, and falls back to all document text.
func paragraphText(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	scope := doc.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		scope = article
	}

	parts := make([]string, 0)
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	text := strings.Join(parts, " ")
	if text == "" {
		text = doc.Text()
	}
	return collapse(text)
}

func readableText(raw []byte, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	art, err := readability.FromReader(bytes.NewReader(raw), base)
	if err != nil {
		return ""
	}
	return collapse(art.TextContent)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return "page returned " + e.status
}

func (p *PageText) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
