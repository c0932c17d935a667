package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
	"NewsMatcher/internal/signature"
)

const (
	MinWindowDays       = 7
	MaxWindowDays       = 28
	DefaultLookbackDays = 30

	isoDay = "2006-01-02"
	usDay  = "01-02-2006"
)

var corporateSuffix = regexp.MustCompile(`(?i)\b(Inc\.?|Incorporated|Corp\.?|Corporation|Ltd\.?|Limited|PLC)\b`)

// PriorWindowDeps wires the driven adapters of the prior-window scraper.
type PriorWindowDeps struct {
	Sampler     ports.ArticleSampler
	PageText    ports.PageTextFetcher
	Store       ports.ArtifactStore
	Repository  ports.SignatureRepository
	Analyzer    ports.Analyzer
	Prices      ports.PriceSource
	PageTimeout time.Duration
	Logger      *slog.Logger
}

// PriorWindow collects the news published before a price window and records
// it as a reusable signature.
type PriorWindow struct {
	sampler     ports.ArticleSampler
	pageText    ports.PageTextFetcher
	store       ports.ArtifactStore
	repository  ports.SignatureRepository
	analyzer    ports.Analyzer
	prices      ports.PriceSource
	pageTimeout time.Duration
	logger      *slog.Logger
}

// PriorRequest selects the ticker and the window whose run-up is collected.
type PriorRequest struct {
	Ticker       string
	Company      string
	Start        string
	End          string
	LookbackDays int
	FetchText    bool
}

// PriorResult carries the written report.
type PriorResult struct {
	Report domain.WindowReport
	Path   string
}

// NewPriorWindow constructs the use case.
func NewPriorWindow(deps PriorWindowDeps) *PriorWindow {
	return &PriorWindow{
		sampler:     deps.Sampler,
		pageText:    deps.PageText,
		store:       deps.Store,
		repository:  deps.Repository,
		analyzer:    deps.Analyzer,
		prices:      deps.Prices,
		pageTimeout: deps.PageTimeout,
		logger:      deps.Logger,
	}
}

// Run samples [start-lookback, start), summarizes it and writes the report.
// When a price source is wired the move over [start, end) is labelled too and
// a price failure aborts the run.
func (p *PriorWindow) Run(ctx context.Context, req PriorRequest) (PriorResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return PriorResult{}, domain.ErrMissingTicker
	}
	start, end, err := ValidateWindow(req.Start, req.End)
	if err != nil {
		return PriorResult{}, err
	}
	if p.sampler == nil || p.store == nil {
		return PriorResult{}, fmt.Errorf("prior window is not configured")
	}

	lookbackDays := req.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	lookback := p.sampler.EffectiveLookback(time.Duration(lookbackDays) * 24 * time.Hour)
	window := domain.Window{From: start.Add(-lookback), To: start, HalfOpen: true}

	company := CleanCompanyName(req.Company)
	if company == "" {
		company = ticker
	}

	p.info("prior window started",
		"ticker", ticker,
		"company", company,
		"from", window.From.Format(isoDay),
		"to", start.Format(isoDay),
		"lookback_days", int(lookback/(24*time.Hour)))

	var move *domain.PriceMove
	if p.prices != nil {
		m, err := p.prices.WindowChange(ctx, ticker, domain.Window{From: start, To: end, HalfOpen: true})
		if err != nil {
			return PriorResult{}, fmt.Errorf("price change %s: %w", ticker, err)
		}
		move = &m
		p.info("prior window price",
			"ticker", ticker,
			"change", fmt.Sprintf("%.2f%%", m.NetGain*100),
			"label", m.Label)
	}

	articles := p.sampler.Sample(ctx, ticker, start, lookback)
	if req.FetchText && p.pageText != nil {
		for i := range articles {
			if text := p.pageText.FetchText(ctx, articles[i].URL, p.pageTimeout); text != "" {
				articles[i].Text = text
			}
		}
	}
	p.info("prior window sampled", "ticker", ticker, "articles", len(articles))

	reportArticles := make([]domain.ReportArticle, 0, len(articles))
	for _, a := range articles {
		reportArticles = append(reportArticles, domain.ReportArticle{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source,
			PublishedAt: a.PublishedAt,
			Content:     a.Text,
		})
	}

	analysis := p.analyze(ctx, ticker, window, articles, reportArticles)

	report := domain.WindowReport{
		Ticker:     ticker,
		Company:    company,
		StartDate:  start.Format(isoDay),
		EndDate:    end.Format(isoDay),
		Summary:    analysis.Summary,
		Keywords:   analysis.Keywords,
		Prediction: analysis.Prediction,
		Articles:   reportArticles,
	}
	if move != nil {
		gain := math.Round(move.NetGain*1e6) / 1e6
		report.NetGain = &gain
		report.Label = move.Label
	}

	path, err := p.store.WriteReport(report)
	if err != nil {
		return PriorResult{}, err
	}
	p.info("prior window written", "ticker", ticker, "path", path)

	if p.repository != nil {
		id, err := p.repository.InsertSignature(ctx, domain.SignatureRecord{
			Ticker:     report.Ticker,
			Company:    report.Company,
			StartDate:  report.StartDate,
			EndDate:    report.EndDate,
			Summary:    report.Summary,
			Keywords:   report.Keywords,
			Prediction: report.Prediction,
		})
		if err != nil {
			p.warn("store signature failed", "ticker", ticker, "error", err)
		} else {
			p.debug("signature stored", "ticker", ticker, "id", id)
		}
	}

	return PriorResult{Report: report, Path: path}, nil
}

// analyze prefers the LLM analyzer and falls back to the lexical signature.
func (p *PriorWindow) analyze(ctx context.Context, ticker string, window domain.Window, articles []domain.Article, reportArticles []domain.ReportArticle) domain.Analysis {
	if p.analyzer != nil && len(reportArticles) > 0 {
		analysis, err := p.analyzer.Analyze(ctx, ticker, window, reportArticles)
		if err == nil && analysis.Summary != "" {
			if len(analysis.Keywords) > domain.MaxKeywords {
				analysis.Keywords = analysis.Keywords[:domain.MaxKeywords]
			}
			if analysis.Keywords == nil {
				analysis.Keywords = []string{}
			}
			return analysis
		}
		p.warn("analyzer failed, using lexical signature", "ticker", ticker, "error", err)
	}

	sig := signature.Build(ticker, domain.SignatureWindow{
		From:    window.From,
		To:      window.To,
		Minutes: int(window.To.Sub(window.From) / time.Minute),
	}, articles)
	return domain.Analysis{Summary: sig.Summary, Keywords: sig.Keywords}
}

// ParseDay accepts YYYY-MM-DD or MM-DD-YYYY and returns UTC midnight.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{isoDay, usDay} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD or MM-DD-YYYY: %w", value, domain.ErrInvalidWindow)
}

// ValidateWindow parses both bounds and requires end after start by
// MinWindowDays..MaxWindowDays days.
func ValidateWindow(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := ParseDay(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDay(endValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be after start: %w", domain.ErrInvalidWindow)
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < MinWindowDays || days > MaxWindowDays {
		return time.Time{}, time.Time{}, fmt.Errorf("time frame must be between %d and %d days (got %d): %w",
			MinWindowDays, MaxWindowDays, days, domain.ErrInvalidWindow)
	}
	return start, end, nil
}

// CleanCompanyName drops corporate suffixes such as Inc. or Corporation.
func CleanCompanyName(name string) string {
	cleaned := corporateSuffix.ReplaceAllString(name, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimRight(cleaned, " ,.")
}

func (p *PriorWindow) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *PriorWindow) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *PriorWindow) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
