package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
	"NewsMatcher/internal/signature"
	"NewsMatcher/internal/similarity"
)

// CheckerDeps wires the driven adapters of a check run.
type CheckerDeps struct {
	Sampler     ports.ArticleSampler
	PageText    ports.PageTextFetcher
	Store       ports.ArtifactStore
	Repository  ports.SignatureRepository
	Notifier    ports.Notifier
	Policy      similarity.Policy
	PageTimeout time.Duration
	Clock       func() time.Time
	Logger      *slog.Logger
}

// Checker compares fresh news for a ticker against a previously recorded
// signature and records a match when they look alike.
type Checker struct {
	sampler     ports.ArticleSampler
	pageText    ports.PageTextFetcher
	store       ports.ArtifactStore
	repository  ports.SignatureRepository
	notifier    ports.Notifier
	policy      similarity.Policy
	pageTimeout time.Duration
	clock       func() time.Time
	logger      *slog.Logger
}

// CheckResult describes the outcome of one run.
type CheckResult struct {
	Signature domain.Signature
	Decision  domain.SimilarityDecision
	Articles  int
	MatchPath string
}

// NewChecker constructs the orchestration component.
func NewChecker(deps CheckerDeps) *Checker {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Checker{
		sampler:     deps.Sampler,
		pageText:    deps.PageText,
		store:       deps.Store,
		repository:  deps.Repository,
		notifier:    deps.Notifier,
		policy:      deps.Policy,
		pageTimeout: deps.PageTimeout,
		clock:       clock,
		logger:      deps.Logger,
	}
}

// Run fetches news over the lookback ending now, builds its signature and
// compares it with the one carried by msg. The transient signature file is
// always removed before Run returns.
func (c *Checker) Run(ctx context.Context, msg domain.Message, lookback time.Duration) (CheckResult, error) {
	if msg.Ticker == "" {
		return CheckResult{}, domain.ErrMissingTicker
	}
	if lookback <= 0 {
		return CheckResult{}, fmt.Errorf("lookback %s: %w", lookback, domain.ErrInvalidWindow)
	}
	if c.sampler == nil || c.store == nil {
		return CheckResult{}, fmt.Errorf("checker is not configured")
	}

	now := c.clock().UTC()
	lookback = c.sampler.EffectiveLookback(lookback)
	since := now.Add(-lookback)
	c.info("check started",
		"ticker", msg.Ticker,
		"since", since.Format(time.RFC3339),
		"now", now.Format(time.RFC3339),
		"lookback_min", int(lookback/time.Minute))

	articles := c.sampler.Sample(ctx, msg.Ticker, now, lookback)
	c.attachPageText(ctx, articles)

	sig := signature.Build(msg.Ticker, domain.SignatureWindow{
		From:    since,
		To:      now,
		Minutes: int(lookback / time.Minute),
	}, articles)

	defer c.cleanup(msg.Ticker)
	sigPath, err := c.store.WriteSignature(sig)
	if err != nil {
		return CheckResult{}, err
	}
	c.debug("signature written", "path", sigPath, "articles", len(articles), "keywords", len(sig.Keywords))

	decision := c.policy.Compare(msg.Keywords, msg.Summary, sig.Keywords, sig.Summary)
	result := CheckResult{Signature: sig, Decision: decision, Articles: len(articles)}

	if !decision.IsSimilar {
		c.info("not similar",
			"ticker", msg.Ticker,
			"keyword_jaccard", fmt.Sprintf("%.2f", decision.KeywordJaccard),
			"summary_cosine", fmt.Sprintf("%.2f", decision.SummaryCosine))
		return result, nil
	}

	match := domain.MatchArtifact{
		Ticker:    msg.Ticker,
		Company:   msg.Company,
		StartDate: msg.StartDate,
		EndDate:   msg.EndDate,
	}
	matchPath, err := c.store.WriteMatch(match, now)
	if err != nil {
		return result, err
	}
	result.MatchPath = matchPath

	c.info("similar",
		"ticker", msg.Ticker,
		"keyword_jaccard", fmt.Sprintf("%.2f", decision.KeywordJaccard),
		"summary_cosine", fmt.Sprintf("%.2f", decision.SummaryCosine),
		"match", matchPath)

	c.recordMatch(ctx, match, decision, now)
	return result, nil
}

// StoredMessage loads the latest recorded signature for ticker from the repository.
func (c *Checker) StoredMessage(ctx context.Context, ticker string) (domain.Message, error) {
	if c.repository == nil {
		return domain.Message{}, domain.ErrRepositoryNotConfigured
	}
	rec, err := c.repository.FindLatestSignature(ctx, ticker)
	if err != nil {
		return domain.Message{}, err
	}
	return rec.Message(), nil
}

// ReadMessage decodes an input payload file.
func ReadMessage(path string) (domain.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Message{}, fmt.Errorf("read message: %w", err)
	}
	msg, err := domain.ParseMessage(raw)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parse message %s: %w", path, err)
	}
	return msg, nil
}

// attachPageText replaces each article's text with its page text. A failed
// fetch leaves the text empty so the signature rests on the title alone.
func (c *Checker) attachPageText(ctx context.Context, articles []domain.Article) {
	for i := range articles {
		articles[i].Text = ""
		if c.pageText != nil {
			articles[i].Text = c.pageText.FetchText(ctx, articles[i].URL, c.pageTimeout)
		}
	}
}

// recordMatch fans the detection out to the optional collaborators. Their
// failures are logged; the match file is already on disk.
func (c *Checker) recordMatch(ctx context.Context, match domain.MatchArtifact, decision domain.SimilarityDecision, at time.Time) {
	if c.repository != nil {
		if _, err := c.repository.InsertMatch(ctx, domain.MatchRecord{Match: match, Decision: decision, DetectedAt: at}); err != nil {
			c.warn("store match failed", "ticker", match.Ticker, "error", err)
		}
	}
	if c.notifier != nil {
		if err := c.notifier.PublishMatch(ctx, match, decision); err != nil {
			c.warn("notify match failed", "ticker", match.Ticker, "error", err)
		}
	}
}

func (c *Checker) cleanup(ticker string) {
	if err := c.store.RemoveSignature(ticker); err != nil {
		c.warn("cleanup failed", "ticker", ticker, "error", err)
	}
}

func (c *Checker) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Checker) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Checker) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
