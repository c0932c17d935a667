package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/infrastructure/finnhub"
	"NewsMatcher/internal/infrastructure/llm"
	"NewsMatcher/internal/infrastructure/parser"
	"NewsMatcher/internal/infrastructure/rssfeed"
	"NewsMatcher/internal/infrastructure/scheduler"
	"NewsMatcher/internal/infrastructure/storage"
	"NewsMatcher/internal/infrastructure/telegram"
	"NewsMatcher/internal/logging"
	"NewsMatcher/internal/newsfeed"
	"NewsMatcher/internal/ports"
	"NewsMatcher/internal/sampler"
	"NewsMatcher/internal/similarity"
	"NewsMatcher/internal/usecase"
)

// CheckOptions mirror the flags of the check command.
type CheckOptions struct {
	MessagePath string
	Ticker      string
	Lookback    time.Duration
	PageTimeout time.Duration
	Loop        bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sql.DB
	store      *storage.FileStore
	repository ports.SignatureRepository
	sampler    *sampler.Sampler
	analyzer   ports.Analyzer
	prices     ports.PriceSource
	notifier   ports.Notifier
	httpClient *http.Client
}

// New builds the application from a validated configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := newsfeed.NewRegistry()
	finnhubClient := finnhub.NewClient(cfg.Feed, baseLogger.With("component", "feed.finnhub"))
	registry.Register(finnhubClient)
	registry.Register(rssfeed.New(cfg.Feed, baseLogger.With("component", "feed.rss")))

	feed, err := registry.Resolve(cfg.Feed.Provider)
	if err != nil {
		return nil, err
	}

	fetcher := newsfeed.NewFetcher(feed, baseLogger.With("component", "fetcher"))
	smp := sampler.New(fetcher, sampler.Config{
		MaxArticles:     cfg.Sampler.MaxArticles,
		ChunkDays:       cfg.Sampler.ChunkDays,
		MaxLookbackDays: cfg.Sampler.MaxLookbackDays,
	}, baseLogger.With("component", "sampler"))

	a := &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      storage.NewFileStore(cfg.Storage.DataDir),
		sampler:    smp,
		httpClient: &http.Client{},
	}

	if cfg.Feed.Provider == config.ProviderFinnhub {
		a.prices = finnhubClient
	}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.repository = repo
	}

	if chat := llm.NewChatGPTClient(cfg.ChatGPT); chat.Configured() {
		a.analyzer = chat
	}

	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		a.notifier = tg
	}

	baseLogger.Debug("application wired",
		"feed", feed.Name(),
		"feeds", registry.Names(),
		"repository", a.repository != nil,
		"analyzer", a.analyzer != nil,
		"prices", a.prices != nil,
		"notifier", a.notifier != nil)
	return a, nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Check runs one comparison, or keeps running them on an interval when Loop is set.
func (a *Application) Check(ctx context.Context, opts CheckOptions) error {
	pageTimeout := opts.PageTimeout
	if pageTimeout <= 0 {
		pageTimeout = a.cfg.PageText.Timeout
	}

	checker := usecase.NewChecker(usecase.CheckerDeps{
		Sampler:     a.sampler,
		PageText:    parser.NewPageText(a.httpClient, a.cfg.PageText.Extractor, a.cfg.PageText.MaxChars, a.logger.With("component", "pagetext")),
		Store:       a.store,
		Repository:  a.repository,
		Notifier:    a.notifier,
		Policy:      similarity.Policy{KeywordJaccardMin: a.cfg.Similarity.KeywordJaccardMin, SummaryCosineMin: a.cfg.Similarity.SummaryCosineMin},
		PageTimeout: pageTimeout,
		Logger:      a.logger.With("component", "check"),
	})

	load := func(ctx context.Context) (domain.Message, error) {
		if opts.Ticker != "" {
			return checker.StoredMessage(ctx, opts.Ticker)
		}
		return usecase.ReadMessage(opts.MessagePath)
	}

	if !opts.Loop {
		msg, err := load(ctx)
		if err != nil {
			return err
		}
		_, err = checker.Run(ctx, msg, opts.Lookback)
		return err
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Runner.Interval)
	runner := usecase.NewScheduler(driver, checker, load, opts.Lookback, a.logger.With("component", "runner"))
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start runner: %w", err)
	}
	a.logger.Info("runner started", "interval", a.cfg.Runner.Interval.String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return runner.Stop(stopCtx)
}

// Prior collects and records the news preceding a price window.
func (a *Application) Prior(ctx context.Context, req usecase.PriorRequest) (usecase.PriorResult, error) {
	uc := usecase.NewPriorWindow(usecase.PriorWindowDeps{
		Sampler:     a.sampler,
		PageText:    parser.NewPageText(a.httpClient, a.cfg.PageText.Extractor, a.cfg.PageText.PriorMaxChars, a.logger.With("component", "pagetext")),
		Store:       a.store,
		Repository:  a.repository,
		Analyzer:    a.analyzer,
		Prices:      a.prices,
		PageTimeout: a.cfg.PageText.Timeout,
		Logger:      a.logger.With("component", "prior"),
	})
	return uc.Run(ctx, req)
}

// Matches lists the most recent stored detections for ticker.
func (a *Application) Matches(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error) {
	return usecase.NewMatchHistory(a.repository).List(ctx, ticker, limit)
}
