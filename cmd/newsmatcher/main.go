package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NewsMatcher/internal/app"
	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/logging"
	"NewsMatcher/internal/usecase"
)

const (
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitConfig
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return exitConfig
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	switch args[0] {
	case "check":
		opts, err := parseCheckFlags(args[1:])
		if err != nil {
			return exitConfig
		}
		if err := application.Check(ctx, opts); err != nil {
			logger.Error("check failed", "error", err)
			return exitCode(err)
		}
	case "prior":
		req, err := parsePriorFlags(args[1:])
		if err != nil {
			return exitConfig
		}
		res, err := application.Prior(ctx, req)
		if err != nil {
			logger.Error("prior window failed", "error", err)
			return exitCode(err)
		}
		fmt.Println(res.Path)
	case "matches":
		ticker, limit, err := parseMatchesFlags(args[1:])
		if err != nil {
			return exitConfig
		}
		records, err := application.Matches(ctx, ticker, limit)
		if err != nil {
			logger.Error("list matches failed", "error", err)
			return exitCode(err)
		}
		if err := writeMatches(os.Stdout, records); err != nil {
			logger.Error("print matches failed", "error", err)
			return exitRuntime
		}
	default:
		usage()
		return exitConfig
	}

	return 0
}

func parseCheckFlags(args []string) (app.CheckOptions, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	msgPath := fs.String("msg", "message.json", "path to the input signature JSON")
	lookbackMin := fs.Int("lookback_min", 1440, "minutes to look back")
	timeout := fs.Int("timeout", 15, "page fetch timeout in seconds")
	ticker := fs.String("ticker", "", "load the previous signature for this ticker from the database instead of -msg")
	loop := fs.Bool("loop", false, "keep running on the configured interval")
	if err := fs.Parse(args); err != nil {
		return app.CheckOptions{}, err
	}
	return app.CheckOptions{
		MessagePath: *msgPath,
		Ticker:      *ticker,
		Lookback:    time.Duration(*lookbackMin) * time.Minute,
		PageTimeout: time.Duration(*timeout) * time.Second,
		Loop:        *loop,
	}, nil
}

func parsePriorFlags(args []string) (usecase.PriorRequest, error) {
	fs := flag.NewFlagSet("prior", flag.ContinueOnError)
	ticker := fs.String("ticker", "", "ticker symbol, e.g. NVDA")
	start := fs.String("start", "", "window start, YYYY-MM-DD or MM-DD-YYYY")
	end := fs.String("end", "", "window end (exclusive), YYYY-MM-DD or MM-DD-YYYY")
	company := fs.String("company", "", "company name; defaults to the ticker")
	lookback := fs.Int("lookback", usecase.DefaultLookbackDays, "days of news before start")
	fetchText := fs.Bool("fetch-text", false, "fetch and store article page text")
	if err := fs.Parse(args); err != nil {
		return usecase.PriorRequest{}, err
	}
	return usecase.PriorRequest{
		Ticker:       *ticker,
		Company:      *company,
		Start:        *start,
		End:          *end,
		LookbackDays: *lookback,
		FetchText:    *fetchText,
	}, nil
}

func parseMatchesFlags(args []string) (string, int, error) {
	fs := flag.NewFlagSet("matches", flag.ContinueOnError)
	ticker := fs.String("ticker", "", "ticker symbol")
	limit := fs.Int("limit", usecase.DefaultMatchLimit, "maximum number of detections to list")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}
	return *ticker, *limit, nil
}

func writeMatches(w io.Writer, records []domain.MatchRecord) error {
	if records == nil {
		records = []domain.MatchRecord{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

// exitCode maps input validation failures to the configuration exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingTicker),
		errors.Is(err, domain.ErrMissingAPIKey),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrSignatureNotFound),
		errors.Is(err, domain.ErrRepositoryNotConfigured):
		return exitConfig
	}
	return exitRuntime
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: newsmatcher <command> [flags]

commands:
  check   compare recent news against a recorded signature
  prior   collect the news preceding a price window
  matches list stored detections for a ticker`)
}
