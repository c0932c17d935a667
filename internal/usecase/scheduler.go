package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

// MessageLoader yields the signature a recurring check compares against.
type MessageLoader func(ctx context.Context) (domain.Message, error)

// Scheduler wires the interval driver with the check use case.
type Scheduler struct {
	driver   ports.Scheduler
	checker  *Checker
	load     MessageLoader
	lookback time.Duration
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring checks.
func NewScheduler(driver ports.Scheduler, checker *Checker, load MessageLoader, lookback time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, checker: checker, load: load, lookback: lookback, logger: log}
}

// Start registers the check with the provided scheduler. A failing run is
// logged and the loop carries on.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.checker == nil || s.load == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.info("scheduled check starting", "trigger", trigger.UTC().Format(time.RFC3339))
		msg, err := s.load(ctx)
		if err != nil {
			s.logError("load message failed", "error", err)
			return
		}
		if _, err := s.checker.Run(ctx, msg, s.lookback); err != nil {
			s.logError("scheduled check failed", "ticker", msg.Ticker, "error", err)
			return
		}
		s.info("scheduled check completed", "ticker", msg.Ticker)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) logError(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
