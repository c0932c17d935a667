// Package sampler spreads a bounded fetch budget evenly over a multi-day
// lookback window.
package sampler

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"NewsMatcher/internal/canon"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

const (
	DefaultMaxArticles     = 100
	DefaultChunkDays       = 3
	DefaultMaxLookbackDays = 30

	day = 24 * time.Hour
)

// Config bounds the sampler. Zero values fall back to the defaults.
type Config struct {
	MaxArticles     int
	ChunkDays       int
	MaxLookbackDays int
}

func (c Config) withDefaults() Config {
	if c.MaxArticles <= 0 {
		c.MaxArticles = DefaultMaxArticles
	}
	if c.ChunkDays <= 0 {
		c.ChunkDays = DefaultChunkDays
	}
	if c.MaxLookbackDays <= 0 {
		c.MaxLookbackDays = DefaultMaxLookbackDays
	}
	return c
}

// Sampler walks day-chunks from the most recent backwards, fetching each one
// sequentially through a windowed fetcher.
type Sampler struct {
	fetcher ports.WindowFetcher
	cfg     Config
	logger  *slog.Logger
}

var _ ports.ArticleSampler = (*Sampler)(nil)

// New wires a sampler around a windowed fetcher.
func New(fetcher ports.WindowFetcher, cfg Config, log *slog.Logger) *Sampler {
	return &Sampler{fetcher: fetcher, cfg: cfg.withDefaults(), logger: log}
}

// EffectiveLookback caps lookback at MaxLookbackDays.
func (s *Sampler) EffectiveLookback(lookback time.Duration) time.Duration {
	if ceiling := time.Duration(s.cfg.MaxLookbackDays) * day; lookback > ceiling {
		return ceiling
	}
	return lookback
}

// Sample returns at most MaxArticles articles with unique canonical URLs from
// [end-lookback, end), ordered oldest to newest. Lookback is capped at
// MaxLookbackDays.
func (s *Sampler) Sample(ctx context.Context, symbol string, end time.Time, lookback time.Duration) []domain.Article {
	lookback = s.EffectiveLookback(lookback)
	if lookback <= 0 || s.fetcher == nil {
		return nil
	}

	end = end.UTC()
	start := end.Add(-lookback)
	chunk := time.Duration(s.cfg.ChunkDays) * day
	numChunks := int((lookback + chunk - 1) / chunk)
	allocs := Allocate(s.cfg.MaxArticles, numChunks)

	seen := make(map[string]struct{}, s.cfg.MaxArticles)
	out := make([]domain.Article, 0, s.cfg.MaxArticles)

	for i, alloc := range allocs {
		if len(out) >= s.cfg.MaxArticles {
			break
		}
		if alloc <= 0 {
			continue
		}

		chunkEnd := end.Add(-time.Duration(i) * chunk)
		chunkStart := chunkEnd.Add(-chunk)
		if chunkStart.Before(start) {
			chunkStart = start
		}

		part := s.fetcher.Fetch(ctx, symbol, domain.Window{From: chunkStart, To: chunkEnd, HalfOpen: true})
		SortByPublished(part)
		picked := EvenSample(part, alloc)

		added := 0
		for _, a := range picked {
			if len(out) >= s.cfg.MaxArticles {
				break
			}
			a.URL = canon.URL(a.URL)
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			out = append(out, a)
			added++
		}

		s.debug("chunk sampled",
			"symbol", symbol,
			"chunk", i,
			"from", chunkStart.Format(time.RFC3339),
			"to", chunkEnd.Format(time.RFC3339),
			"alloc", alloc,
			"available", len(part),
			"added", added)
	}

	SortByPublished(out)
	return out
}

// Allocate splits total across n chunks; the remainder goes one per chunk
// starting with the most recent (index 0).
func Allocate(total, n int) []int {
	if n <= 0 {
		return nil
	}
	base, rem := total/n, total%n
	allocs := make([]int, n)
	for i := range allocs {
		allocs[i] = base
		if i < rem {
			allocs[i]++
		}
	}
	return allocs
}

// EvenIndices picks alloc indices spread over [0, n). When n > alloc > 1 the
// k-th index is round-half-even(k*(n-1)/(alloc-1)); otherwise the first
// min(n, alloc) indices are used.
func EvenIndices(n, alloc int) []int {
	if alloc <= 0 || n <= 0 {
		return nil
	}
	if n > alloc && alloc > 1 {
		idx := make([]int, alloc)
		for k := range idx {
			idx[k] = int(math.RoundToEven(float64(k*(n-1)) / float64(alloc-1)))
		}
		return idx
	}
	idx := make([]int, min(n, alloc))
	for k := range idx {
		idx[k] = k
	}
	return idx
}

// EvenSample selects articles by EvenIndices.
func EvenSample(part []domain.Article, alloc int) []domain.Article {
	idx := EvenIndices(len(part), alloc)
	picked := make([]domain.Article, 0, len(idx))
	for _, i := range idx {
		picked = append(picked, part[i])
	}
	return picked
}

// SortByPublished orders articles oldest to newest, keeping feed order for ties.
func SortByPublished(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.Before(articles[j].PublishedAt)
	})
}

func (s *Sampler) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
