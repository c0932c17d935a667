package domain

import "time"

// Article is a normalized news item produced by the windowed fetcher.
type Article struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	Text        string
}

// FeedItem is a raw record as returned by a news provider before normalization.
// PublishedUnix is zero when the provider gave no parseable timestamp.
type FeedItem struct {
	Title         string
	URL           string
	Source        string
	PublishedUnix int64
	Summary       string
}

// Window is a UTC time range. HalfOpen excludes To from the range.
type Window struct {
	From     time.Time
	To       time.Time
	HalfOpen bool
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	if w.HalfOpen {
		return t.Before(w.To)
	}
	return !t.After(w.To)
}

// Empty reports whether the window covers no time at all.
func (w Window) Empty() bool {
	if w.HalfOpen {
		return !w.From.Before(w.To)
	}
	return w.To.Before(w.From)
}

// LastDay is the last calendar day touched by the window, used for day-granular
// provider queries.
func (w Window) LastDay() time.Time {
	if w.HalfOpen {
		return w.To.Add(-time.Nanosecond)
	}
	return w.To
}
