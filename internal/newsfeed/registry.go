package newsfeed

import (
	"fmt"
	"sort"

	"NewsMatcher/internal/ports"
)

// Registry keeps a mapping from provider names to feed implementations.
type Registry struct {
	feeds map[string]ports.NewsFeed
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{feeds: map[string]ports.NewsFeed{}}
}

// Register adds or replaces a feed implementation.
func (r *Registry) Register(feed ports.NewsFeed) {
	if feed == nil {
		return
	}
	if r.feeds == nil {
		r.feeds = map[string]ports.NewsFeed{}
	}
	r.feeds[feed.Name()] = feed
}

// Resolve returns a feed by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.NewsFeed, error) {
	if feed, ok := r.feeds[name]; ok {
		return feed, nil
	}
	return nil, fmt.Errorf("news feed %s is not registered (have %v)", name, r.Names())
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
