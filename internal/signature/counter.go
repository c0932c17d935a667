package signature

import "sort"

// Entry is a key with its occurrence count.
type Entry struct {
	Key   string
	Count int
}

// Counter counts string occurrences and remembers first-seen order, so that
// ties in MostCommon resolve deterministically.
type Counter struct {
	order  []string
	counts map[string]int
}

// NewCounter builds an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: map[string]int{}}
}

// Add increments the count of key.
func (c *Counter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// MostCommon returns up to n entries by descending count; equal counts keep
// first-seen order. A negative n returns every entry.
func (c *Counter) MostCommon(n int) []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, Entry{Key: key, Count: c.counts[key]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
