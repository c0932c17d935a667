// Package signature reduces article batches to a keyword list and a short
// synthesized summary.
package signature

import (
	"fmt"
	"regexp"
	"strings"

	"NewsMatcher/internal/domain"
)

const (
	minTokenLen     = 3
	summarySources  = 3
	summaryKeywords = 5
)

var tokenExpr = regexp.MustCompile(`[a-z0-9][a-z0-9-]+`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
	"to": {}, "for": {}, "with": {}, "at": {}, "by": {}, "from": {}, "as": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "this": {}, "that": {}, "it": {},
	"its": {}, "into": {}, "their": {}, "your": {}, "our": {}, "you": {}, "we": {}, "they": {},
	"he": {}, "she": {}, "his": {}, "her": {}, "but": {}, "about": {}, "over": {}, "after": {},
	"before": {}, "more": {}, "most": {}, "than": {}, "via": {},
}

// Tokenize lowercases text and returns runs of ASCII letters, digits and
// hyphens that start with a letter or digit.
func Tokenize(text string) []string {
	return tokenExpr.FindAllString(strings.ToLower(text), -1)
}

// Significant reports whether a token survives the stopword and length filter.
func Significant(token string) bool {
	if len(token) < minTokenLen {
		return false
	}
	_, stop := stopwords[token]
	return !stop
}

// CountTokens tallies the significant tokens of every text.
func CountTokens(texts ...string) *Counter {
	cnt := NewCounter()
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if Significant(tok) {
				cnt.Add(tok)
			}
		}
	}
	return cnt
}

// TopKeywords returns the k most frequent significant tokens across the whole
// batch, ties broken by first occurrence.
func TopKeywords(texts []string, k int) []string {
	entries := CountTokens(texts...).MostCommon(k)
	keywords := make([]string, 0, len(entries))
	for _, e := range entries {
		keywords = append(keywords, e.Key)
	}
	return keywords
}

// SynthesizeSummary renders a deterministic one-paragraph summary of a batch.
func SynthesizeSummary(ticker string, articles int, keywords []string, sources *Counter) string {
	if articles == 0 {
		return fmt.Sprintf("No new %s articles were detected in the lookback window.", ticker)
	}

	var top []string
	if sources != nil {
		for _, e := range sources.MostCommon(summarySources) {
			top = append(top, fmt.Sprintf("%s(%d)", e.Key, e.Count))
		}
	}

	themes := "various topics"
	if len(keywords) > 0 {
		n := min(len(keywords), summaryKeywords)
		themes = strings.Join(keywords[:n], ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In the lookback window, %d new %s article(s) were published", articles, ticker)
	if len(top) > 0 {
		fmt.Fprintf(&b, " across %s. ", strings.Join(top, ", "))
	} else {
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Common themes include: %s.", themes)
	return b.String()
}

// Build extracts the signature of an article batch. Each article contributes
// its title followed by its page text.
func Build(ticker string, window domain.SignatureWindow, articles []domain.Article) domain.Signature {
	texts := make([]string, 0, len(articles))
	sources := NewCounter()
	for _, a := range articles {
		sources.Add(a.Source)
		texts = append(texts, strings.TrimSpace(a.Title+" "+a.Text))
	}

	keywords := []string{}
	if len(articles) > 0 {
		keywords = TopKeywords(texts, domain.MaxKeywords)
	}

	return domain.Signature{
		Ticker:   ticker,
		Window:   window,
		Summary:  SynthesizeSummary(ticker, len(articles), keywords, sources),
		Keywords: keywords,
	}
}
