// Package similarity compares two signatures with keyword-set Jaccard overlap
// and summary bag-of-words cosine similarity.
package similarity

import (
	"math"
	"strings"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/signature"
)

const (
	DefaultKeywordJaccardMin = 0.30
	DefaultSummaryCosineMin  = 0.20
)

// Set is a string set.
type Set map[string]struct{}

// NewSet lowercases every word into a set.
func NewSet(words []string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// BagOfWords counts the significant tokens of text.
func BagOfWords(text string) map[string]int {
	return signature.CountTokens(text).Map()
}

// Cosine returns the cosine similarity of two count vectors, 0 when either is empty.
func Cosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot float64
	for w, ca := range a {
		if cb, ok := b[w]; ok {
			dot += float64(ca) * float64(cb)
		}
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func norm(v map[string]int) float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}

// Policy holds the thresholds of the OR-gate decision. Either metric reaching
// its threshold is enough for a match.
type Policy struct {
	KeywordJaccardMin float64
	SummaryCosineMin  float64
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		KeywordJaccardMin: DefaultKeywordJaccardMin,
		SummaryCosineMin:  DefaultSummaryCosineMin,
	}
}

// Compare scores a previously recorded keyword list and summary against a new one.
func (p Policy) Compare(oldKeywords []string, oldSummary string, newKeywords []string, newSummary string) domain.SimilarityDecision {
	kw := Jaccard(NewSet(oldKeywords), NewSet(newKeywords))
	sum := Cosine(BagOfWords(oldSummary), BagOfWords(newSummary))
	return domain.SimilarityDecision{
		KeywordJaccard: kw,
		SummaryCosine:  sum,
		IsSimilar:      kw >= p.KeywordJaccardMin || sum >= p.SummaryCosineMin,
	}
}
