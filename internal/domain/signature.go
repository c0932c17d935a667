package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MaxKeywords bounds the keyword list of a Signature.
const MaxKeywords = 10

var (
	// ErrMissingTicker is returned when an input payload carries no ticker.
	ErrMissingTicker = errors.New("missing ticker")
	// ErrMissingAPIKey is returned when the news feed credential is absent.
	ErrMissingAPIKey = errors.New("missing news feed api key")
	// ErrInvalidWindow is returned for malformed prior-window requests.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrSignatureNotFound is returned when no stored signature exists for a ticker.
	ErrSignatureNotFound = errors.New("signature not found")
	// ErrRepositoryNotConfigured is returned when a command needs the database but no DSN is set.
	ErrRepositoryNotConfigured = errors.New("signature repository is not configured")
	// ErrNoPriceData means the price source had no closes inside the window.
	ErrNoPriceData = errors.New("no price data for window")
)

// SignatureWindow is the serialized window of a transient signature.
type SignatureWindow struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Minutes int       `json:"minutes"`
}

// Signature is the compact lexical fingerprint of one article batch.
type Signature struct {
	Ticker   string          `json:"ticker"`
	Window   SignatureWindow `json:"window"`
	Summary  string          `json:"summary"`
	Keywords []string        `json:"keywords"`
}

// SimilarityDecision is the outcome of comparing two signatures.
type SimilarityDecision struct {
	KeywordJaccard float64 `json:"keyword_jaccard"`
	SummaryCosine  float64 `json:"summary_cosine"`
	IsSimilar      bool    `json:"is_similar"`
}

// MatchArtifact is persisted once per positive detection.
type MatchArtifact struct {
	Ticker    string `json:"ticker"`
	Company   string `json:"company"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Message is the input payload carrying the previously recorded signature.
type Message struct {
	Ticker    string
	Company   string
	StartDate string
	EndDate   string
	Summary   string
	Keywords  []string
}

type rawMessage struct {
	Ticker    string `json:"ticker"`
	Company   string `json:"company"`
	StartDate string `json:"startDate"`
	Start     string `json:"start"`
	EndDate   string `json:"endDate"`
	End       string `json:"end"`
	Summary   string `json:"summary"`
	Keywords  []any  `json:"keywords"`
}

// ParseMessage decodes an input payload. Both startDate/start and endDate/end
// spellings are accepted; non-string keywords are ignored.
func ParseMessage(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, err
	}

	msg := Message{
		Ticker:    strings.ToUpper(strings.TrimSpace(raw.Ticker)),
		Company:   strings.TrimSpace(raw.Company),
		StartDate: firstNonEmpty(raw.StartDate, raw.Start),
		EndDate:   firstNonEmpty(raw.EndDate, raw.End),
		Summary:   strings.TrimSpace(raw.Summary),
	}
	for _, kw := range raw.Keywords {
		if s, ok := kw.(string); ok {
			msg.Keywords = append(msg.Keywords, s)
		}
	}

	if msg.Ticker == "" {
		return Message{}, ErrMissingTicker
	}
	return msg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
