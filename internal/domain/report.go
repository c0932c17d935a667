package domain

import "time"

// Analysis is the structured output of the summarization collaborator.
type Analysis struct {
	Summary    string
	Prediction string
	Keywords   []string
}

// PriceMove is the close-to-close change of a ticker over a window.
type PriceMove struct {
	StartClose float64
	EndClose   float64
	NetGain    float64
	Label      string
}

const (
	LabelUp   = "UP"
	LabelDown = "DOWN"
)

// NewPriceMove derives the relative change and its label from two closes.
// A flat window is labelled DOWN.
func NewPriceMove(startClose, endClose float64) PriceMove {
	base := startClose
	if base < 1e-9 {
		base = 1e-9
	}
	move := PriceMove{StartClose: startClose, EndClose: endClose, NetGain: (endClose - startClose) / base, Label: LabelDown}
	if move.NetGain > 0 {
		move.Label = LabelUp
	}
	return move
}

// ReportArticle is one article entry of a WindowReport.
type ReportArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content"`
}

// WindowReport is the prior-window dataset. Its top-level fields match the
// Message payload so the file can be fed straight into a check run.
type WindowReport struct {
	Ticker     string          `json:"ticker"`
	Company    string          `json:"company"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Summary    string          `json:"summary"`
	Keywords   []string        `json:"keywords"`
	Prediction string          `json:"prediction,omitempty"`
	NetGain    *float64        `json:"net_gain,omitempty"`
	Label      string          `json:"label,omitempty"`
	Articles   []ReportArticle `json:"articles"`
}

// SignatureRecord is the stored form of a window signature.
type SignatureRecord struct {
	ID         int64
	Ticker     string
	Company    string
	StartDate  string
	EndDate    string
	Summary    string
	Keywords   []string
	Prediction string
	CreatedAt  time.Time
}

// Message converts a stored record into a check input payload.
func (r SignatureRecord) Message() Message {
	return Message{
		Ticker:    r.Ticker,
		Company:   r.Company,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Summary:   r.Summary,
		Keywords:  r.Keywords,
	}
}

// MatchRecord is the stored form of a positive detection.
type MatchRecord struct {
	ID         int64              `json:"id"`
	Match      MatchArtifact      `json:"match"`
	Decision   SimilarityDecision `json:"decision"`
	DetectedAt time.Time          `json:"detected_at"`
}
