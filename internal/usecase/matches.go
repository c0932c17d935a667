package usecase

import (
	"context"
	"strings"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

// DefaultMatchLimit is used when a caller asks for a non-positive limit.
const DefaultMatchLimit = 20

// MatchHistory reads back recorded detections.
type MatchHistory struct {
	repository ports.SignatureRepository
}

// NewMatchHistory constructs the use case.
func NewMatchHistory(repository ports.SignatureRepository) *MatchHistory {
	return &MatchHistory{repository: repository}
}

// List returns up to limit detections for ticker, newest first.
func (m *MatchHistory) List(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, domain.ErrMissingTicker
	}
	if m.repository == nil {
		return nil, domain.ErrRepositoryNotConfigured
	}
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	return m.repository.FindMatches(ctx, ticker, limit)
}
