package usecase

import (
	"context"
	"errors"
	"testing"

	"NewsMatcher/internal/domain"
)

type limitRecordingRepository struct {
	fakeRepository
	ticker string
	limit  int
}

func (l *limitRecordingRepository) FindMatches(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error) {
	l.ticker, l.limit = ticker, limit
	return l.fakeRepository.FindMatches(ctx, ticker, limit)
}

func TestMatchHistoryList(t *testing.T) {
	t.Parallel()

	repo := &limitRecordingRepository{}
	repo.matches = []domain.MatchRecord{{ID: 7, Match: domain.MatchArtifact{Ticker: "ACME"}}}

	records, err := NewMatchHistory(repo).List(context.Background(), " acme ", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ticker != "ACME" || repo.limit != DefaultMatchLimit {
		t.Fatalf("unexpected query ticker=%q limit=%d", repo.ticker, repo.limit)
	}
	if len(records) != 1 || records[0].ID != 7 {
		t.Fatalf("unexpected records %+v", records)
	}

	if _, err := NewMatchHistory(repo).List(context.Background(), "ACME", 5); err != nil || repo.limit != 5 {
		t.Fatalf("explicit limit should pass through, got %d (%v)", repo.limit, err)
	}
}

func TestMatchHistoryErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewMatchHistory(&fakeRepository{}).List(context.Background(), "", 1); !errors.Is(err, domain.ErrMissingTicker) {
		t.Fatalf("expected missing ticker, got %v", err)
	}
	if _, err := NewMatchHistory(nil).List(context.Background(), "ACME", 1); !errors.Is(err, domain.ErrRepositoryNotConfigured) {
		t.Fatalf("expected repository error, got %v", err)
	}
}
