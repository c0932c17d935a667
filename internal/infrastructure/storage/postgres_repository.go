package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

const (
	signaturesTable = "window_signatures"
	matchesTable    = "signature_matches"
)

// Schema creates the tables used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS window_signatures (
    id          BIGSERIAL PRIMARY KEY,
    ticker      TEXT        NOT NULL,
    company     TEXT        NOT NULL DEFAULT '',
    start_date  TEXT        NOT NULL DEFAULT '',
    end_date    TEXT        NOT NULL DEFAULT '',
    summary     TEXT        NOT NULL DEFAULT '',
    keywords    TEXT[]      NOT NULL DEFAULT '{}',
    prediction  TEXT        NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS window_signatures_ticker_idx ON window_signatures (ticker, created_at DESC);

CREATE TABLE IF NOT EXISTS signature_matches (
    id               BIGSERIAL PRIMARY KEY,
    ticker           TEXT             NOT NULL,
    company          TEXT             NOT NULL DEFAULT '',
    start_date       TEXT             NOT NULL DEFAULT '',
    end_date         TEXT             NOT NULL DEFAULT '',
    keyword_jaccard  DOUBLE PRECISION NOT NULL,
    summary_cosine   DOUBLE PRECISION NOT NULL,
    detected_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS signature_matches_ticker_idx ON signature_matches (ticker, detected_at DESC);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists signatures and detections into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.SignatureRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate applies Schema.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertSignature stores a signature and returns its id.
func (r *PostgresRepository) InsertSignature(ctx context.Context, rec domain.SignatureRecord) (int64, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := insertSignatureQuery(rec).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert signature: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert signature: %w", err)
	}
	return id, nil
}

// FindLatestSignature returns the most recent signature for ticker or
// domain.ErrSignatureNotFound.
func (r *PostgresRepository) FindLatestSignature(ctx context.Context, ticker string) (domain.SignatureRecord, error) {
	if r.db == nil {
		return domain.SignatureRecord{}, domain.ErrSignatureNotFound
	}

	query, args, err := latestSignatureQuery(ticker).ToSql()
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("build latest signature: %w", err)
	}

	var (
		rec      domain.SignatureRecord
		keywords pq.StringArray
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID,
		&rec.Ticker,
		&rec.Company,
		&rec.StartDate,
		&rec.EndDate,
		&rec.Summary,
		&keywords,
		&rec.Prediction,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SignatureRecord{}, fmt.Errorf("ticker %s: %w", ticker, domain.ErrSignatureNotFound)
	}
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("query latest signature: %w", err)
	}
	rec.Keywords = []string(keywords)
	return rec, nil
}

// InsertMatch stores a positive detection and returns its id.
func (r *PostgresRepository) InsertMatch(ctx context.Context, rec domain.MatchRecord) (int64, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := insertMatchQuery(rec).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert match: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	return id, nil
}

// FindMatches lists the latest detections for ticker, newest first.
func (r *PostgresRepository) FindMatches(ctx context.Context, ticker string, limit int) ([]domain.MatchRecord, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := matchesQuery(ticker, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build matches: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	var result []domain.MatchRecord
	for rows.Next() {
		var rec domain.MatchRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Match.Ticker,
			&rec.Match.Company,
			&rec.Match.StartDate,
			&rec.Match.EndDate,
			&rec.Decision.KeywordJaccard,
			&rec.Decision.SummaryCosine,
			&rec.DetectedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan match: %w", err)
		}
		rec.Decision.IsSimilar = true
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func insertSignatureQuery(rec domain.SignatureRecord) sq.InsertBuilder {
	keywords := rec.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return psql.Insert(signaturesTable).
		Columns("ticker", "company", "start_date", "end_date", "summary", "keywords", "prediction").
		Values(
			strings.ToUpper(rec.Ticker),
			rec.Company,
			rec.StartDate,
			rec.EndDate,
			rec.Summary,
			pq.StringArray(keywords),
			rec.Prediction,
		).
		Suffix("RETURNING id")
}

func latestSignatureQuery(ticker string) sq.SelectBuilder {
	return psql.Select("id", "ticker", "company", "start_date", "end_date", "summary", "keywords", "prediction", "created_at").
		From(signaturesTable).
		Where(sq.Eq{"ticker": strings.ToUpper(ticker)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)
}

func insertMatchQuery(rec domain.MatchRecord) sq.InsertBuilder {
	detectedAt := rec.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}
	return psql.Insert(matchesTable).
		Columns("ticker", "company", "start_date", "end_date", "keyword_jaccard", "summary_cosine", "detected_at").
		Values(
			strings.ToUpper(rec.Match.Ticker),
			rec.Match.Company,
			rec.Match.StartDate,
			rec.Match.EndDate,
			rec.Decision.KeywordJaccard,
			rec.Decision.SummaryCosine,
			detectedAt,
		).
		Suffix("RETURNING id")
}

func matchesQuery(ticker string, limit int) sq.SelectBuilder {
	if limit <= 0 {
		limit = 20
	}
	return psql.Select("id", "ticker", "company", "start_date", "end_date", "keyword_jaccard", "summary_cosine", "detected_at").
		From(matchesTable).
		Where(sq.Eq{"ticker": strings.ToUpper(ticker)}).
		OrderBy("detected_at DESC", "id DESC").
		Limit(uint64(limit))
}
