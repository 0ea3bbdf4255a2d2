package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ReportMeta identifies one report snapshot at import time.
type ReportMeta struct {
	SourceID    string
	GeneratedAt time.Time
	Period      string
	Locale      string
	SourceFile  string
}

// Key derives the period+locale key that scopes the single-active invariant.
func (m ReportMeta) Key() string {
	return m.Period + ":" + m.Locale
}

// ImportResult summarizes one ImportReport call.
type ImportResult struct {
	ReportID    int64
	Imported    int
	AlreadySeen bool
}

// ImportReport inserts a report and its keyword rows in one transaction.
// A (source_id, generated_at) pair already present is a no-op; otherwise any
// prior active report for the same (period, locale) key is deactivated before
// the new one becomes visible. A partially imported report is never visible.
func (s *Store) ImportReport(ctx context.Context, meta ReportMeta, records []KeywordRecord) (ImportResult, error) {
	if meta.SourceID == "" || meta.GeneratedAt.IsZero() {
		return ImportResult{}, fmt.Errorf("import report: source id and generation timestamp are required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import report: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM reports WHERE source_id = $1 AND generated_at = $2`,
		meta.SourceID, meta.GeneratedAt,
	).Scan(&existingID)
	switch {
	case err == nil:
		return ImportResult{ReportID: existingID, AlreadySeen: true}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return ImportResult{}, wrapErr("import report: check duplicate", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reports SET is_active = FALSE WHERE period_locale_key = $1 AND is_active`,
		meta.Key(),
	); err != nil {
		return ImportResult{}, wrapErr("import report: deactivate prior", err)
	}

	var reportID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO reports (source_id, generated_at, period, locale, period_locale_key, source_file, total_keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		meta.SourceID, meta.GeneratedAt, meta.Period, meta.Locale, meta.Key(), meta.SourceFile, len(records),
	).Scan(&reportID)
	if err != nil {
		return ImportResult{}, wrapErr("import report: insert report", err)
	}

	for _, rec := range records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO keyword_records (
				report_id, country, genre, search_term,
				genre_rank, popularity_genre, popularity_overall, popularity_scale,
				score_rank, score_genre, score_overall, total_score
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			reportID, rec.Country, rec.Genre, rec.SearchTerm,
			rec.GenreRank, rec.PopularityGenre, rec.PopularityOverall, rec.PopularityScale,
			rec.ScoreRank, rec.ScoreGenre, rec.ScoreOverall, rec.TotalScore,
		); err != nil {
			return ImportResult{}, wrapErr("import report: insert keyword", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ImportResult{}, fmt.Errorf("import report: commit: %w", err)
	}
	return ImportResult{ReportID: reportID, Imported: len(records)}, nil
}

const reportColumns = `id, source_id, generated_at, period, locale, period_locale_key,
	source_file, total_keywords, is_active, created_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	err := row.Scan(
		&r.ID, &r.SourceID, &r.GeneratedAt, &r.Period, &r.Locale, &r.PeriodLocaleKey,
		&r.SourceFile, &r.TotalKeywords, &r.IsActive, &r.CreatedAt,
	)
	return r, err
}

// ActiveReport returns the single active report for a (period, locale) key,
// or ErrNotFound.
func (s *Store) ActiveReport(ctx context.Context, period, locale string) (Report, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE period_locale_key = $1 AND is_active`,
		period+":"+locale,
	)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, wrapErr("active report", err)
	}
	return r, nil
}

// GetReport loads one report by id or returns ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id int64) (Report, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, wrapErr("get report", err)
	}
	return r, nil
}

const keywordColumns = `id, report_id, country, genre, search_term,
	genre_rank, popularity_genre, popularity_overall, popularity_scale,
	score_rank, score_genre, score_overall, total_score`

func scanKeywordRows(rows pgx.Rows) ([]KeywordRecord, error) {
	defer rows.Close()
	var records []KeywordRecord
	for rows.Next() {
		var rec KeywordRecord
		err := rows.Scan(
			&rec.ID, &rec.ReportID, &rec.Country, &rec.Genre, &rec.SearchTerm,
			&rec.GenreRank, &rec.PopularityGenre, &rec.PopularityOverall, &rec.PopularityScale,
			&rec.ScoreRank, &rec.ScoreGenre, &rec.ScoreOverall, &rec.TotalScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListKeywords returns a report's scored keywords ordered by composite score
// descending. An empty country matches every country.
func (s *Store) ListKeywords(ctx context.Context, reportID int64, country string, limit, offset int) ([]KeywordRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+keywordColumns+` FROM keyword_records
		WHERE report_id = $1 AND ($2 = '' OR country = $2)
		ORDER BY total_score DESC, search_term ASC
		LIMIT $3 OFFSET $4`,
		reportID, country, limit, offset,
	)
	if err != nil {
		return nil, wrapErr("list keywords", err)
	}
	return scanKeywordRows(rows)
}

// KeywordsByID loads keyword records by id, in input order. Every id must
// exist or the call fails with ErrNotFound.
func (s *Store) KeywordsByID(ctx context.Context, ids []int64) ([]KeywordRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+keywordColumns+` FROM keyword_records WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, wrapErr("keywords by id", err)
	}
	records, err := scanKeywordRows(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]KeywordRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	ordered := make([]KeywordRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("keyword %d: %w", id, ErrNotFound)
		}
		ordered = append(ordered, rec)
	}
	return ordered, nil
}
