package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/goldpan/goldpan/internal/analyze"
)

// SaveAnalysis persists one analysis artifact and its top-N scored apps in a
// single transaction, returning the generated artifact id.
func (s *Store) SaveAnalysis(ctx context.Context, a analyze.Analysis) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save analysis: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sum := a.Summary
	if _, err := tx.Exec(ctx, `
		INSERT INTO analyses (
			id, search_term, country, created_at, app_count, omitted_count,
			avg_age_days, median_age_days, avg_freshness_days,
			avg_rating, avg_rating_count, avg_title_match_score,
			avg_rating_strength, avg_ratings_per_day,
			newest_velocity, established_velocity, velocity_ratio, competitiveness
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		id, a.Keyword, a.Storefront, a.AnalyzedAt, len(a.Results), a.OmittedCount,
		sum.AvgAgeDays, sum.MedianAgeDays, sum.AvgFreshnessDays,
		sum.AvgRating, sum.AvgRatingCount, sum.AvgTitleMatchScore,
		sum.AvgRatingStrength, sum.AvgRatingsPerDay,
		sum.NewestVelocity, sum.EstablishedVelocity, sum.VelocityRatio, sum.Competitiveness,
	); err != nil {
		return uuid.Nil, wrapErr("save analysis: insert analysis", err)
	}

	for _, r := range a.Results {
		if _, err := tx.Exec(ctx, `
			INSERT INTO analysis_apps (
				analysis_id, rank, app_id, title, title_match_score, rating_strength,
				rating, rating_count, ratings_per_day, age_days, freshness_days, first_release_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			id, r.Rank, r.AppID, r.Title, r.TitleMatchScore, r.RatingStrength,
			r.Rating, r.RatingCount, r.RatingsPerDay, r.AgeDays, r.FreshnessDays, r.FirstReleaseAt,
		); err != nil {
			return uuid.Nil, wrapErr("save analysis: insert app", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("save analysis: commit: %w", err)
	}
	return id, nil
}

// GetAnalysis reconstructs a stored artifact, apps ordered by rank.
func (s *Store) GetAnalysis(ctx context.Context, id uuid.UUID) (analyze.Analysis, error) {
	var (
		a        analyze.Analysis
		appCount int
	)
	err := s.db.QueryRow(ctx, `
		SELECT search_term, country, created_at, app_count, omitted_count,
			avg_age_days, median_age_days, avg_freshness_days,
			avg_rating, avg_rating_count, avg_title_match_score,
			avg_rating_strength, avg_ratings_per_day,
			newest_velocity, established_velocity, velocity_ratio, competitiveness
		FROM analyses WHERE id = $1`, id,
	).Scan(
		&a.Keyword, &a.Storefront, &a.AnalyzedAt, &appCount, &a.OmittedCount,
		&a.Summary.AvgAgeDays, &a.Summary.MedianAgeDays, &a.Summary.AvgFreshnessDays,
		&a.Summary.AvgRating, &a.Summary.AvgRatingCount, &a.Summary.AvgTitleMatchScore,
		&a.Summary.AvgRatingStrength, &a.Summary.AvgRatingsPerDay,
		&a.Summary.NewestVelocity, &a.Summary.EstablishedVelocity,
		&a.Summary.VelocityRatio, &a.Summary.Competitiveness,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return analyze.Analysis{}, ErrNotFound
	}
	if err != nil {
		return analyze.Analysis{}, wrapErr("get analysis", err)
	}
	a.Summary.AppCount = appCount

	rows, err := s.db.Query(ctx, `
		SELECT rank, app_id, title, title_match_score, rating_strength,
			rating, rating_count, ratings_per_day, age_days, freshness_days, first_release_at
		FROM analysis_apps WHERE analysis_id = $1 ORDER BY rank`, id,
	)
	if err != nil {
		return analyze.Analysis{}, wrapErr("get analysis apps", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r analyze.CompetitionResult
		err := rows.Scan(
			&r.Rank, &r.AppID, &r.Title, &r.TitleMatchScore, &r.RatingStrength,
			&r.Rating, &r.RatingCount, &r.RatingsPerDay, &r.AgeDays, &r.FreshnessDays, &r.FirstReleaseAt,
		)
		if err != nil {
			return analyze.Analysis{}, fmt.Errorf("scan analysis app row: %w", err)
		}
		a.Results = append(a.Results, r)
	}
	return a, rows.Err()
}
