package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; each entry runs once, tracked by version
// in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS reports (
	id                BIGSERIAL PRIMARY KEY,
	source_id         TEXT NOT NULL,
	generated_at      TIMESTAMPTZ NOT NULL,
	period            TEXT NOT NULL,
	locale            TEXT NOT NULL,
	period_locale_key TEXT NOT NULL,
	source_file       TEXT NOT NULL DEFAULT '',
	total_keywords    INTEGER NOT NULL DEFAULT 0,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_id, generated_at)
);
CREATE INDEX IF NOT EXISTS idx_reports_active
	ON reports (period_locale_key, is_active);

CREATE TABLE IF NOT EXISTS keyword_records (
	id                 BIGSERIAL PRIMARY KEY,
	report_id          BIGINT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	country            TEXT NOT NULL,
	genre              TEXT NOT NULL,
	search_term        TEXT NOT NULL,
	genre_rank         INTEGER NOT NULL,
	popularity_genre   INTEGER NOT NULL,
	popularity_overall INTEGER NOT NULL,
	popularity_scale   INTEGER NOT NULL DEFAULT 0,
	score_rank         INTEGER NOT NULL,
	score_genre        INTEGER NOT NULL,
	score_overall      INTEGER NOT NULL,
	total_score        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_keyword_records_term
	ON keyword_records (search_term, country);
CREATE INDEX IF NOT EXISTS idx_keyword_records_score
	ON keyword_records (total_score DESC);

CREATE TABLE IF NOT EXISTS batches (
	id               BIGSERIAL PRIMARY KEY,
	report_id        BIGINT NOT NULL REFERENCES reports(id),
	status           TEXT NOT NULL DEFAULT 'pending',
	total_count      INTEGER NOT NULL DEFAULT 0,
	completed_count  INTEGER NOT NULL DEFAULT 0,
	failed_count     INTEGER NOT NULL DEFAULT 0,
	notes            TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at       TIMESTAMPTZ,
	completed_at     TIMESTAMPTZ,
	duration_seconds DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS analyses (
	id                    UUID PRIMARY KEY,
	search_term           TEXT NOT NULL,
	country               TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL,
	app_count             INTEGER NOT NULL,
	omitted_count         INTEGER NOT NULL DEFAULT 0,
	avg_age_days          INTEGER NOT NULL DEFAULT 0,
	median_age_days       INTEGER NOT NULL DEFAULT 0,
	avg_freshness_days    INTEGER NOT NULL DEFAULT 0,
	avg_rating            DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_rating_count      BIGINT NOT NULL DEFAULT 0,
	avg_title_match_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_rating_strength   DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_ratings_per_day   DOUBLE PRECISION NOT NULL DEFAULT 0,
	newest_velocity       DOUBLE PRECISION NOT NULL DEFAULT 0,
	established_velocity  DOUBLE PRECISION NOT NULL DEFAULT 0,
	velocity_ratio        DOUBLE PRECISION NOT NULL DEFAULT 0,
	competitiveness       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS analysis_apps (
	analysis_id       UUID NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	rank              INTEGER NOT NULL,
	app_id            BIGINT NOT NULL,
	title             TEXT NOT NULL,
	title_match_score INTEGER NOT NULL,
	rating_strength   DOUBLE PRECISION NOT NULL,
	rating            DOUBLE PRECISION NOT NULL,
	rating_count      BIGINT NOT NULL,
	ratings_per_day   DOUBLE PRECISION NOT NULL,
	age_days          INTEGER NOT NULL,
	freshness_days    INTEGER NOT NULL,
	first_release_at  TIMESTAMPTZ,
	PRIMARY KEY (analysis_id, rank)
);

CREATE TABLE IF NOT EXISTS batch_items (
	id            BIGSERIAL PRIMARY KEY,
	batch_id      BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	keyword_id    BIGINT NOT NULL REFERENCES keyword_records(id),
	search_term   TEXT NOT NULL,
	country       TEXT NOT NULL,
	genre         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	analysis_id   UUID REFERENCES analyses(id),
	processed_at  TIMESTAMPTZ,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_batch_items_status
	ON batch_items (batch_id, status);`,
}

// Migrate applies any schema migrations not yet recorded in
// schema_migrations. Safe to call on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		var applied bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
			version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if applied {
			continue
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}
