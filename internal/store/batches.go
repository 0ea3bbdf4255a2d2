package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateBatch materializes a batch of pending items from keyword records.
// All keywords must exist and belong to the same report.
func (s *Store) CreateBatch(ctx context.Context, keywordIDs []int64, notes string) (Batch, error) {
	if len(keywordIDs) == 0 {
		return Batch{}, fmt.Errorf("create batch: at least one keyword is required")
	}
	records, err := s.KeywordsByID(ctx, keywordIDs)
	if err != nil {
		return Batch{}, fmt.Errorf("create batch: %w", err)
	}
	reportID := records[0].ReportID
	for _, rec := range records {
		if rec.ReportID != reportID {
			return Batch{}, fmt.Errorf("create batch: keywords span multiple reports")
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("create batch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := Batch{
		ReportID:   reportID,
		Status:     StatusPending,
		TotalCount: len(records),
	}
	if notes != "" {
		batch.Notes = &notes
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO batches (report_id, status, total_count, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		batch.ReportID, batch.Status, batch.TotalCount, batch.Notes,
	).Scan(&batch.ID, &batch.CreatedAt)
	if err != nil {
		return Batch{}, wrapErr("create batch: insert batch", err)
	}

	for _, rec := range records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO batch_items (batch_id, keyword_id, search_term, country, genre, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			batch.ID, rec.ID, rec.SearchTerm, rec.Country, rec.Genre, StatusPending,
		); err != nil {
			return Batch{}, wrapErr("create batch: insert item", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Batch{}, fmt.Errorf("create batch: commit: %w", err)
	}
	return batch, nil
}

const batchColumns = `id, report_id, status, total_count, completed_count, failed_count,
	notes, created_at, started_at, completed_at, duration_seconds`

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(
		&b.ID, &b.ReportID, &b.Status, &b.TotalCount, &b.CompletedCount, &b.FailedCount,
		&b.Notes, &b.CreatedAt, &b.StartedAt, &b.CompletedAt, &b.DurationSeconds,
	)
	return b, err
}

// GetBatch loads one batch by id or returns ErrNotFound.
func (s *Store) GetBatch(ctx context.Context, id int64) (Batch, error) {
	row := s.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	if err != nil {
		return Batch{}, wrapErr("get batch", err)
	}
	return b, nil
}

// ListBatches returns batches newest first.
func (s *Store) ListBatches(ctx context.Context, limit, offset int) ([]Batch, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapErr("list batches", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

const itemColumns = `id, batch_id, keyword_id, search_term, country, genre,
	status, analysis_id, processed_at, error_message`

func scanItemRows(rows pgx.Rows) ([]BatchItem, error) {
	defer rows.Close()
	var items []BatchItem
	for rows.Next() {
		var it BatchItem
		err := rows.Scan(
			&it.ID, &it.BatchID, &it.KeywordID, &it.SearchTerm, &it.Country, &it.Genre,
			&it.Status, &it.AnalysisID, &it.ProcessedAt, &it.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan batch item row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListItems returns every item of a batch in creation order.
func (s *Store) ListItems(ctx context.Context, batchID int64) ([]BatchItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM batch_items WHERE batch_id = $1 ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, wrapErr("list items", err)
	}
	return scanItemRows(rows)
}

// PendingItems returns the batch's pending items in creation order.
func (s *Store) PendingItems(ctx context.Context, batchID int64) ([]BatchItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM batch_items WHERE batch_id = $1 AND status = $2 ORDER BY id`,
		batchID, StatusPending,
	)
	if err != nil {
		return nil, wrapErr("pending items", err)
	}
	return scanItemRows(rows)
}

// ResetStaleItems returns items stranded in_progress by an abnormal
// termination to pending, so a restarted run picks them up again.
func (s *Store) ResetStaleItems(ctx context.Context, batchID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE batch_items SET status = $1, error_message = NULL
		WHERE batch_id = $2 AND status = $3`,
		StatusPending, batchID, StatusInProgress,
	)
	if err != nil {
		return 0, wrapErr("reset stale items", err)
	}
	return tag.RowsAffected(), nil
}

// MarkBatchStarted moves the batch to in_progress. started_at is set only on
// the first call so resumed runs keep the original start time.
func (s *Store) MarkBatchStarted(ctx context.Context, batchID int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE batches SET status = $1, started_at = COALESCE(started_at, $2)
		WHERE id = $3`,
		StatusInProgress, at, batchID,
	)
	if err != nil {
		return wrapErr("mark batch started", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark batch started: batch %d: %w", batchID, ErrNotFound)
	}
	return nil
}

// MarkItemInProgress transitions a pending item to in_progress.
func (s *Store) MarkItemInProgress(ctx context.Context, itemID int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE batch_items SET status = $1 WHERE id = $2 AND status = $3`,
		StatusInProgress, itemID, StatusPending,
	)
	if err != nil {
		return wrapErr("mark item in progress", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark item in progress: item %d is not pending: %w", itemID, ErrNotFound)
	}
	return nil
}

// CompleteItem records a successful attempt. analysisID is nil when the term
// matched no apps; message then carries the explanation.
func (s *Store) CompleteItem(ctx context.Context, itemID int64, analysisID *uuid.UUID, message *string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE batch_items SET status = $1, analysis_id = $2, error_message = $3, processed_at = $4
		WHERE id = $5 AND status = $6`,
		StatusCompleted, analysisID, message, at, itemID, StatusInProgress,
	)
	if err != nil {
		return wrapErr("complete item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete item: item %d is not in progress: %w", itemID, ErrNotFound)
	}
	return nil
}

// FailItem records a failed attempt with its error message.
func (s *Store) FailItem(ctx context.Context, itemID int64, message string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE batch_items SET status = $1, error_message = $2, processed_at = $3
		WHERE id = $4 AND status = $5`,
		StatusFailed, message, at, itemID, StatusInProgress,
	)
	if err != nil {
		return wrapErr("fail item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail item: item %d is not in progress: %w", itemID, ErrNotFound)
	}
	return nil
}

// RefreshBatchCounters recomputes the completed and failed counts from the
// items themselves.
func (s *Store) RefreshBatchCounters(ctx context.Context, batchID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE batches SET
			completed_count = (SELECT count(*) FROM batch_items WHERE batch_id = $1 AND status = $2),
			failed_count    = (SELECT count(*) FROM batch_items WHERE batch_id = $1 AND status = $3)
		WHERE id = $1`,
		batchID, StatusCompleted, StatusFailed,
	)
	if err != nil {
		return wrapErr("refresh batch counters", err)
	}
	return nil
}

// FinishBatch records the terminal batch status, completion time, and the
// elapsed duration since started_at.
func (s *Store) FinishBatch(ctx context.Context, batchID int64, status Status, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("finish batch: %q is not a terminal status", status)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE batches SET status = $1, completed_at = $2,
			duration_seconds = EXTRACT(EPOCH FROM ($2::timestamptz - started_at))
		WHERE id = $3`,
		status, at, batchID,
	)
	if err != nil {
		return wrapErr("finish batch", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish batch: batch %d: %w", batchID, ErrNotFound)
	}
	return nil
}
