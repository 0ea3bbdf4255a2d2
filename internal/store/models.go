// Package store provides Postgres-backed persistence for reports, scored
// keywords, batches, and analysis artifacts.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrIntegrity signals a foreign-key or duplicate-key violation. It is fatal
// to the single operation and always surfaced to the caller.
var ErrIntegrity = errors.New("integrity violation")

// Status is the lifecycle of a batch and of each item inside it.
type Status string

// Statuses persisted in batches.status and batch_items.status.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Report is one imported popularity snapshot. At most one report is active
// per (period, locale) key; the import transaction maintains that.
type Report struct {
	ID              int64
	SourceID        string
	GeneratedAt     time.Time
	Period          string
	Locale          string
	PeriodLocaleKey string
	SourceFile      string
	TotalKeywords   int
	IsActive        bool
	CreatedAt       time.Time
}

// KeywordRecord is one scored row of a report. Immutable once written.
type KeywordRecord struct {
	ID                int64
	ReportID          int64
	Country           string
	Genre             string
	SearchTerm        string
	GenreRank         int
	PopularityGenre   int
	PopularityOverall int
	PopularityScale   int
	ScoreRank         int
	ScoreGenre        int
	ScoreOverall      int
	TotalScore        int
}

// Batch is a unit of keyword-analysis work drawn from one report.
type Batch struct {
	ID             int64
	ReportID       int64
	Status         Status
	TotalCount     int
	CompletedCount int
	FailedCount    int
	Notes          *string
	CreatedAt      time.Time
	// StartedAt is set on the first item transition to in_progress.
	StartedAt *time.Time
	// CompletedAt and DurationSeconds are set when the last item reaches a
	// terminal status.
	CompletedAt     *time.Time
	DurationSeconds *float64
}

// BatchItem is one keyword inside a batch. Its terminal status is permanent;
// there are no automatic retries.
type BatchItem struct {
	ID         int64
	BatchID    int64
	KeywordID  int64
	SearchTerm string
	Country    string
	Genre      string
	Status     Status
	// AnalysisID references the stored artifact for a completed item. It is
	// nil for failed items and for completed items with no apps found.
	AnalysisID   *uuid.UUID
	ProcessedAt  *time.Time
	ErrorMessage *string
}
