// Package batch drives a batch of keyword analyses item by item against the
// persisted state machine.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goldpan/goldpan/internal/analyze"
	"github.com/goldpan/goldpan/internal/appstore"
	"github.com/goldpan/goldpan/internal/clock"
	"github.com/goldpan/goldpan/internal/metrics"
	"github.com/goldpan/goldpan/internal/store"
)

const noAppsMessage = "no apps found in storefront for this keyword"

// Analyzer runs the rank/enrich/merge/score pipeline for one keyword.
type Analyzer interface {
	Analyze(ctx context.Context, term, storefront string) (analyze.Analysis, error)
}

// Store is the persistence surface the coordinator drives.
type Store interface {
	GetBatch(ctx context.Context, id int64) (store.Batch, error)
	ResetStaleItems(ctx context.Context, batchID int64) (int64, error)
	MarkBatchStarted(ctx context.Context, batchID int64, at time.Time) error
	PendingItems(ctx context.Context, batchID int64) ([]store.BatchItem, error)
	MarkItemInProgress(ctx context.Context, itemID int64) error
	CompleteItem(ctx context.Context, itemID int64, analysisID *uuid.UUID, message *string, at time.Time) error
	FailItem(ctx context.Context, itemID int64, message string, at time.Time) error
	RefreshBatchCounters(ctx context.Context, batchID int64) error
	FinishBatch(ctx context.Context, batchID int64, status store.Status, at time.Time) error
	SaveAnalysis(ctx context.Context, a analyze.Analysis) (uuid.UUID, error)
}

// Coordinator processes one batch at a time, strictly serialized, with a
// mandatory minimum delay between items.
type Coordinator struct {
	store    Store
	analyzer Analyzer
	limiter  *rate.Limiter
	clk      clock.Clock
	logger   *zap.Logger
}

// NewCoordinator constructs a Coordinator with the given inter-item delay.
func NewCoordinator(st Store, an Analyzer, delay time.Duration, clk clock.Clock, logger *zap.Logger) *Coordinator {
	if delay <= 0 {
		delay = time.Second
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    st,
		analyzer: an,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		clk:      clk,
		logger:   logger,
	}
}

// Run processes every pending item of a batch. Items stranded in_progress by
// an earlier abnormal termination are reset to pending first. A single item
// failure is recorded and processing continues; the aggregate batch status
// reflects it at the end. On cancellation the batch is left in_progress so a
// later run can resume it.
func (c *Coordinator) Run(ctx context.Context, batchID int64) (store.Batch, error) {
	b, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return store.Batch{}, fmt.Errorf("load batch %d: %w", batchID, err)
	}
	if b.Status.Terminal() {
		c.logger.Info("batch already finished",
			zap.Int64("batch_id", batchID),
			zap.String("status", string(b.Status)),
		)
		return b, nil
	}

	reset, err := c.store.ResetStaleItems(ctx, batchID)
	if err != nil {
		return b, fmt.Errorf("reset stale items: %w", err)
	}
	if reset > 0 {
		c.logger.Warn("reset stale in-progress items",
			zap.Int64("batch_id", batchID),
			zap.Int64("count", reset),
		)
	}

	if err := c.store.MarkBatchStarted(ctx, batchID, c.clk.Now()); err != nil {
		return b, fmt.Errorf("mark batch started: %w", err)
	}

	items, err := c.store.PendingItems(ctx, batchID)
	if err != nil {
		return b, fmt.Errorf("load pending items: %w", err)
	}
	c.logger.Info("processing batch",
		zap.Int64("batch_id", batchID),
		zap.Int("pending", len(items)),
	)

	for _, item := range items {
		waitStart := c.clk.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Info("batch run cancelled", zap.Int64("batch_id", batchID))
			return c.currentBatch(batchID, b), err
		}
		metrics.ObservePacingDelay(c.clk.Now().Sub(waitStart))

		if err := c.processItem(ctx, item); err != nil {
			return c.currentBatch(batchID, b), err
		}
		if err := c.store.RefreshBatchCounters(ctx, batchID); err != nil {
			return c.currentBatch(batchID, b), err
		}
	}

	return c.finalize(ctx, batchID)
}

// processItem runs one attempt. Pipeline failures are recorded on the item
// and swallowed; store failures and cancellation propagate and abort the run.
func (c *Coordinator) processItem(ctx context.Context, item store.BatchItem) error {
	if err := c.store.MarkItemInProgress(ctx, item.ID); err != nil {
		return fmt.Errorf("item %d: %w", item.ID, err)
	}

	storefront := appstore.StorefrontCode(item.Country)
	analysis, err := c.analyzer.Analyze(ctx, item.SearchTerm, storefront)
	if err != nil {
		// Run cancellation is not an item failure. The item stays
		// in_progress and the next run resets it to pending. ctx.Err()
		// distinguishes it from a per-request timeout, which also
		// matches context.DeadlineExceeded but must fail the item.
		if ctx.Err() != nil {
			c.logger.Info("batch run cancelled mid-item",
				zap.Int64("item_id", item.ID),
				zap.String("term", item.SearchTerm),
			)
			return ctx.Err()
		}
		c.logger.Warn("keyword analysis failed",
			zap.Int64("item_id", item.ID),
			zap.String("term", item.SearchTerm),
			zap.Error(err),
		)
		metrics.ObserveBatchItem(string(store.StatusFailed))
		if err := c.store.FailItem(ctx, item.ID, err.Error(), c.clk.Now()); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
		return nil
	}

	if len(analysis.Results) == 0 {
		msg := noAppsMessage
		metrics.ObserveBatchItem(string(store.StatusCompleted))
		if err := c.store.CompleteItem(ctx, item.ID, nil, &msg, c.clk.Now()); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
		return nil
	}

	analysisID, err := c.store.SaveAnalysis(ctx, analysis)
	if err != nil {
		c.logger.Error("persisting analysis failed",
			zap.Int64("item_id", item.ID),
			zap.String("term", item.SearchTerm),
			zap.Error(err),
		)
		metrics.ObserveBatchItem(string(store.StatusFailed))
		if err := c.store.FailItem(ctx, item.ID, err.Error(), c.clk.Now()); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
		return nil
	}

	metrics.ObserveBatchItem(string(store.StatusCompleted))
	if err := c.store.CompleteItem(ctx, item.ID, &analysisID, nil, c.clk.Now()); err != nil {
		return fmt.Errorf("item %d: %w", item.ID, err)
	}
	c.logger.Info("keyword analyzed",
		zap.Int64("item_id", item.ID),
		zap.String("term", item.SearchTerm),
		zap.Int("apps", len(analysis.Results)),
		zap.Int("omitted", analysis.OmittedCount),
	)
	return nil
}

// finalize records the terminal batch status once every item is terminal.
func (c *Coordinator) finalize(ctx context.Context, batchID int64) (store.Batch, error) {
	b, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return store.Batch{}, fmt.Errorf("reload batch %d: %w", batchID, err)
	}
	if b.CompletedCount+b.FailedCount < b.TotalCount {
		// Items remain pending (another run added or reset them); leave the
		// batch in_progress.
		return b, nil
	}

	status := store.StatusFailed
	if b.FailedCount == 0 && b.CompletedCount == b.TotalCount {
		status = store.StatusCompleted
	}
	if err := c.store.FinishBatch(ctx, batchID, status, c.clk.Now()); err != nil {
		return b, fmt.Errorf("finish batch %d: %w", batchID, err)
	}
	b.Status = status
	c.logger.Info("batch finished",
		zap.Int64("batch_id", batchID),
		zap.String("status", string(status)),
		zap.Int("completed", b.CompletedCount),
		zap.Int("failed", b.FailedCount),
	)
	return b, nil
}

// currentBatch reloads the batch for an early return, falling back to the
// last loaded snapshot.
func (c *Coordinator) currentBatch(batchID int64, last store.Batch) store.Batch {
	b, err := c.store.GetBatch(context.Background(), batchID)
	if err != nil {
		return last
	}
	return b
}
