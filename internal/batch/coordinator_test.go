package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldpan/goldpan/internal/analyze"
	"github.com/goldpan/goldpan/internal/store"
)

type fakeStore struct {
	batch    store.Batch
	items    []store.BatchItem
	analyses map[uuid.UUID]analyze.Analysis
	saveErr  error
	started  int
}

func newFakeStore(terms ...string) *fakeStore {
	fs := &fakeStore{
		batch:    store.Batch{ID: 1, Status: store.StatusPending, TotalCount: len(terms)},
		analyses: make(map[uuid.UUID]analyze.Analysis),
	}
	for i, term := range terms {
		fs.items = append(fs.items, store.BatchItem{
			ID: int64(i + 1), BatchID: 1, KeywordID: int64(100 + i),
			SearchTerm: term, Country: "US", Genre: "Utilities",
			Status: store.StatusPending,
		})
	}
	return fs
}

func (f *fakeStore) item(id int64) *store.BatchItem {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i]
		}
	}
	return nil
}

func (f *fakeStore) GetBatch(_ context.Context, id int64) (store.Batch, error) {
	if id != f.batch.ID {
		return store.Batch{}, store.ErrNotFound
	}
	return f.batch, nil
}

func (f *fakeStore) ResetStaleItems(_ context.Context, _ int64) (int64, error) {
	var n int64
	for i := range f.items {
		if f.items[i].Status == store.StatusInProgress {
			f.items[i].Status = store.StatusPending
			f.items[i].ErrorMessage = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) MarkBatchStarted(_ context.Context, _ int64, at time.Time) error {
	f.started++
	f.batch.Status = store.StatusInProgress
	if f.batch.StartedAt == nil {
		f.batch.StartedAt = &at
	}
	return nil
}

func (f *fakeStore) PendingItems(_ context.Context, _ int64) ([]store.BatchItem, error) {
	var pending []store.BatchItem
	for _, it := range f.items {
		if it.Status == store.StatusPending {
			pending = append(pending, it)
		}
	}
	return pending, nil
}

func (f *fakeStore) MarkItemInProgress(_ context.Context, itemID int64) error {
	it := f.item(itemID)
	if it == nil || it.Status != store.StatusPending {
		return fmt.Errorf("item %d is not pending: %w", itemID, store.ErrNotFound)
	}
	it.Status = store.StatusInProgress
	return nil
}

func (f *fakeStore) CompleteItem(_ context.Context, itemID int64, analysisID *uuid.UUID, message *string, at time.Time) error {
	it := f.item(itemID)
	if it == nil || it.Status != store.StatusInProgress {
		return fmt.Errorf("item %d is not in progress: %w", itemID, store.ErrNotFound)
	}
	it.Status = store.StatusCompleted
	it.AnalysisID = analysisID
	it.ErrorMessage = message
	it.ProcessedAt = &at
	return nil
}

func (f *fakeStore) FailItem(_ context.Context, itemID int64, message string, at time.Time) error {
	it := f.item(itemID)
	if it == nil || it.Status != store.StatusInProgress {
		return fmt.Errorf("item %d is not in progress: %w", itemID, store.ErrNotFound)
	}
	it.Status = store.StatusFailed
	it.ErrorMessage = &message
	it.ProcessedAt = &at
	return nil
}

func (f *fakeStore) RefreshBatchCounters(_ context.Context, _ int64) error {
	f.batch.CompletedCount = 0
	f.batch.FailedCount = 0
	for _, it := range f.items {
		switch it.Status {
		case store.StatusCompleted:
			f.batch.CompletedCount++
		case store.StatusFailed:
			f.batch.FailedCount++
		}
	}
	return nil
}

func (f *fakeStore) FinishBatch(_ context.Context, _ int64, status store.Status, at time.Time) error {
	f.batch.Status = status
	f.batch.CompletedAt = &at
	return nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, a analyze.Analysis) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	id := uuid.New()
	f.analyses[id] = a
	return id, nil
}

type fakeAnalyzer struct {
	errTerms map[string]error
}

func (f fakeAnalyzer) Analyze(_ context.Context, term, storefront string) (analyze.Analysis, error) {
	if err := f.errTerms[term]; err != nil {
		return analyze.Analysis{}, err
	}
	a := analyze.Analysis{Keyword: term, Storefront: storefront}
	if term != "empty" {
		a.Results = []analyze.CompetitionResult{{Rank: 1, AppID: 42, Title: term}}
	}
	return a, nil
}

func TestRunFailSoftRecordsEveryOutcome(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("ok", "boom", "empty")
	an := fakeAnalyzer{errTerms: map[string]error{"boom": errors.New("endpoint down")}}
	c := NewCoordinator(fs, an, time.Millisecond, nil, nil)

	b, err := c.Run(context.Background(), 1)
	require.NoError(t, err)

	// One failure does not stop the remaining items; it only taints the
	// aggregate status.
	assert.Equal(t, store.StatusFailed, b.Status)
	assert.Equal(t, 2, b.CompletedCount)
	assert.Equal(t, 1, b.FailedCount)

	ok := fs.item(1)
	assert.Equal(t, store.StatusCompleted, ok.Status)
	require.NotNil(t, ok.AnalysisID)
	assert.Contains(t, fs.analyses, *ok.AnalysisID)

	boom := fs.item(2)
	assert.Equal(t, store.StatusFailed, boom.Status)
	require.NotNil(t, boom.ErrorMessage)
	assert.Contains(t, *boom.ErrorMessage, "endpoint down")

	empty := fs.item(3)
	assert.Equal(t, store.StatusCompleted, empty.Status)
	assert.Nil(t, empty.AnalysisID)
	require.NotNil(t, empty.ErrorMessage)
	assert.Equal(t, "no apps found in storefront for this keyword", *empty.ErrorMessage)
}

func TestRunAllCompleted(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("fish identifier", "bird identifier")
	c := NewCoordinator(fs, fakeAnalyzer{}, time.Millisecond, nil, nil)

	b, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, b.Status)
	assert.Equal(t, 2, b.CompletedCount)
	assert.Zero(t, b.FailedCount)
	assert.NotNil(t, b.CompletedAt)
	assert.NotNil(t, b.StartedAt)
}

func TestRunResetsStaleInProgressItems(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("fish identifier")
	fs.items[0].Status = store.StatusInProgress
	fs.batch.Status = store.StatusInProgress
	c := NewCoordinator(fs, fakeAnalyzer{}, time.Millisecond, nil, nil)

	b, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, b.Status)
	assert.Equal(t, store.StatusCompleted, fs.item(1).Status)
}

func TestRunFinishedBatchIsNoOp(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("fish identifier")
	fs.batch.Status = store.StatusCompleted
	c := NewCoordinator(fs, fakeAnalyzer{}, time.Millisecond, nil, nil)

	b, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, b.Status)
	assert.Zero(t, fs.started)
	assert.Equal(t, store.StatusPending, fs.item(1).Status)
}

func TestRunSaveFailureFailsTheItem(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("fish identifier")
	fs.saveErr = fmt.Errorf("insert analysis: %w", store.ErrIntegrity)
	c := NewCoordinator(fs, fakeAnalyzer{}, time.Millisecond, nil, nil)

	b, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, b.Status)
	require.NotNil(t, fs.item(1).ErrorMessage)
	assert.Contains(t, *fs.item(1).ErrorMessage, "integrity violation")
}

// blockingAnalyzer parks in Analyze until the run context is cancelled.
type blockingAnalyzer struct {
	started chan struct{}
}

func (b blockingAnalyzer) Analyze(ctx context.Context, _, _ string) (analyze.Analysis, error) {
	close(b.started)
	<-ctx.Done()
	return analyze.Analysis{}, ctx.Err()
}

func TestRunCancellationMidAnalysisKeepsItemInProgress(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("fish identifier")
	an := blockingAnalyzer{started: make(chan struct{})}
	c := NewCoordinator(fs, an, time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-an.started
		cancel()
	}()

	b, err := c.Run(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation mid-analysis is not an item failure. The item stays
	// in_progress with no error message so the next run resets it.
	assert.Equal(t, store.StatusInProgress, b.Status)
	assert.Equal(t, store.StatusInProgress, fs.item(1).Status)
	assert.Nil(t, fs.item(1).ErrorMessage)

	b, err = NewCoordinator(fs, fakeAnalyzer{}, time.Millisecond, nil, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, b.Status)
	assert.Equal(t, store.StatusCompleted, fs.item(1).Status)
}

func TestRunCancellationLeavesBatchResumable(t *testing.T) {
	t.Parallel()

	fs := newFakeStore("first", "second")
	c := NewCoordinator(fs, fakeAnalyzer{}, 300*time.Millisecond, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	b, err := c.Run(ctx, 1)
	require.Error(t, err)

	// The first item finished before the deadline; the second was never
	// started and the batch stays in_progress for a later run.
	assert.Equal(t, store.StatusInProgress, b.Status)
	assert.Equal(t, store.StatusCompleted, fs.item(1).Status)
	assert.Equal(t, store.StatusPending, fs.item(2).Status)
	assert.Nil(t, b.CompletedAt)
}
