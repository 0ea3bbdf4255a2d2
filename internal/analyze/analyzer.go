package analyze

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/appstore"
	"github.com/goldpan/goldpan/internal/clock"
	"github.com/goldpan/goldpan/internal/metrics"
)

// RankSource fetches the ordered, deduplicated identifiers for a term in a
// storefront.
type RankSource interface {
	FetchRanked(ctx context.Context, term, storefront string) ([]int64, error)
}

// DetailSource fetches metadata for a set of identifiers from a storefront.
type DetailSource interface {
	LookupAll(ctx context.Context, ids []int64, storefront string) (map[int64]appstore.App, error)
}

// Analysis is the full artifact of one pipeline run for one keyword.
type Analysis struct {
	Keyword      string              `json:"keyword"`
	Storefront   string              `json:"storefront"`
	AnalyzedAt   time.Time           `json:"analyzed_at"`
	Results      []CompetitionResult `json:"results"`
	OmittedCount int                 `json:"omitted_count"`
	Omitted      []int64             `json:"omitted,omitempty"`
	Summary      Summary             `json:"summary"`
}

// Analyzer drives the rank fetch -> enrich -> merge -> score pipeline.
type Analyzer struct {
	ranks   RankSource
	details DetailSource
	topN    int
	clk     clock.Clock
	logger  *zap.Logger
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(ranks RankSource, details DetailSource, topN int, clk clock.Clock, logger *zap.Logger) *Analyzer {
	if topN <= 0 {
		topN = 20
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{ranks: ranks, details: details, topN: topN, clk: clk, logger: logger}
}

// Analyze runs the full pipeline for one keyword in one storefront. A term
// with zero ranked identifiers returns an Analysis with no results and a nil
// error; only endpoint failures return an error.
func (a *Analyzer) Analyze(ctx context.Context, term, storefront string) (Analysis, error) {
	analysis := Analysis{
		Keyword:    term,
		Storefront: storefront,
		AnalyzedAt: a.clk.Now(),
	}

	ids, err := a.ranks.FetchRanked(ctx, term, storefront)
	if err != nil {
		return Analysis{}, fmt.Errorf("fetch ranking: %w", err)
	}
	if len(ids) == 0 {
		a.logger.Info("no apps found", zap.String("term", term), zap.String("storefront", storefront))
		return analysis, nil
	}

	details, err := a.details.LookupAll(ctx, ids, storefront)
	if err != nil {
		return Analysis{}, fmt.Errorf("enrich ranking: %w", err)
	}

	merged := MergeRanked(ids, details)
	metrics.ObserveOmissions(len(merged.Omitted))
	if len(merged.Omitted) > 0 {
		a.logger.Debug("enrichment omissions",
			zap.String("term", term),
			zap.Int("count", len(merged.Omitted)),
			zap.Int64s("ids", merged.Omitted),
		)
	}

	analysis.Results = ScoreCompetition(term, merged.Apps, a.topN, analysis.AnalyzedAt)
	analysis.Omitted = merged.Omitted
	analysis.OmittedCount = len(merged.Omitted)
	analysis.Summary = Summarize(analysis.Results)
	return analysis, nil
}
