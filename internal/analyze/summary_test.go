package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarizeAverages(t *testing.T) {
	t.Parallel()

	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	results := []CompetitionResult{
		{
			AgeDays: 100, FreshnessDays: 10,
			Rating: 4, RatingCount: 1000,
			TitleMatchScore: 5, RatingStrength: 60, RatingsPerDay: 10,
			FirstReleaseAt: newer,
		},
		{
			AgeDays: 300, FreshnessDays: 50,
			Rating: 3, RatingCount: 500,
			TitleMatchScore: 3, RatingStrength: 40, RatingsPerDay: 2,
			FirstReleaseAt: older,
		},
	}

	s := Summarize(results)

	assert.Equal(t, 2, s.AppCount)
	assert.Equal(t, 200, s.AvgAgeDays)
	assert.Equal(t, 200, s.MedianAgeDays)
	assert.Equal(t, 30, s.AvgFreshnessDays)
	assert.InDelta(t, 3.5, s.AvgRating, 0.001)
	assert.Equal(t, int64(750), s.AvgRatingCount)
	assert.InDelta(t, 4.0, s.AvgTitleMatchScore, 0.001)
	assert.InDelta(t, 50.0, s.AvgRatingStrength, 0.001)
	assert.InDelta(t, 6.0, s.AvgRatingsPerDay, 0.001)

	// Newest 30% (here the single newest app) against the rest.
	assert.InDelta(t, 10.0, s.NewestVelocity, 0.001)
	assert.InDelta(t, 2.0, s.EstablishedVelocity, 0.001)
	assert.InDelta(t, 5.0, s.VelocityRatio, 0.001)

	assert.InDelta(t, 57.6, s.Competitiveness, 0.05)
}

func TestSummarizeSingleResultSkipsVelocitySplit(t *testing.T) {
	t.Parallel()

	s := Summarize([]CompetitionResult{{AgeDays: 40, RatingsPerDay: 3}})
	assert.Equal(t, 1, s.AppCount)
	assert.Equal(t, 40, s.MedianAgeDays)
	assert.Zero(t, s.NewestVelocity)
	assert.Zero(t, s.EstablishedVelocity)
	assert.Zero(t, s.VelocityRatio)
}

func TestCompetitivenessBounds(t *testing.T) {
	t.Parallel()

	// A fully saturated market pins at 100.
	max := competitiveness(Summary{AvgTitleMatchScore: 5, AvgRatingStrength: 100, AvgRatingsPerDay: 1e6})
	assert.InDelta(t, 100, max, 0.001)

	assert.Zero(t, competitiveness(Summary{}))
}
