package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldpan/goldpan/internal/appstore"
)

func TestTitleMatchScoreTopTier(t *testing.T) {
	t.Parallel()

	// Trailing unrelated text and case differences do not lower the tier.
	assert.Equal(t, 5, TitleMatchScore("fish identifier", "Fish Identifier: 96% Accurate"))
	assert.Equal(t, 5, TitleMatchScore("fish identifier", "fish identifier"))
	assert.Equal(t, 5, TitleMatchScore("fish", "Best Fish Game"))
}

func TestTitleMatchScorePartialTiers(t *testing.T) {
	t.Parallel()

	// In order but interrupted by punctuation or other words.
	assert.Equal(t, 4, TitleMatchScore("fish identifier", "Fish - Identifier"))
	assert.Equal(t, 4, TitleMatchScore("fish identifier", "Fish and Bird Identifier"))

	// All words present, out of order.
	assert.Equal(t, 3, TitleMatchScore("fish identifier", "Identifier of Fish"))

	// Half the words present.
	assert.Equal(t, 2, TitleMatchScore("fish identifier", "Fish Tycoon"))
	assert.Equal(t, 2, TitleMatchScore("red fish blue fish", "Blue Fish Adventures"))

	// Fewer than half.
	assert.Equal(t, 1, TitleMatchScore("best fish identifier app", "Fish Tycoon"))

	// Nothing shared.
	assert.Equal(t, 0, TitleMatchScore("fish identifier", "Solitaire Classic"))
	assert.Equal(t, 0, TitleMatchScore("", "Solitaire Classic"))
}

func TestTitleMatchScoreMonotonicOrdering(t *testing.T) {
	t.Parallel()

	keyword := "fish identifier"
	titles := []string{
		"Fish Identifier Pro",
		"Fish & Identifier",
		"Identifier for Fish",
		"Fish Tank",
		"Solitaire Classic",
	}
	prev := 6
	for _, title := range titles {
		score := TitleMatchScore(keyword, title)
		assert.LessOrEqual(t, score, prev, "title %q", title)
		prev = score
	}
}

func TestRatingStrength(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RatingStrength(0, 4.5))
	assert.Zero(t, RatingStrength(1000, 0))

	// Saturates at the ceiling: a million five-star ratings is 100.
	assert.InDelta(t, 100, RatingStrength(1_000_000, 5), 0.1)

	// More ratings at equal average is strictly stronger.
	low := RatingStrength(100, 4.0)
	high := RatingStrength(100_000, 4.0)
	assert.Greater(t, high, low)
	assert.Greater(t, low, 0.0)

	// Average rating scales multiplicatively.
	assert.Greater(t, RatingStrength(1000, 5), RatingStrength(1000, 2.5))
}

func TestScoreCompetitionTopNAndDegradedFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	apps := []RankedApp{
		{Rank: 1, App: appstore.App{
			ID: 1, Title: "Fish Identifier",
			Rating: 4.8, RatingCount: 5000,
			FirstReleaseAt:   now.AddDate(0, 0, -730),
			CurrentReleaseAt: now.AddDate(0, 0, -30),
		}},
		{Rank: 2, App: appstore.App{ID: 2, Title: "Mystery App"}}, // no ratings, no dates
		{Rank: 3, App: appstore.App{ID: 3, Title: "Overflow"}},
	}

	results := ScoreCompetition("fish identifier", apps, 2, now)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 5, first.TitleMatchScore)
	assert.Equal(t, 730, first.AgeDays)
	assert.Equal(t, 30, first.FreshnessDays)
	assert.InDelta(t, 5000.0/730.0, first.RatingsPerDay, 0.01)
	assert.Greater(t, first.RatingStrength, 0.0)

	// Missing fields degrade to minimums, never error.
	second := results[1]
	assert.Zero(t, second.RatingStrength)
	assert.Zero(t, second.RatingsPerDay)
	assert.Zero(t, second.AgeDays)
}
