package analyze

import (
	"math"
	"sort"
)

// Summary aggregates the scored top-N results for one keyword. The
// competitiveness index is 0..100; higher means harder to compete.
type Summary struct {
	AppCount            int     `json:"app_count"`
	AvgAgeDays          int     `json:"avg_age_days"`
	MedianAgeDays       int     `json:"median_age_days"`
	AvgFreshnessDays    int     `json:"avg_freshness_days"`
	AvgRating           float64 `json:"avg_rating"`
	AvgRatingCount      int64   `json:"avg_rating_count"`
	AvgTitleMatchScore  float64 `json:"avg_title_match_score"`
	AvgRatingStrength   float64 `json:"avg_rating_strength"`
	AvgRatingsPerDay    float64 `json:"avg_ratings_per_day"`
	NewestVelocity      float64 `json:"newest_velocity"`
	EstablishedVelocity float64 `json:"established_velocity"`
	VelocityRatio       float64 `json:"velocity_ratio"`
	Competitiveness     float64 `json:"competitiveness_v1"`
}

// Summarize computes aggregate statistics over scored results. An empty
// input yields the zero Summary.
func Summarize(results []CompetitionResult) Summary {
	n := len(results)
	if n == 0 {
		return Summary{}
	}

	var (
		ageSum, freshSum      int
		ratingSum             float64
		ratingCountSum        int64
		titleSum, strengthSum float64
		velocitySum           float64
		ages                  = make([]int, n)
	)
	for i, r := range results {
		ageSum += r.AgeDays
		freshSum += r.FreshnessDays
		ratingSum += r.Rating
		ratingCountSum += r.RatingCount
		titleSum += float64(r.TitleMatchScore)
		strengthSum += r.RatingStrength
		velocitySum += r.RatingsPerDay
		ages[i] = r.AgeDays
	}
	sort.Ints(ages)
	median := ages[n/2]
	if n%2 == 0 {
		median = (ages[n/2-1] + ages[n/2]) / 2
	}

	s := Summary{
		AppCount:           n,
		AvgAgeDays:         ageSum / n,
		MedianAgeDays:      median,
		AvgFreshnessDays:   freshSum / n,
		AvgRating:          ratingSum / float64(n),
		AvgRatingCount:     ratingCountSum / int64(n),
		AvgTitleMatchScore: titleSum / float64(n),
		AvgRatingStrength:  strengthSum / float64(n),
		AvgRatingsPerDay:   velocitySum / float64(n),
	}
	s.NewestVelocity, s.EstablishedVelocity, s.VelocityRatio = velocitySplit(results)
	s.Competitiveness = competitiveness(s)
	return s
}

// velocitySplit compares rating velocity of the newest 30% of apps (by first
// release) against the established rest. A ratio above 1 means newcomers are
// gaining traction faster than incumbents.
func velocitySplit(results []CompetitionResult) (newest, established, ratio float64) {
	if len(results) < 2 {
		return 0, 0, 0
	}
	byAge := make([]CompetitionResult, len(results))
	copy(byAge, results)
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].FirstReleaseAt.After(byAge[j].FirstReleaseAt)
	})

	cut := len(byAge) * 3 / 10
	if cut == 0 {
		cut = 1
	}
	for i, r := range byAge {
		if i < cut {
			newest += r.RatingsPerDay
		} else {
			established += r.RatingsPerDay
		}
	}
	newest /= float64(cut)
	established /= float64(len(byAge) - cut)
	if established > 0 {
		ratio = newest / established
	}
	return newest, established, ratio
}

// competitiveness blends the three competition-strength signals into a 0..100
// index: how well titles already target the keyword, how strong incumbent
// rating bases are, and how fast those bases are still growing.
func competitiveness(s Summary) float64 {
	title := s.AvgTitleMatchScore / 5
	strength := s.AvgRatingStrength / 100
	velocity := math.Log10(1+s.AvgRatingsPerDay) / math.Log10(1+1000)
	if velocity > 1 {
		velocity = 1
	}
	score := (0.4*title + 0.4*strength + 0.2*velocity) * 100
	return math.Round(score*10) / 10
}
