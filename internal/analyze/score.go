package analyze

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Title-match tiers. A full in-order match is strictly maximal, no match
// strictly minimal, and the tiers in between are monotonic in word overlap.
const (
	titleMatchExact       = 5 // all words, in order, no punctuation between them
	titleMatchOrdered     = 4 // all words in order, interrupted
	titleMatchAllWords    = 3 // all words present, out of order
	titleMatchHalfWords   = 2 // at least half the words present
	titleMatchAnyWord     = 1
	titleMatchNone        = 0
	ratingCountSaturation = 1_000_000
)

// CompetitionResult is the scored output for one ranked app.
type CompetitionResult struct {
	Rank            int       `json:"rank"`
	AppID           int64     `json:"app_id"`
	Title           string    `json:"title"`
	TitleMatchScore int       `json:"title_match_score"`
	RatingStrength  float64   `json:"rating_strength"`
	Rating          float64   `json:"rating"`
	RatingCount     int64     `json:"rating_count"`
	RatingsPerDay   float64   `json:"ratings_per_day"`
	AgeDays         int       `json:"age_days"`
	FreshnessDays   int       `json:"freshness_days"`
	FirstReleaseAt  time.Time `json:"first_release_at"`
}

// ScoreCompetition scores the top N merged results for keyword. Apps lacking
// rating or release data degrade to minimum scores; nothing here fails.
func ScoreCompetition(keyword string, apps []RankedApp, topN int, now time.Time) []CompetitionResult {
	if topN > 0 && len(apps) > topN {
		apps = apps[:topN]
	}
	results := make([]CompetitionResult, 0, len(apps))
	for _, ranked := range apps {
		app := ranked.App
		age := daysSince(app.FirstReleaseAt, now)
		results = append(results, CompetitionResult{
			Rank:            ranked.Rank,
			AppID:           app.ID,
			Title:           app.Title,
			TitleMatchScore: TitleMatchScore(keyword, app.Title),
			RatingStrength:  RatingStrength(app.RatingCount, app.Rating),
			Rating:          app.Rating,
			RatingCount:     app.RatingCount,
			RatingsPerDay:   ratingsPerDay(app.RatingCount, age),
			AgeDays:         age,
			FreshnessDays:   daysSince(app.CurrentReleaseAt, now),
			FirstReleaseAt:  app.FirstReleaseAt,
		})
	}
	return results
}

// TitleMatchScore grades how directly a title competes for the keyword.
// Matching is case-insensitive on whole words; trailing unrelated text does
// not lower the top tier, but punctuation between the matched words does.
func TitleMatchScore(keyword, title string) int {
	words := strings.Fields(strings.ToLower(keyword))
	if len(words) == 0 {
		return titleMatchNone
	}
	titleWords, separators := tokenizeTitle(title)
	if len(titleWords) == 0 {
		return titleMatchNone
	}

	if hasCleanOrderedRun(words, titleWords, separators) {
		return titleMatchExact
	}
	if isSubsequence(words, titleWords) {
		return titleMatchOrdered
	}

	present := 0
	set := make(map[string]struct{}, len(titleWords))
	for _, w := range titleWords {
		set[w] = struct{}{}
	}
	for _, w := range words {
		if _, ok := set[w]; ok {
			present++
		}
	}
	switch {
	case present == len(words):
		return titleMatchAllWords
	case present*2 >= len(words):
		return titleMatchHalfWords
	case present > 0:
		return titleMatchAnyWord
	default:
		return titleMatchNone
	}
}

// RatingStrength combines rating count (log-saturating against a one-million
// ceiling) multiplicatively with average rating, scaled to 0..100. Missing
// rating data yields 0.
func RatingStrength(count int64, average float64) float64 {
	if count <= 0 || average <= 0 {
		return 0
	}
	saturation := math.Log10(1+float64(count)) / math.Log10(1+ratingCountSaturation)
	if saturation > 1 {
		saturation = 1
	}
	avg := average
	if avg > 5 {
		avg = 5
	}
	return saturation * (avg / 5) * 100
}

// tokenizeTitle splits a title into lowercase word tokens and records the
// separator text that precedes each word after the first.
func tokenizeTitle(title string) (words []string, separators []string) {
	var word, sep strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		if len(words) > 0 {
			separators = append(separators, sep.String())
		}
		sep.Reset()
		words = append(words, word.String())
		word.Reset()
	}
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
			continue
		}
		if word.Len() > 0 {
			flush()
		}
		sep.WriteRune(r)
	}
	flush()
	return words, separators
}

// hasCleanOrderedRun reports whether words appear as a contiguous run in
// titleWords with only whitespace between them.
func hasCleanOrderedRun(words, titleWords, separators []string) bool {
	for start := 0; start+len(words) <= len(titleWords); start++ {
		if titleWords[start] != words[0] {
			continue
		}
		match := true
		for i := 1; i < len(words); i++ {
			if titleWords[start+i] != words[i] || !whitespaceOnly(separators[start+i-1]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isSubsequence(words, titleWords []string) bool {
	i := 0
	for _, w := range titleWords {
		if i < len(words) && w == words[i] {
			i++
		}
	}
	return i == len(words)
}

func whitespaceOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func daysSince(t time.Time, now time.Time) int {
	if t.IsZero() || t.After(now) {
		return 0
	}
	return int(now.Sub(t) / (24 * time.Hour))
}

func ratingsPerDay(count int64, ageDays int) float64 {
	if count <= 0 {
		return 0
	}
	if ageDays < 1 {
		ageDays = 1
	}
	return float64(count) / float64(ageDays)
}
