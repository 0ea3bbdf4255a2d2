// Package scoring converts raw keyword metrics into composite scores.
package scoring

// Bands holds the per-criterion scores and their composite total for one
// keyword row. The composite ranges 0..11.
type Bands struct {
	Rank    int
	Genre   int
	Overall int
	Total   int
}

// RankBand scores a keyword's rank within its genre.
func RankBand(rank int) int {
	switch {
	case rank >= 1 && rank <= 10:
		return 3
	case rank >= 11 && rank <= 25:
		return 2
	case rank >= 26 && rank <= 50:
		return 1
	default:
		return 0
	}
}

// GenrePopularityBand scores in-genre search popularity (1-100).
func GenrePopularityBand(popularity int) int {
	switch {
	case popularity >= 76 && popularity <= 100:
		return 3
	case popularity >= 61 && popularity <= 75:
		return 2
	case popularity >= 50 && popularity <= 60:
		return 1
	default:
		return 0
	}
}

// OverallPopularityBand scores overall search popularity (1-100).
func OverallPopularityBand(popularity int) int {
	switch {
	case popularity >= 86 && popularity <= 100:
		return 5
	case popularity >= 71 && popularity <= 85:
		return 4
	case popularity >= 61 && popularity <= 70:
		return 3
	case popularity >= 50 && popularity <= 60:
		return 2
	default:
		return 0
	}
}

// Score applies all three banding functions to a keyword row. Out-of-range
// inputs (negative, above 100) fall into the zero band rather than erroring.
func Score(genreRank, popularityGenre, popularityOverall int) Bands {
	b := Bands{
		Rank:    RankBand(genreRank),
		Genre:   GenrePopularityBand(popularityGenre),
		Overall: OverallPopularityBand(popularityOverall),
	}
	b.Total = b.Rank + b.Genre + b.Overall
	return b
}
