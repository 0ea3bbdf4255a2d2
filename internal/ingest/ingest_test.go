package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "Month,Country or Region,Genre,Search Term,Rank in Genre," +
	"Search Popularity in Genre (1-100),Search Popularity (1-100),Search Popularity (1-5)\n"

func TestReadCSVSkipsMalformedRowsAndFilters(t *testing.T) {
	t.Parallel()

	input := sampleHeader +
		"2026-05,United States,Utilities,fish identifier,3,80,90,4\n" +
		"2026-05,United States,Utilities,,5,70,80,4\n" +
		"2026-05,Canada,Utilities,bird identifier,12,70,75,4\n" +
		"2026-05,United States,Utilities,plant identifier,abc,70,75,4\n"

	rows, summary, err := ReadCSV(strings.NewReader(input), Options{Country: "United States"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 3, summary.Skipped)

	require.Len(t, rows, 1)
	assert.Equal(t, "fish identifier", rows[0].SearchTerm)
	assert.Equal(t, 3, rows[0].GenreRank)
	assert.Equal(t, 80, rows[0].PopularityGenre)
	assert.Equal(t, 90, rows[0].PopularityOverall)
	assert.Equal(t, 4, rows[0].PopularityScale)
}

func TestReadCSVNoCountryFilterKeepsAll(t *testing.T) {
	t.Parallel()

	input := sampleHeader +
		"2026-05,United States,Utilities,fish identifier,3,80,90,4\n" +
		"2026-05,Canada,Utilities,bird identifier,12,70,75,4\n"

	rows, summary, err := ReadCSV(strings.NewReader(input), Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Len(t, rows, 2)
}

func TestReadCSVMissingColumnFails(t *testing.T) {
	t.Parallel()

	input := "Month,Genre,Search Term\n2026-05,Utilities,fish identifier\n"
	_, _, err := ReadCSV(strings.NewReader(input), Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestScoreAnnotatesBands(t *testing.T) {
	t.Parallel()

	records := Score([]Row{{
		Country: "US", Genre: "Utilities", SearchTerm: "fish identifier",
		GenreRank: 1, PopularityGenre: 100, PopularityOverall: 100, PopularityScale: 5,
	}})

	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].ScoreRank)
	assert.Equal(t, 3, records[0].ScoreGenre)
	assert.Equal(t, 5, records[0].ScoreOverall)
	assert.Equal(t, 11, records[0].TotalScore)
}
