// Package ingest reads keyword popularity reports from CSV and scores the
// rows for import.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/scoring"
	"github.com/goldpan/goldpan/internal/store"
)

// Expected CSV column headers, matched case-insensitively.
const (
	colMonth             = "month"
	colCountry           = "country or region"
	colGenre             = "genre"
	colSearchTerm        = "search term"
	colGenreRank         = "rank in genre"
	colPopularityGenre   = "search popularity in genre (1-100)"
	colPopularityOverall = "search popularity (1-100)"
	colPopularityScale   = "search popularity (1-5)"
)

// Row is one validated report line.
type Row struct {
	Month             string
	Country           string
	Genre             string
	SearchTerm        string
	GenreRank         int
	PopularityGenre   int
	PopularityOverall int
	PopularityScale   int
}

// RowError describes a malformed input row. Malformed rows are skipped and
// counted, never aborting the import.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// Options controls CSV reading.
type Options struct {
	// Country keeps only rows for one country when non-empty.
	Country string
}

// Summary counts the outcome of one read.
type Summary struct {
	Processed int
	Imported  int
	Skipped   int
}

// ReadCSV parses a report. Malformed rows are skipped and counted in the
// summary; only unreadable input or a broken header is an error.
func ReadCSV(r io.Reader, opts Options, logger *zap.Logger) ([]Row, Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, Summary{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, Summary{}, err
	}

	var (
		rows    []Row
		summary Summary
		line    = 1
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			summary.Processed++
			summary.Skipped++
			logger.Warn("skipping unreadable row", zap.Int("line", line), zap.Error(err))
			continue
		}
		summary.Processed++

		row, err := parseRow(record, cols, line)
		if err != nil {
			summary.Skipped++
			logger.Warn("skipping malformed row", zap.Error(err))
			continue
		}
		if opts.Country != "" && !strings.EqualFold(row.Country, opts.Country) {
			summary.Skipped++
			continue
		}

		rows = append(rows, row)
		summary.Imported++
	}
	return rows, summary, nil
}

// Score annotates rows with their per-criterion bands and composite score,
// ready for the store.
func Score(rows []Row) []store.KeywordRecord {
	records := make([]store.KeywordRecord, 0, len(rows))
	for _, row := range rows {
		bands := scoring.Score(row.GenreRank, row.PopularityGenre, row.PopularityOverall)
		records = append(records, store.KeywordRecord{
			Country:           row.Country,
			Genre:             row.Genre,
			SearchTerm:        row.SearchTerm,
			GenreRank:         row.GenreRank,
			PopularityGenre:   row.PopularityGenre,
			PopularityOverall: row.PopularityOverall,
			PopularityScale:   row.PopularityScale,
			ScoreRank:         bands.Rank,
			ScoreGenre:        bands.Genre,
			ScoreOverall:      bands.Overall,
			TotalScore:        bands.Total,
		})
	}
	return records
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	required := []string{
		colMonth, colCountry, colGenre, colSearchTerm,
		colGenreRank, colPopularityGenre, colPopularityOverall,
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int, line int) (Row, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := Row{
		Month:      field(colMonth),
		Country:    field(colCountry),
		Genre:      field(colGenre),
		SearchTerm: field(colSearchTerm),
	}
	if row.SearchTerm == "" {
		return Row{}, &RowError{Line: line, Reason: "empty search term"}
	}
	if row.Country == "" {
		return Row{}, &RowError{Line: line, Reason: "empty country"}
	}

	intField := func(name string, dst *int, required bool) error {
		raw := field(name)
		if raw == "" {
			if required {
				return &RowError{Line: line, Reason: fmt.Sprintf("empty %s", name)}
			}
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return &RowError{Line: line, Reason: fmt.Sprintf("bad %s %q", name, raw)}
		}
		*dst = v
		return nil
	}
	if err := intField(colGenreRank, &row.GenreRank, true); err != nil {
		return Row{}, err
	}
	if err := intField(colPopularityGenre, &row.PopularityGenre, true); err != nil {
		return Row{}, err
	}
	if err := intField(colPopularityOverall, &row.PopularityOverall, true); err != nil {
		return Row{}, err
	}
	if err := intField(colPopularityScale, &row.PopularityScale, false); err != nil {
		return Row{}, err
	}
	if row.GenreRank < 1 {
		return Row{}, &RowError{Line: line, Reason: fmt.Sprintf("rank %d out of range", row.GenreRank)}
	}
	return row, nil
}
