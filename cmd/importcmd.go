package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/ingest"
	"github.com/goldpan/goldpan/internal/store"
)

// newImportCmd creates the 'import' subcommand: read a CSV popularity report,
// score every row, and store the report idempotently.
func newImportCmd() *cobra.Command {
	var (
		sourceID    string
		generatedAt string
		period      string
		locale      string
		country     string
	)

	cmd := &cobra.Command{
		Use:   "import <report.csv>",
		Short: "Import and score a keyword popularity report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			genAt, err := parseTimestamp(generatedAt)
			if err != nil {
				return fmt.Errorf("parse --generated-at: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open report: %w", err)
			}
			defer f.Close()

			rows, summary, err := ingest.ReadCSV(f, ingest.Options{Country: country}, a.logger)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}

			st, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}
			result, err := st.ImportReport(cmd.Context(), store.ReportMeta{
				SourceID:    sourceID,
				GeneratedAt: genAt,
				Period:      period,
				Locale:      locale,
				SourceFile:  filepath.Base(args[0]),
			}, ingest.Score(rows))
			if err != nil {
				return err
			}

			a.logger.Info("report import finished",
				zap.Int64("report_id", result.ReportID),
				zap.Bool("already_seen", result.AlreadySeen),
				zap.Int("processed", summary.Processed),
				zap.Int("imported", result.Imported),
				zap.Int("skipped", summary.Skipped),
			)
			if result.AlreadySeen {
				fmt.Fprintf(cmd.OutOrStdout(), "report already imported (id %d), nothing to do\n", result.ReportID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report %d: %d rows processed, %d imported, %d skipped\n",
				result.ReportID, summary.Processed, result.Imported, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "source identifier of the report")
	cmd.Flags().StringVar(&generatedAt, "generated-at", "", "report generation timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&period, "period", "", "reporting period, e.g. 2026-05")
	cmd.Flags().StringVar(&locale, "locale", "en-us", "report locale")
	cmd.Flags().StringVar(&country, "country", "", "keep only rows for this country")
	_ = cmd.MarkFlagRequired("source-id")
	_ = cmd.MarkFlagRequired("generated-at")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
