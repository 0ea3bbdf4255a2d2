package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/goldpan/goldpan/internal/analyze"
	"github.com/goldpan/goldpan/internal/store"
)

// batchReport is the JSON dump of one processed batch.
type batchReport struct {
	BatchID   int64             `json:"batch_id"`
	Status    store.Status      `json:"status"`
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Failed    int               `json:"failed"`
	Notes     *string           `json:"notes,omitempty"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	Duration  *float64          `json:"duration_seconds,omitempty"`
	Items     []batchReportItem `json:"items"`
}

type batchReportItem struct {
	SearchTerm string            `json:"search_term"`
	Country    string            `json:"country"`
	Genre      string            `json:"genre"`
	Status     store.Status      `json:"status"`
	Error      *string           `json:"error,omitempty"`
	Analysis   *analyze.Analysis `json:"analysis,omitempty"`
}

// newReportCmd creates the 'report' subcommand: dump a batch with every
// stored analysis artifact as JSON.
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <batch-id>",
		Short: "Dump a batch's analysis artifacts as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}
			st, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}

			b, err := st.GetBatch(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			items, err := st.ListItems(cmd.Context(), batchID)
			if err != nil {
				return err
			}

			report := batchReport{
				BatchID:   b.ID,
				Status:    b.Status,
				Total:     b.TotalCount,
				Completed: b.CompletedCount,
				Failed:    b.FailedCount,
				Notes:     b.Notes,
				StartedAt: b.StartedAt,
				Duration:  b.DurationSeconds,
			}
			for _, it := range items {
				entry := batchReportItem{
					SearchTerm: it.SearchTerm,
					Country:    it.Country,
					Genre:      it.Genre,
					Status:     it.Status,
					Error:      it.ErrorMessage,
				}
				if it.AnalysisID != nil {
					analysis, err := st.GetAnalysis(cmd.Context(), *it.AnalysisID)
					if err != nil {
						return err
					}
					entry.Analysis = &analysis
				}
				report.Items = append(report.Items, entry)
			}
			return printJSON(cmd, report)
		},
	}
	return cmd
}
