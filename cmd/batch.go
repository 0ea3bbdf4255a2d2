package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/batch"
	"github.com/goldpan/goldpan/internal/metrics"
)

// newBatchCmd groups the batch lifecycle subcommands.
func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Create, inspect, and run keyword analysis batches",
	}
	cmd.AddCommand(newBatchCreateCmd())
	cmd.AddCommand(newBatchListCmd())
	cmd.AddCommand(newBatchStatusCmd())
	cmd.AddCommand(newBatchRunCmd())
	return cmd
}

func newBatchCreateCmd() *cobra.Command {
	var (
		keywordIDs []int64
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a batch from selected keyword ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}

			b, err := st.CreateBatch(cmd.Context(), keywordIDs, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %d created with %d items\n", b.ID, b.TotalCount)
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&keywordIDs, "keyword-ids", nil, "keyword record ids to include")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes for the batch")
	_ = cmd.MarkFlagRequired("keyword-ids")

	return cmd
}

func newBatchListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}

			batches, err := st.ListBatches(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tDONE\tFAILED\tTOTAL\tCREATED\tDURATION\tNOTES")
			for _, b := range batches {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
					b.ID, b.Status, b.CompletedCount, b.FailedCount, b.TotalCount,
					b.CreatedAt.Format(time.RFC3339), formatDuration(b.DurationSeconds),
					derefString(b.Notes))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum batches to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "listing offset")

	return cmd
}

func newBatchStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show a batch and every item's state",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "batch %d: %s (%d/%d completed, %d failed)\n",
				b.ID, b.Status, b.CompletedCount, b.TotalCount, b.FailedCount)
			if b.DurationSeconds != nil {
				fmt.Fprintf(out, "duration: %s\n", formatDuration(b.DurationSeconds))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tSTATUS\tTERM\tCOUNTRY\tANALYSIS\tERROR")
			for _, it := range items {
				analysisID := ""
				if it.AnalysisID != nil {
					analysisID = it.AnalysisID.String()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					it.ID, it.Status, it.SearchTerm, it.Country, analysisID, derefString(it.ErrorMessage))
			}
			return w.Flush()
		},
	}
	return cmd
}

func newBatchRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <batch-id>",
		Short: "Process a batch's pending items",
		Long: `Processes a batch one keyword at a time with the configured inter-item
delay. Interrupting the run leaves the batch resumable; rerun the command to
pick up the remaining items.`,
		Args: cobra.ExactArgs(1),
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

			metrics.Init()
			stopMetrics := startMetricsListener(a)
			defer stopMetrics()

			coordinator := batch.NewCoordinator(st, newAnalyzer(a, 0, ""), a.cfg.ItemDelay(), nil, a.logger)
			b, err := coordinator.Run(cmd.Context(), batchID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintf(cmd.OutOrStdout(), "batch %d interrupted, resumable with the same command\n", batchID)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "batch %d finished: %s (%d completed, %d failed of %d)\n",
				b.ID, b.Status, b.CompletedCount, b.FailedCount, b.TotalCount)
			return nil
		},
	}
	return cmd
}

// startMetricsListener serves /metrics while the run lasts when an address is
// configured. The returned func shuts the listener down.
func startMetricsListener(a *app) func() {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics listener failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func parseBatchID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid batch id %q", raw)
	}
	return id, nil
}

func formatDuration(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	return (time.Duration(*seconds * float64(time.Second))).Round(time.Second).String()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
