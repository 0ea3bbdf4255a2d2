package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newKeywordsCmd creates the 'keywords' subcommand: list the scored keywords
// of the active report, best composite score first.
func newKeywordsCmd() *cobra.Command {
	var (
		period  string
		locale  string
		country string
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List scored keywords from the active report",
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

			report, err := st.ActiveReport(cmd.Context(), period, locale)
			if err != nil {
				return fmt.Errorf("active report for %s/%s: %w", period, locale, err)
			}
			records, err := st.ListKeywords(cmd.Context(), report.ID, country, limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tRANK\tPOP(GENRE)\tPOP(ALL)\tGENRE\tCOUNTRY\tTERM")
			for _, rec := range records {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
					rec.ID, rec.TotalScore, rec.GenreRank,
					rec.PopularityGenre, rec.PopularityOverall,
					rec.Genre, rec.Country, rec.SearchTerm)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "reporting period, e.g. 2026-05")
	cmd.Flags().StringVar(&locale, "locale", "en-us", "report locale")
	cmd.Flags().StringVar(&country, "country", "", "filter by country")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum keywords to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "listing offset")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}
