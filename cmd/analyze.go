package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goldpan/goldpan/internal/analyze"
	"github.com/goldpan/goldpan/internal/appstore"
)

func newAppstoreClient(a *app, attribute appstore.SearchAttribute) *appstore.Client {
	return appstore.New(appstore.Config{
		Storefront: a.cfg.Search.Storefront,
		Language:   a.cfg.Search.Language,
		ResultCap:  a.cfg.Search.ResultCap,
		ChunkSize:  a.cfg.Analyze.LookupChunkSize,
		UserAgent:  a.cfg.HTTP.UserAgent,
		Timeout:    a.cfg.HTTPTimeout(),
		Attribute:  attribute,
	}, a.logger)
}

func newAnalyzer(a *app, topN int, attribute appstore.SearchAttribute) *analyze.Analyzer {
	if topN <= 0 {
		topN = a.cfg.Analyze.TopN
	}
	client := newAppstoreClient(a, attribute)
	return analyze.NewAnalyzer(client, client, topN, nil, a.logger)
}

// newAnalyzeCmd creates the 'analyze' subcommand: run the full ranking,
// enrichment, and scoring pipeline for one keyword and print the artifact.
func newAnalyzeCmd() *cobra.Command {
	var (
		storefront string
		topN       int
		attribute  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <keyword>",
		Short: "Analyze the competition for one keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if storefront == "" {
				storefront = a.cfg.Search.Storefront
			}
			attr := appstore.SearchAttribute(attribute)
			if err := appstore.ValidateAttribute(attr); err != nil {
				return err
			}

			analysis, err := newAnalyzer(a, topN, attr).Analyze(cmd.Context(), args[0], appstore.StorefrontCode(storefront))
			if err != nil {
				return err
			}
			if len(analysis.Results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no apps found for %q in %s\n", args[0], analysis.Storefront)
				return nil
			}
			return printJSON(cmd, analysis)
		},
	}

	cmd.Flags().StringVar(&storefront, "storefront", "", "storefront country (defaults to config)")
	cmd.Flags().IntVar(&topN, "top", 0, "apps to score (defaults to config)")
	cmd.Flags().StringVar(&attribute, "attribute", "", "narrow the term search to one metadata field")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
