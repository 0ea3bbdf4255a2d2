package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goldpan/goldpan/internal/appstore"
)

// newLookupCmd creates the 'lookup' subcommand: fetch metadata for a single
// app by numeric id, bundle id, store URL, or smart-detected input.
func newLookupCmd() *cobra.Command {
	var (
		byID     int64
		byBundle string
		byURL    string
	)

	cmd := &cobra.Command{
		Use:   "lookup [input]",
		Short: "Look up one app's metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			target, err := buildTarget(byID, byBundle, byURL, args)
			if err != nil {
				return err
			}

			app, found, err := newAppstoreClient(a, "").Lookup(cmd.Context(), target)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "no app found")
				return nil
			}
			return printJSON(cmd, app)
		},
	}

	cmd.Flags().Int64Var(&byID, "id", 0, "numeric app id")
	cmd.Flags().StringVar(&byBundle, "bundle-id", "", "bundle identifier")
	cmd.Flags().StringVar(&byURL, "url", "", "app store URL")

	return cmd
}

func buildTarget(byID int64, byBundle, byURL string, args []string) (appstore.LookupTarget, error) {
	switch {
	case byID != 0:
		return appstore.ByID(byID), nil
	case byBundle != "":
		return appstore.ByBundleID(byBundle), nil
	case byURL != "":
		return appstore.ByURL(byURL)
	case len(args) == 1:
		return appstore.DetectTarget(args[0])
	default:
		return appstore.LookupTarget{}, fmt.Errorf("provide an input or one of --id, --bundle-id, --url")
	}
}
