// Package cmd defines and implements the CLI commands for the goldpan
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/config"
	"github.com/goldpan/goldpan/internal/logging"
	"github.com/goldpan/goldpan/internal/store"
)

var cfgFile string

// appKeyType is the key for storing the app container in the context.
type appKeyType string

const appKey appKeyType = "app"

// app bundles the services every command needs. The store is opened lazily
// because several commands never touch the database.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	st     *store.Store
}

// Store opens (and migrates) the database connection on first use.
func (a *app) Store(ctx context.Context) (*store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	st, err := store.New(ctx, a.cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	a.st = st
	return a.st, nil
}

// Close releases held resources.
func (a *app) Close() {
	if a.st != nil {
		a.st.Close()
	}
	_ = a.logger.Sync()
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goldpan",
		Short: "Find low-competition, high-demand app store keywords.",
		Long: `goldpan imports keyword popularity reports, scores every keyword, and
analyzes the competitive strength of the apps currently ranking for the
keywords you care about.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, &app{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./goldpan.yaml)")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newKeywordsCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "goldpan: %v\n", err)
		os.Exit(1)
	}
}
