// Package cmd implements the ledgerctl command tree.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tradeLedger/config"
	"tradeLedger/internal/adapters/logger"
	"tradeLedger/internal/adapters/tracing"
	"tradeLedger/internal/bootstrap"
	"tradeLedger/internal/ports"
)

// rootConfig is shared by every subcommand. Components are built in the
// root's pre-run so each command sees an opened database and a rate cache
// holding the latest persisted rate.
type rootConfig struct {
	userID  string
	output  string
	verbose bool

	out             io.Writer
	logger          ports.Logger
	comp            *bootstrap.Components
	shutdownTracing tracing.ShutdownFunc
}

// NewRootCmd builds the ledgerctl command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *rootConfig) {
	rc := &rootConfig{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Record trades and report realized P&L in the reporting currency",
		Long: `ledgerctl records closed stock and option trades and reports realized
profit and loss, normalized into the reporting currency at the cached rate.

Configuration is read from the environment and an optional .env file
(DB_PATH, REPORTING_CURRENCY, SECONDARY_CURRENCY, FX_SOURCE, ...).

Example:
  ledgerctl -u alice trade add --symbol AAPL --direction LONG --qty 10 \
      --entry 180 --exit 191.5 --opened 2024-05-01 --closed 2024-05-03
  ledgerctl -u alice stats --year 2024 -o yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: rc.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rc.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&rc.userID, "user", "u", "", "user id owning the trades")
	root.PersistentFlags().StringVarP(&rc.output, "output", "o", outputTable, "output format (table, json, yaml)")
	root.PersistentFlags().BoolVarP(&rc.verbose, "verbose", "v", false, "log at the configured LOG_LEVEL instead of warnings only")

	root.AddCommand(
		newTradeCmd(rc),
		newSummaryCmd(rc),
		newStatsCmd(rc),
		newRateCmd(rc),
		newExportCmd(rc),
	)
	return root, rc
}

// Execute runs the command tree with the process arguments. The post-run
// hook is skipped when a command fails, so components are released here too.
func Execute() error {
	root, rc := newRootCmd()
	err := root.Execute()
	if cerr := rc.teardown(context.Background()); err == nil {
		err = cerr
	}
	return err
}

func (rc *rootConfig) setup(cmd *cobra.Command, args []string) error {
	rc.out = cmd.OutOrStdout()
	switch rc.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", rc.output)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if !rc.verbose && level < logger.LevelWarn {
		level = logger.LevelWarn
	}
	rc.logger = logger.NewStdLoggerTo(cmd.ErrOrStderr(), level)

	rc.shutdownTracing, err = tracing.Init(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "ledgerctl",
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	rc.comp, err = bootstrap.Build(cfg, rc.logger)
	if err != nil {
		return err
	}
	rc.comp.Rates.LoadPersisted(cmd.Context())
	return nil
}

func (rc *rootConfig) teardown(ctx context.Context) error {
	var firstErr error
	if rc.comp != nil {
		firstErr = rc.comp.Close()
		rc.comp = nil
	}
	if rc.shutdownTracing != nil {
		if err := rc.shutdownTracing(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		rc.shutdownTracing = nil
	}
	return firstErr
}

func (rc *rootConfig) requireUser() error {
	if rc.userID == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}
