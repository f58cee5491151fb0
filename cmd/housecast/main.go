// Command housecast trains, serves and inspects the NY house price model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/housecast/config"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

var version = "dev"

// app carries the state shared by the subcommands. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	fs        afero.Fs
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger log.Logger
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	root := &cobra.Command{
		Use:   "housecast",
		Short: "NY house price pipeline and prediction service",
		Long: `housecast cleans the NY house listings dataset, grid-searches a gradient
boosted tree regressor on log prices, persists the model and serves
predictions over HTTP.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(a.trainCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.predictCmd())
	root.AddCommand(a.reportCmd())
	root.AddCommand(versionCmd())
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.fs, a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, err := cfg.Logging.Provider(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log.SetProvider(provider)

	a.cfg = cfg
	a.logger = provider.GetLoggerWithName("housecast")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "housecast", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(afero.NewOsFs()).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
