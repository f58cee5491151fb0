package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/housecast/artifact"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/metrics"
	"github.com/YuminosukeSato/housecast/report"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		dataPath  string
		chartsDir string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the dataset and the last training run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataPath != "" {
				a.cfg.Data.Path = dataPath
			}
			schema, err := a.cfg.LoadSchema(a.fs)
			if err != nil {
				return err
			}
			raw, err := housing.LoadListingsFile(a.fs, a.cfg.Data.Path)
			if err != nil {
				return err
			}

			var m *metrics.Report
			stored, err := a.cfg.Store(a.fs, a.logger).LoadMetrics()
			switch {
			case err == nil:
				m = &stored
			case artifact.IsNotExist(err):
				a.logger.Info("No metrics found, skipping model performance")
			default:
				return err
			}

			r, err := report.Build(raw, schema.Columns(), m)
			if err != nil {
				return err
			}
			if err := r.Write(cmd.OutOrStdout()); err != nil {
				return err
			}

			if chartsDir == "" {
				return nil
			}
			paths, err := report.WriteCharts(a.fs, chartsDir, raw)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "listings CSV (overrides data.path)")
	cmd.Flags().StringVar(&chartsDir, "charts", "", "directory for PNG charts; empty skips charts")
	return cmd
}
