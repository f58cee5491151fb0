package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/housecast/training"
)

func (a *app) trainCmd() *cobra.Command {
	var (
		dataPath   string
		workers    int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Clean the dataset, search the regressor and persist the artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataPath != "" {
				a.cfg.Data.Path = dataPath
			}
			if workers > 0 {
				a.cfg.Search.Workers = workers
			}

			schema, err := a.cfg.LoadSchema(a.fs)
			if err != nil {
				return err
			}
			runner := training.NewRunner(a.fs, schema, a.cfg.Store(a.fs, a.logger), a.logger)
			if !noProgress {
				runner.OnCandidate = progress(cmd.ErrOrStderr())
			}

			res, err := runner.Run(cmd.Context(), a.cfg.TrainingOptions())
			if err != nil {
				return err
			}
			return writeTrainSummary(cmd.OutOrStdout(), res, a.cfg.Artifacts.Dir)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "listings CSV (overrides data.path)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent grid-search candidates (overrides search.workers)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

// progress returns a grid-search callback that drives a progress bar. The bar
// is created on the first call, once the candidate count is known.
func progress(w io.Writer) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Grid search"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
			)
		}
		_ = bar.Set(done)
	}
}

func writeTrainSummary(w io.Writer, res *training.Result, dir string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "train rows\t%d\n", res.TrainRows)
	fmt.Fprintf(tw, "test rows\t%d\n", res.TestRows)
	fmt.Fprintf(tw, "features\t%d\n", len(res.FeatureNames))
	fmt.Fprintf(tw, "best CV score\t%.6f\n", res.BestScore)

	keys := make([]string, 0, len(res.BestParams))
	for k := range res.BestParams {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", k, res.BestParams[k])
	}

	fmt.Fprintf(tw, "MAE\t%.4f\n", res.Metrics.MAE)
	fmt.Fprintf(tw, "MSE\t%.4f\n", res.Metrics.MSE)
	fmt.Fprintf(tw, "RMSE\t%.4f\n", res.Metrics.RMSE)
	fmt.Fprintf(tw, "R2_SCORE\t%.4f\n", res.Metrics.R2)
	fmt.Fprintf(tw, "artifacts\t%s\n", dir)
	return tw.Flush()
}
