package training

import (
	"context"
	"time"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/artifact"
	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/preprocessing"
	"github.com/YuminosukeSato/housecast/sklearn/model_selection"
)

// Options configures one training run.
type Options struct {
	DataPath string
	TestSize float64
	Seed     uint64
	Search   SearchOptions
}

// DefaultOptions mirrors the published notebook: 80/20 split with seed 42.
func DefaultOptions(dataPath string) Options {
	return Options{
		DataPath: dataPath,
		TestSize: 0.2,
		Seed:     42,
		Search:   DefaultSearchOptions(),
	}
}

// Result summarizes a finished run.
type Result struct {
	Metrics      Metrics
	BestParams   map[string]interface{}
	BestScore    float64
	TrainRows    int
	TestRows     int
	FeatureNames []string
}

// Runner wires the pipeline stages to a filesystem, a schema and an artifact
// store.
type Runner struct {
	fs     afero.Fs
	schema *housing.Schema
	store  *artifact.Store
	logger log.Logger

	// OnCandidate reports grid-search progress.
	OnCandidate func(done, total int)
}

// NewRunner creates a runner. The data file is read from fs.
func NewRunner(fs afero.Fs, schema *housing.Schema, store *artifact.Store, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.GetLoggerWithName("training")
	}
	return &Runner{fs: fs, schema: schema, store: store, logger: logger}
}

// Run executes load → clean → split → encode → search → evaluate and writes
// the model, the encoder and the metrics. The model and encoder are written
// after the search; the metrics only after a successful evaluation.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	raw, err := housing.LoadListingsFile(r.fs, opts.DataPath)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Listings loaded", log.PathKey, opts.DataPath, log.SamplesKey, raw.NRows())

	cleaned, err := housing.NewCleaner(r.schema, r.logger).Clean(raw)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := model_selection.TrainTestSplit(cleaned.NRows(), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	trainFrame, err := cleaned.Take(trainIdx)
	if err != nil {
		return nil, err
	}
	testFrame, err := cleaned.Take(testIdx)
	if err != nil {
		return nil, err
	}

	yTrain, err := r.target(trainFrame)
	if err != nil {
		return nil, err
	}
	yTest, err := r.target(testFrame)
	if err != nil {
		return nil, err
	}

	encoder := preprocessing.NewFeatureEncoder(r.schema.Target, r.logger)
	XTrain, err := encoder.FitTransform(trainFrame)
	if err != nil {
		return nil, err
	}
	XTest, err := encoder.Transform(testFrame)
	if err != nil {
		return nil, err
	}
	if _, c := XTest.Dims(); c != len(encoder.FeatureNames()) {
		return nil, errors.NewDimensionError("Runner.Run", len(encoder.FeatureNames()), c, 1)
	}

	trainer := NewTrainer(opts.Search, r.logger)
	trainer.OnCandidate = r.OnCandidate
	trained, err := trainer.Train(ctx, XTrain, yTrain)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveModel(trained.Model); err != nil {
		return nil, err
	}
	if err := r.store.SaveEncoder(encoder); err != nil {
		return nil, err
	}

	report, err := NewEvaluator(r.logger).Evaluate(trained.Model, XTest, yTest)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveMetrics(report); err != nil {
		return nil, err
	}

	r.logger.Info("Training run completed",
		log.MAEKey, report.MAE,
		log.RMSEKey, report.RMSE,
		log.R2ScoreKey, report.R2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Result{
		Metrics:      report,
		BestParams:   trained.BestParams,
		BestScore:    trained.BestScore,
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		FeatureNames: encoder.FeatureNames(),
	}, nil
}

func (r *Runner) target(f *frame.Frame) (*mat.VecDense, error) {
	prices, err := f.Floats(r.schema.Target)
	if err != nil {
		return nil, err
	}
	return LogTarget(prices)
}
