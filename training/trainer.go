// Package training runs the offline pipeline: clean the listings, split,
// encode, grid-search the regressor on log prices, evaluate on the held-out
// split and persist the artifacts.
package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/preprocessing"
	"github.com/YuminosukeSato/housecast/sklearn/model_selection"
	"github.com/YuminosukeSato/housecast/sklearn/pipeline"
	"github.com/YuminosukeSato/housecast/sklearn/xgboost"
)

// RegressorStep is the pipeline step name of the regressor. Grid keys address
// it as "regressor__<param>".
const RegressorStep = "regressor"

// ScalerStep is the optional standardization step that runs before the
// regressor when SearchOptions.Scale is set.
const ScalerStep = "scaler"

// SearchOptions configures the hyperparameter search.
type SearchOptions struct {
	Grid    model_selection.ParamGrid
	Folds   int
	Scoring string
	Workers int

	// Scale standardizes the encoded features before the regressor.
	Scale bool
}

// DefaultGrid is the search space used when none is configured.
func DefaultGrid() model_selection.ParamGrid {
	return model_selection.ParamGrid{
		"regressor__n_estimators":  {100, 200, 300, 400},
		"regressor__max_depth":     {2, 4, 6, 8, 10},
		"regressor__learning_rate": {0.05, 0.01, 0.1},
	}
}

// DefaultSearchOptions returns 5-fold search on negative MSE over DefaultGrid.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Grid:    DefaultGrid(),
		Folds:   5,
		Scoring: model_selection.ScoringNegMSE,
		Workers: 1,
	}
}

// TrainResult is the outcome of a search.
type TrainResult struct {
	Model      *pipeline.Pipeline
	BestParams map[string]interface{}
	BestScore  float64
	CVResults  []model_selection.CVResult
}

// Trainer grid-searches the regressor pipeline.
type Trainer struct {
	Options SearchOptions

	// OnCandidate reports search progress; see GridSearchCV.OnCandidate.
	OnCandidate func(done, total int)

	logger log.Logger
}

// NewTrainer creates a trainer.
func NewTrainer(opts SearchOptions, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.GetLoggerWithName("trainer")
	}
	return &Trainer{Options: opts, logger: logger}
}

// NewPipeline returns the unfitted pipeline whose parameters the search
// overrides.
func (t *Trainer) NewPipeline() *pipeline.Pipeline {
	reg := xgboost.NewXGBRegressor(
		xgboost.WithNEstimators(200),
		xgboost.WithLearningRate(0.1),
		xgboost.WithLogger(t.logger.With(log.ModelNameKey, "XGBRegressor")),
	)
	var steps []pipeline.Step
	if t.Options.Scale {
		steps = append(steps, pipeline.Step{Name: ScalerStep, Estimator: preprocessing.NewStandardScaler(true, true)})
	}
	steps = append(steps, pipeline.Step{Name: RegressorStep, Estimator: reg})
	p := pipeline.New(steps...)
	p.SetLogger(t.logger)
	return p
}

// Train searches the grid on X and the log-price target y and returns the
// best pipeline refit on all of X.
func (t *Trainer) Train(ctx context.Context, X mat.Matrix, y mat.Vector) (*TrainResult, error) {
	start := time.Now()
	search := model_selection.NewGridSearchCV(t.NewPipeline(), t.Options.Grid, t.Options.Scoring, t.logger)
	search.CV = model_selection.NewKFold(t.Options.Folds, false, 0)
	search.Workers = t.Options.Workers
	search.OnCandidate = t.OnCandidate

	if err := search.FitContext(ctx, X, y); err != nil {
		return nil, errors.Wrap(err, "grid search")
	}
	best, ok := search.BestEstimator.(*pipeline.Pipeline)
	if !ok {
		return nil, errors.NewModelError("Trainer.Train", "refit", fmt.Errorf("unexpected best estimator %T", search.BestEstimator))
	}

	t.logger.Info("Training finished",
		log.PhaseKey, log.PhaseTraining,
		log.HyperParamsKey, search.BestParams,
		log.ScoreKey, search.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &TrainResult{
		Model:      best,
		BestParams: search.BestParams,
		BestScore:  search.BestScore,
		CVResults:  search.Results,
	}, nil
}

// LogTarget returns the natural log of prices. Prices must be finite and
// positive.
func LogTarget(prices []float64) (*mat.VecDense, error) {
	if len(prices) == 0 {
		return nil, errors.NewModelError("LogTarget", "empty data", errors.ErrEmptyData)
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		if !(p > 0) || math.IsInf(p, 0) {
			return nil, errors.NewValueError("LogTarget", fmt.Sprintf("price at position %d must be positive, got %v", i, p))
		}
		out[i] = math.Log(p)
	}
	return mat.NewVecDense(len(out), out), nil
}
