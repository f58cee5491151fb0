package xgboost

import (
	"encoding/gob"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/core/parallel"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

func init() {
	gob.Register(&XGBRegressor{})
}

// predictParallelThreshold is the row count above which Predict fans out.
const predictParallelThreshold = 1000

// XGBRegressor is a gradient-boosted tree regressor trained on the squared
// error objective with XGBoost's second-order split gain.
type XGBRegressor struct {
	State *model.StateManager

	// Hyperparameters
	NEstimators    int
	MaxDepth       int
	LearningRate   float64
	RegLambda      float64
	Gamma          float64
	MinChildWeight float64
	MaxBin         int

	// Learned
	BaseScore float64
	Trees     []Tree

	logger log.Logger
}

// Option configures an XGBRegressor.
type Option func(*XGBRegressor)

// WithNEstimators sets the number of boosting rounds.
func WithNEstimators(n int) Option { return func(r *XGBRegressor) { r.NEstimators = n } }

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option { return func(r *XGBRegressor) { r.MaxDepth = d } }

// WithLearningRate sets the shrinkage applied to every leaf.
func WithLearningRate(eta float64) Option { return func(r *XGBRegressor) { r.LearningRate = eta } }

// WithRegLambda sets the L2 penalty on leaf weights.
func WithRegLambda(lambda float64) Option { return func(r *XGBRegressor) { r.RegLambda = lambda } }

// WithGamma sets the minimum loss reduction required to split.
func WithGamma(gamma float64) Option { return func(r *XGBRegressor) { r.Gamma = gamma } }

// WithMinChildWeight sets the minimum hessian sum per child.
func WithMinChildWeight(w float64) Option { return func(r *XGBRegressor) { r.MinChildWeight = w } }

// WithMaxBin sets the maximum number of histogram bins per feature.
func WithMaxBin(n int) Option { return func(r *XGBRegressor) { r.MaxBin = n } }

// WithLogger attaches a logger.
func WithLogger(l log.Logger) Option { return func(r *XGBRegressor) { r.logger = l } }

// NewXGBRegressor returns a regressor with XGBoost's defaults.
func NewXGBRegressor(opts ...Option) *XGBRegressor {
	r := &XGBRegressor{
		State:          model.NewStateManager(),
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.3,
		RegLambda:      1.0,
		Gamma:          0.0,
		MinChildWeight: 1.0,
		MaxBin:         256,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger replaces the logger. Regressors loaded from disk have none.
func (r *XGBRegressor) SetLogger(l log.Logger) { r.logger = l }

func (r *XGBRegressor) log() log.Logger {
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("XGBRegressor")
	}
	return r.logger
}

func (r *XGBRegressor) validateParams() error {
	switch {
	case r.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", r.NEstimators)
	case r.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1", r.MaxDepth)
	case r.LearningRate <= 0 || r.LearningRate > 1:
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", r.LearningRate)
	case r.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be non-negative", r.RegLambda)
	case r.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", r.Gamma)
	case r.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be non-negative", r.MinChildWeight)
	case r.MaxBin < 2 || r.MaxBin > 65535:
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", r.MaxBin)
	}
	return nil
}

// Fit trains the ensemble. y must be a single column with one row per row of X.
func (r *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	if err := r.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("XGBRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("XGBRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("XGBRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("XGBRegressor.Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("XGBRegressor.Fit", y, rows, 1, 0); err != nil {
		return err
	}
	if r.State == nil {
		r.State = model.NewStateManager()
	}
	r.State.Reset()

	start := time.Now()
	target := mat.Col(nil, 0, y)
	r.BaseScore = stat.Mean(target, nil)

	bins := newBinMapper(X, r.MaxBin)
	builder := newTreeBuilder(treeParams{
		MaxDepth:       r.MaxDepth,
		LearningRate:   r.LearningRate,
		RegLambda:      r.RegLambda,
		Gamma:          r.Gamma,
		MinChildWeight: r.MinChildWeight,
	}, bins, bins.Transform(X), rows)

	preds := make([]float64, rows)
	for i := range preds {
		preds[i] = r.BaseScore
	}
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	r.Trees = make([]Tree, 0, r.NEstimators)
	for round := 0; round < r.NEstimators; round++ {
		// squared error: g = pred - y, h = 1
		floats.SubTo(builder.grad, preds, target)
		for i := range builder.hess {
			builder.hess[i] = 1
		}
		tree := builder.build(indices)
		r.Trees = append(r.Trees, *tree)
		floats.Add(preds, builder.delta)
	}

	r.State.SetDimensions(cols, rows)
	r.State.SetFitted()

	r.log().Debug("Boosting finished",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(r.Trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns an n×1 column of predictions.
func (r *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if r.State == nil {
		return nil, errors.NewNotFittedError("XGBRegressor", "Predict")
	}
	if err := r.State.RequireFitted("XGBRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.State.CheckFeatures("XGBRegressor.Predict", cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.NewModelError("XGBRegressor.Predict", "empty data", errors.ErrEmptyData)
	}

	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out[i] = r.predictRow(row)
		}
	})
	return mat.NewVecDense(rows, out), nil
}

func (r *XGBRegressor) predictRow(row []float64) float64 {
	sum := r.BaseScore
	for t := range r.Trees {
		sum += r.Trees[t].Predict(row)
	}
	return sum
}

// FeatureImportances returns the total split gain per feature, normalized to
// sum to one. A model without splits returns all zeros.
func (r *XGBRegressor) FeatureImportances() ([]float64, error) {
	if r.State == nil || !r.State.IsFitted() {
		return nil, errors.NewNotFittedError("XGBRegressor", "FeatureImportances")
	}
	nFeatures, _ := r.State.GetDimensions()
	imp := make([]float64, nFeatures)
	for t := range r.Trees {
		for _, n := range r.Trees[t].Nodes {
			if !n.IsLeaf() {
				imp[n.Feature] += n.Gain
			}
		}
	}
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp, nil
}

// GetParams returns the hyperparameters under their XGBoost names.
func (r *XGBRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     r.NEstimators,
		"max_depth":        r.MaxDepth,
		"learning_rate":    r.LearningRate,
		"reg_lambda":       r.RegLambda,
		"gamma":            r.Gamma,
		"min_child_weight": r.MinChildWeight,
		"max_bin":          r.MaxBin,
	}
}

// SetParams sets hyperparameters by name. Unknown names and values of the
// wrong type are ValidationErrors; nothing is changed in that case.
func (r *XGBRegressor) SetParams(params map[string]interface{}) error {
	next := *r
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			next.NEstimators, err = model.IntParam(key, value)
		case "max_depth":
			next.MaxDepth, err = model.IntParam(key, value)
		case "learning_rate":
			next.LearningRate, err = model.FloatParam(key, value)
		case "reg_lambda":
			next.RegLambda, err = model.FloatParam(key, value)
		case "gamma":
			next.Gamma, err = model.FloatParam(key, value)
		case "min_child_weight":
			next.MinChildWeight, err = model.FloatParam(key, value)
		case "max_bin":
			next.MaxBin, err = model.IntParam(key, value)
		default:
			err = errors.NewValidationError(key, "unknown XGBRegressor parameter", value)
		}
		if err != nil {
			return err
		}
	}
	r.NEstimators = next.NEstimators
	r.MaxDepth = next.MaxDepth
	r.LearningRate = next.LearningRate
	r.RegLambda = next.RegLambda
	r.Gamma = next.Gamma
	r.MinChildWeight = next.MinChildWeight
	r.MaxBin = next.MaxBin
	return nil
}

// Clone returns an unfitted regressor with the same hyperparameters and logger.
func (r *XGBRegressor) Clone() interface{} {
	return &XGBRegressor{
		State:          model.NewStateManager(),
		NEstimators:    r.NEstimators,
		MaxDepth:       r.MaxDepth,
		LearningRate:   r.LearningRate,
		RegLambda:      r.RegLambda,
		Gamma:          r.Gamma,
		MinChildWeight: r.MinChildWeight,
		MaxBin:         r.MaxBin,
		logger:         r.logger,
	}
}

func (r *XGBRegressor) String() string {
	return fmt.Sprintf("XGBRegressor(n_estimators=%d, max_depth=%d, learning_rate=%g)",
		r.NEstimators, r.MaxDepth, r.LearningRate)
}
