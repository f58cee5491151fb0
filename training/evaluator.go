package training

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/metrics"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// Metrics is the held-out evaluation record, in log-price space.
type Metrics = metrics.Report

// Evaluator scores a fitted model on the held-out split.
type Evaluator struct {
	logger log.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.GetLoggerWithName("evaluator")
	}
	return &Evaluator{logger: logger}
}

// Evaluate predicts X once and compares against the log-price target y.
func (e *Evaluator) Evaluate(m model.Predictor, X mat.Matrix, y mat.Vector) (Metrics, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "predict held-out split")
	}
	p, err := metrics.ColumnVector(pred)
	if err != nil {
		return Metrics{}, err
	}
	if err := errors.CheckMatrix("Evaluator.Evaluate", p, p.Len(), 1, 0); err != nil {
		return Metrics{}, err
	}
	report, err := metrics.Regression(y, p)
	if err != nil {
		return Metrics{}, err
	}

	e.logger.Info("Evaluation finished",
		log.PhaseKey, log.PhaseTesting,
		log.SamplesKey, y.Len(),
		log.MAEKey, report.MAE,
		log.MSEKey, report.MSE,
		log.RMSEKey, report.RMSE,
		log.R2ScoreKey, report.R2,
	)
	return report, nil
}
