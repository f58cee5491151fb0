package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/metrics"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Scorer returns a score where higher is better.
type Scorer func(yTrue, yPred mat.Matrix) (float64, error)

// Scoring names accepted by GetScorer.
const (
	ScoringNegMSE  = "neg_mean_squared_error"
	ScoringNegRMSE = "neg_root_mean_squared_error"
	ScoringNegMAE  = "neg_mean_absolute_error"
	ScoringR2      = "r2"
)

// GetScorer returns the scorer registered under name. Error metrics are
// negated so that every scorer is maximized.
func GetScorer(name string) (Scorer, error) {
	switch name {
	case ScoringNegMSE:
		return negate(metrics.MSE), nil
	case ScoringNegRMSE:
		return negate(metrics.RMSE), nil
	case ScoringNegMAE:
		return negate(metrics.MAE), nil
	case ScoringR2:
		return vectorScorer(metrics.R2Score), nil
	}
	return nil, errors.NewValidationError("scoring", "unknown scorer", name)
}

func negate(fn func(yTrue, yPred mat.Vector) (float64, error)) Scorer {
	score := vectorScorer(fn)
	return func(yTrue, yPred mat.Matrix) (float64, error) {
		v, err := score(yTrue, yPred)
		return -v, err
	}
}

func vectorScorer(fn func(yTrue, yPred mat.Vector) (float64, error)) Scorer {
	return func(yTrue, yPred mat.Matrix) (float64, error) {
		t, err := metrics.ColumnVector(yTrue)
		if err != nil {
			return 0, err
		}
		p, err := metrics.ColumnVector(yPred)
		if err != nil {
			return 0, err
		}
		return fn(t, p)
	}
}
