// Package metrics implements the regression scores used for cross-validation
// and held-out evaluation.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	t, p, err := pair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	return floats.Dot(diff, diff) / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	t, p, err := pair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	return floats.Norm(diff, 1) / float64(len(t)), nil
}

// R2Score は決定係数（R²）を計算する
//
// A constant yTrue has no variance to explain: the score is 1 when every
// prediction is exact and 0 otherwise.
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	t, p, err := pair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if len(t) < 2 || stat.Variance(t, nil) == 0 {
		if floats.Equal(t, p) {
			return 1, nil
		}
		return 0, nil
	}
	return stat.RSquaredFrom(p, t, nil), nil
}

// Report holds every regression score computed from one set of predictions.
// The JSON keys are the ones written to metrics.json.
type Report struct {
	MAE  float64 `json:"MAE"`
	MSE  float64 `json:"MSE"`
	RMSE float64 `json:"RMSE"`
	R2   float64 `json:"R2_SCORE"`
}

// Regression computes MAE, MSE, RMSE and R² in one pass over the inputs.
func Regression(yTrue, yPred mat.Vector) (Report, error) {
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	return Report{MAE: mae, MSE: mse, RMSE: math.Sqrt(mse), R2: r2}, nil
}

// ColumnVector copies the first column of an n×1 matrix into a VecDense.
// Predictors return matrices; metrics work on vectors.
func ColumnVector(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("ColumnVector", 1, c, 1)
	}
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, m.At(i, 0))
	}
	return out, nil
}

// pair validates lengths and returns raw slices for floats/stat.
func pair(op string, yTrue, yPred mat.Vector) ([]float64, []float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	t := make([]float64, n)
	p := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = yTrue.AtVec(i)
		p[i] = yPred.AtVec(i)
	}
	return t, p, nil
}
