package pipeline

import (
	"bytes"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/preprocessing"
	"github.com/YuminosukeSato/housecast/sklearn/xgboost"
)

func regressionData() (*mat.Dense, *mat.VecDense) {
	n := 80
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := float64(i%10)*100, float64(i%4)
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, a/100+b)
	}
	return X, y
}

func TestPipelineScalerInvariantForTrees(t *testing.T) {
	X, y := regressionData()
	plain := New(Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor(xgboost.WithNEstimators(20))})
	scaled := New(
		Step{Name: "scaler", Estimator: preprocessing.NewStandardScaler(true, true)},
		Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor(xgboost.WithNEstimators(20))},
	)

	p1, err := plain.FitPredict(X, y)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := scaled.FitPredict(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(p1, p2, 1e-9) {
		t.Error("scaling changed tree predictions")
	}
}

func TestPipelineNotFitted(t *testing.T) {
	p := New(Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor()})
	_, err := p.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFittedError, got %v", err)
	}
}

func TestPipelineFeatureMismatch(t *testing.T) {
	X, y := regressionData()
	p := New(Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor(xgboost.WithNEstimators(2))})
	if err := p.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err := p.Predict(mat.NewDense(1, 5, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Fatalf("want DimensionError, got %v", err)
	}
}

func TestPipelineValidation(t *testing.T) {
	X, y := regressionData()
	tests := []struct {
		name  string
		steps []Step
	}{
		{"empty", nil},
		{"double underscore", []Step{{Name: "a__b", Estimator: xgboost.NewXGBRegressor()}}},
		{"duplicate", []Step{
			{Name: "s", Estimator: preprocessing.NewStandardScaler(true, true)},
			{Name: "s", Estimator: xgboost.NewXGBRegressor()},
		}},
		{"estimator in the middle", []Step{
			{Name: "a", Estimator: xgboost.NewXGBRegressor()},
			{Name: "b", Estimator: xgboost.NewXGBRegressor()},
		}},
		{"transformer last", []Step{{Name: "scaler", Estimator: preprocessing.NewStandardScaler(true, true)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vErr *errors.ValidationError
			if err := New(tt.steps...).Fit(X, y); !errors.As(err, &vErr) {
				t.Errorf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestPipelineParams(t *testing.T) {
	p := New(
		Step{Name: "scaler", Estimator: preprocessing.NewStandardScaler(true, true)},
		Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor()},
	)
	err := p.SetParams(map[string]interface{}{
		"regressor__n_estimators":  300,
		"regressor__max_depth":     8,
		"regressor__learning_rate": 0.05,
		"scaler__with_mean":        false,
	})
	if err != nil {
		t.Fatal(err)
	}
	params := p.GetParams()
	if params["regressor__n_estimators"] != 300 || params["regressor__max_depth"] != 8 ||
		params["regressor__learning_rate"] != 0.05 || params["scaler__with_mean"] != false {
		t.Errorf("GetParams() = %v", params)
	}

	var vErr *errors.ValidationError
	if err := p.SetParams(map[string]interface{}{"booster__max_depth": 3}); !errors.As(err, &vErr) {
		t.Errorf("unknown step: want ValidationError, got %v", err)
	}
	if err := p.SetParams(map[string]interface{}{"regressor__subsample": 0.5}); !errors.As(err, &vErr) {
		t.Errorf("unknown step param: want ValidationError, got %v", err)
	}
	if err := p.SetParams(map[string]interface{}{"memory": "cache"}); !errors.As(err, &vErr) {
		t.Errorf("unknown pipeline param: want ValidationError, got %v", err)
	}
}

func TestPipelineClone(t *testing.T) {
	X, y := regressionData()
	reg := xgboost.NewXGBRegressor(xgboost.WithNEstimators(3))
	p := New(Step{Name: "regressor", Estimator: reg})
	if err := p.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	clone := p.Clone().(*Pipeline)
	if clone.State.IsFitted() {
		t.Error("clone should not be fitted")
	}
	est, _ := clone.NamedStep("regressor")
	if est == reg {
		t.Error("clone shares the regressor")
	}
	if est.(*xgboost.XGBRegressor).NEstimators != 3 {
		t.Error("clone lost hyperparameters")
	}
	if _, ok := p.Clone().(model.Regressor); !ok {
		t.Error("pipeline clone is not a model.Regressor")
	}
}

func TestPipelineGobRoundTrip(t *testing.T) {
	X, y := regressionData()
	p := New(
		Step{Name: "scaler", Estimator: preprocessing.NewStandardScaler(true, true)},
		Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor(xgboost.WithNEstimators(10))},
	)
	if err := p.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := model.Save(&buf, p); err != nil {
		t.Fatal(err)
	}
	loaded := &Pipeline{}
	if err := model.Load(&buf, loaded); err != nil {
		t.Fatal(err)
	}
	want, _ := p.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(want, got) {
		t.Error("loaded pipeline predicts differently")
	}
	if _, ok := loaded.FinalEstimator().(*xgboost.XGBRegressor); !ok {
		t.Errorf("final estimator decoded as %T", loaded.FinalEstimator())
	}
}
