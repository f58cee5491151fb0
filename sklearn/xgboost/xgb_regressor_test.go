package xgboost

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

func stepData() (*mat.Dense, *mat.VecDense) {
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i >= 50 {
			y.SetVec(i, 10)
		}
	}
	return X, y
}

func linearData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x1 := float64((i*7)%13) / 13
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.SetVec(i, 3*x0+x1)
	}
	return X, y
}

func TestXGBRegressorFitsStepFunction(t *testing.T) {
	X, y := stepData()
	reg := NewXGBRegressor(WithNEstimators(50), WithMaxDepth(2))
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := reg.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < y.Len(); i++ {
		if math.Abs(pred.At(i, 0)-y.AtVec(i)) > 1e-3 {
			t.Fatalf("row %d: got %v, want %v", i, pred.At(i, 0), y.AtVec(i))
		}
	}
	if got := reg.Trees[0].Nodes[0].Threshold; got != 49.5 {
		t.Errorf("first split threshold = %v, want 49.5", got)
	}
}

func TestXGBRegressorLinearTarget(t *testing.T) {
	X, y := linearData(300)
	reg := NewXGBRegressor(WithNEstimators(100), WithMaxDepth(4), WithLearningRate(0.1))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := reg.Predict(X)
	if err != nil {
		t.Fatal(err)
	}

	var sse, sst, mean float64
	for i := 0; i < y.Len(); i++ {
		mean += y.AtVec(i)
	}
	mean /= float64(y.Len())
	for i := 0; i < y.Len(); i++ {
		d := pred.At(i, 0) - y.AtVec(i)
		sse += d * d
		m := y.AtVec(i) - mean
		sst += m * m
	}
	if r2 := 1 - sse/sst; r2 < 0.99 {
		t.Errorf("training R² = %v, want >= 0.99", r2)
	}
}

func TestXGBRegressorDeterministic(t *testing.T) {
	X, y := linearData(200)
	a := NewXGBRegressor(WithNEstimators(20))
	b := NewXGBRegressor(WithNEstimators(20))
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	if !mat.Equal(pa, pb) {
		t.Error("two fits on the same data produced different predictions")
	}
}

func TestXGBRegressorParallelPredictMatchesSerial(t *testing.T) {
	X, y := linearData(2500)
	reg := NewXGBRegressor(WithNEstimators(10))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := reg.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	row := make([]float64, 2)
	for i := 0; i < 2500; i += 97 {
		mat.Row(row, i, X)
		if got, want := pred.At(i, 0), reg.predictRow(row); got != want {
			t.Fatalf("row %d: parallel %v, serial %v", i, got, want)
		}
	}
}

func TestXGBRegressorRespectsMaxDepth(t *testing.T) {
	X, y := linearData(200)
	for _, depth := range []int{1, 3, 5} {
		reg := NewXGBRegressor(WithNEstimators(5), WithMaxDepth(depth))
		if err := reg.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		for i := range reg.Trees {
			if d := reg.Trees[i].Depth(); d > depth {
				t.Errorf("max_depth=%d: tree %d has depth %d", depth, i, d)
			}
		}
	}
}

func TestXGBRegressorMinChildWeightBlocksSplits(t *testing.T) {
	X, y := stepData()
	reg := NewXGBRegressor(WithNEstimators(3), WithMinChildWeight(1000))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for i := range reg.Trees {
		if n := reg.Trees[i].NumLeaves(); n != 1 {
			t.Errorf("tree %d has %d leaves, want 1", i, n)
		}
	}
	if reg.BaseScore != 5 {
		t.Errorf("BaseScore = %v, want mean 5", reg.BaseScore)
	}
}

func TestXGBRegressorErrors(t *testing.T) {
	X, y := linearData(20)

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewXGBRegressor().Predict(X)
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Fatalf("want NotFittedError, got %v", err)
		}
	})

	t.Run("feature mismatch", func(t *testing.T) {
		reg := NewXGBRegressor(WithNEstimators(2))
		if err := reg.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		_, err := reg.Predict(mat.NewDense(1, 3, nil))
		var dim *errors.DimensionError
		if !errors.As(err, &dim) {
			t.Fatalf("want DimensionError, got %v", err)
		}
		if dim.Expected != 2 || dim.Got != 3 {
			t.Errorf("DimensionError = %+v", dim)
		}
	})

	t.Run("row mismatch", func(t *testing.T) {
		err := NewXGBRegressor().Fit(X, mat.NewVecDense(5, nil))
		var dim *errors.DimensionError
		if !errors.As(err, &dim) {
			t.Fatalf("want DimensionError, got %v", err)
		}
	})

	t.Run("nan input", func(t *testing.T) {
		bad := mat.DenseCopyOf(X)
		bad.Set(3, 1, math.NaN())
		err := NewXGBRegressor().Fit(bad, y)
		var num *errors.NumericalInstabilityError
		if !errors.As(err, &num) {
			t.Fatalf("want NumericalInstabilityError, got %v", err)
		}
	})

	t.Run("invalid learning rate", func(t *testing.T) {
		err := NewXGBRegressor(WithLearningRate(0)).Fit(X, y)
		var v *errors.ValidationError
		if !errors.As(err, &v) || v.ParamName != "learning_rate" {
			t.Fatalf("want learning_rate ValidationError, got %v", err)
		}
	})
}

func TestXGBRegressorSetParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
		check   func(*XGBRegressor) bool
	}{
		{
			name:   "grid values from yaml",
			params: map[string]interface{}{"n_estimators": 300, "max_depth": 6.0, "learning_rate": 0.05},
			check: func(r *XGBRegressor) bool {
				return r.NEstimators == 300 && r.MaxDepth == 6 && r.LearningRate == 0.05
			},
		},
		{
			name:    "unknown key",
			params:  map[string]interface{}{"n_estimators": 7, "subsample": 0.5},
			wantErr: true,
			check:   func(r *XGBRegressor) bool { return r.NEstimators == 100 },
		},
		{
			name:    "fractional integer",
			params:  map[string]interface{}{"max_depth": 2.5},
			wantErr: true,
			check:   func(r *XGBRegressor) bool { return r.MaxDepth == 6 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewXGBRegressor()
			err := reg.SetParams(tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.check(reg) {
				t.Errorf("unexpected params after SetParams: %v", reg.GetParams())
			}
		})
	}
}

func TestXGBRegressorClone(t *testing.T) {
	X, y := stepData()
	reg := NewXGBRegressor(WithNEstimators(4), WithMaxDepth(3))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	clone := reg.Clone().(*XGBRegressor)
	if clone.State.IsFitted() || len(clone.Trees) != 0 {
		t.Error("clone should be unfitted")
	}
	if clone.NEstimators != 4 || clone.MaxDepth != 3 {
		t.Errorf("clone params = %v", clone.GetParams())
	}
}

func TestXGBRegressorGobRoundTrip(t *testing.T) {
	X, y := linearData(100)
	reg := NewXGBRegressor(WithNEstimators(15))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := model.Save(&buf, reg); err != nil {
		t.Fatal(err)
	}
	loaded := &XGBRegressor{}
	if err := model.Load(&buf, loaded); err != nil {
		t.Fatal(err)
	}
	want, _ := reg.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(want, got) {
		t.Error("loaded model predicts differently")
	}
}

func TestFeatureImportances(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, 1)
		y.SetVec(i, float64(i%2)+float64(i/30)*4)
	}
	reg := NewXGBRegressor(WithNEstimators(5), WithMaxDepth(2))
	if err := reg.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	imp, err := reg.FeatureImportances()
	if err != nil {
		t.Fatal(err)
	}
	if imp[1] != 0 || math.Abs(imp[0]-1) > 1e-12 {
		t.Errorf("importances = %v, want [1 0]", imp)
	}
}

func TestBinEdges(t *testing.T) {
	edges := binEdges([]float64{1, 2, 4}, 256)
	want := []float64{1.5, 3, math.Inf(1)}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edges[%d] = %v, want %v", i, edges[i], want[i])
		}
	}

	uniq := make([]float64, 1000)
	for i := range uniq {
		uniq[i] = float64(i)
	}
	edges = binEdges(uniq, 16)
	if len(edges) > 16 {
		t.Errorf("got %d bins, want at most 16", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			t.Fatalf("edges not increasing at %d: %v", i, edges)
		}
	}
}

func TestBinMapperConsistentWithThreshold(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{10, 20, 20, 30, 40})
	bm := newBinMapper(X, 256)
	for b := 0; b < bm.NumBins(0)-1; b++ {
		thr := bm.Bounds[0][b]
		for i := 0; i < 5; i++ {
			x := X.At(i, 0)
			if (bm.Bin(0, x) <= b) != (x <= thr) {
				t.Errorf("bin %d threshold %v disagrees for x=%v", b, thr, x)
			}
		}
	}
}
