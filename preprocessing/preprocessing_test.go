package preprocessing

import (
	"bytes"
	"math"
	"slices"
	"testing"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

func cleanedFrame(t *testing.T, price []int, beds []int, bath []int, sqft []int, loc []string) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		series.New(price, series.Int, "PRICE"),
		series.New(beds, series.Int, "BEDS"),
		series.New(bath, series.Int, "BATH"),
		series.New(sqft, series.Int, "PROPERTYSQFT"),
		series.New(loc, series.String, "LOCALITY"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestOneHotEncoderSortedCategories(t *testing.T) {
	f, _ := frame.New(series.New([]string{"Queens", "Brooklyn", "Queens", "Flatbush"}, series.String, "LOCALITY"))
	enc := NewOneHotEncoder(HandleUnknownIgnore)
	if err := enc.Fit(f, []string{"LOCALITY"}); err != nil {
		t.Fatal(err)
	}

	want := []string{"LOCALITY_Brooklyn", "LOCALITY_Flatbush", "LOCALITY_Queens"}
	if got := enc.FeatureNames(); !slices.Equal(got, want) {
		t.Errorf("FeatureNames() = %v, want %v", got, want)
	}

	out, err := enc.Transform(f)
	if err != nil {
		t.Fatal(err)
	}
	wantRows := [][]float64{{0, 0, 1}, {1, 0, 0}, {0, 0, 1}, {0, 1, 0}}
	for i, row := range wantRows {
		if got := mat.Row(nil, i, out); !slices.Equal(got, row) {
			t.Errorf("row %d = %v, want %v", i, got, row)
		}
	}
}

func TestOneHotEncoderUnknownPolicy(t *testing.T) {
	train, _ := frame.New(series.New([]string{"Queens", "Brooklyn"}, series.String, "LOCALITY"))
	unseen, _ := frame.New(series.New([]string{"Hoboken"}, series.String, "LOCALITY"))

	ignore := NewOneHotEncoder(HandleUnknownIgnore)
	if err := ignore.Fit(train, []string{"LOCALITY"}); err != nil {
		t.Fatal(err)
	}
	out, err := ignore.Transform(unseen)
	if err != nil {
		t.Fatal(err)
	}
	if got := mat.Row(nil, 0, out); !slices.Equal(got, []float64{0, 0}) {
		t.Errorf("unknown category row = %v, want zeros", got)
	}

	strict := NewOneHotEncoder(HandleUnknownError)
	if err := strict.Fit(train, []string{"LOCALITY"}); err != nil {
		t.Fatal(err)
	}
	if _, err := strict.Transform(unseen); err == nil {
		t.Error("expected error for unknown category with handle_unknown=error")
	}

	if err := NewOneHotEncoder("drop").Fit(train, []string{"LOCALITY"}); err == nil {
		t.Error("expected error for unsupported policy")
	}
}

func TestOneHotEncoderNotFitted(t *testing.T) {
	f, _ := frame.New(series.New([]string{"Queens"}, series.String, "LOCALITY"))
	_, err := NewOneHotEncoder(HandleUnknownIgnore).Transform(f)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestFeatureEncoderLayout(t *testing.T) {
	train := cleanedFrame(t,
		[]int{300000, 450000, 520000},
		[]int{2, 3, 4},
		[]int{1, 2, 2},
		[]int{800, 1200, 1500},
		[]string{"Queens", "Brooklyn", "Queens"},
	)
	test := cleanedFrame(t,
		[]int{610000},
		[]int{5},
		[]int{3},
		[]int{2000},
		[]string{"Brooklyn"},
	)

	logger := log.NewTestLogger(log.LevelInfo)
	enc := NewFeatureEncoder("PRICE", logger)
	trainX, err := enc.FitTransform(train)
	if err != nil {
		t.Fatal(err)
	}
	testX, err := enc.Transform(test)
	if err != nil {
		t.Fatal(err)
	}

	wantNames := []string{"BEDS", "BATH", "PROPERTYSQFT", "LOCALITY_Brooklyn", "LOCALITY_Queens"}
	if got := enc.FeatureNames(); !slices.Equal(got, wantNames) {
		t.Errorf("FeatureNames() = %v, want %v", got, wantNames)
	}
	if !slices.Equal(enc.NumericColumns(), []string{"BEDS", "BATH", "PROPERTYSQFT"}) {
		t.Errorf("NumericColumns() = %v", enc.NumericColumns())
	}
	if !slices.Equal(enc.CategoricalColumns(), []string{"LOCALITY"}) {
		t.Errorf("CategoricalColumns() = %v", enc.CategoricalColumns())
	}

	_, trainCols := trainX.Dims()
	_, testCols := testX.Dims()
	if trainCols != len(wantNames) || testCols != trainCols {
		t.Errorf("column counts train=%d test=%d, want %d", trainCols, testCols, len(wantNames))
	}
	if got := mat.Row(nil, 0, testX); !slices.Equal(got, []float64{5, 3, 2000, 1, 0}) {
		t.Errorf("test row = %v", got)
	}
	if !logger.ContainsMessage("Feature encoder fitted") {
		t.Error("expected fit log")
	}
}

func TestFeatureEncoderUnknownLocalityYieldsZeros(t *testing.T) {
	n := 100
	price := make([]int, n)
	beds := make([]int, n)
	bath := make([]int, n)
	sqft := make([]int, n)
	loc := make([]string, n)
	localities := []string{"Queens", "Brooklyn", "Flatbush"}
	for i := 0; i < n; i++ {
		price[i] = 200000 + i*5000
		beds[i] = 1 + i%5
		bath[i] = 1 + i%3
		sqft[i] = 500 + i*20
		loc[i] = localities[i%3]
	}
	train := cleanedFrame(t, price, beds, bath, sqft, loc)

	enc := NewFeatureEncoder("PRICE", log.NewTestLogger(log.LevelError))
	if err := enc.Fit(train); err != nil {
		t.Fatal(err)
	}

	row, err := frame.New(
		series.New([]int{3}, series.Int, "BEDS"),
		series.New([]int{2}, series.Int, "BATH"),
		series.New([]int{1100}, series.Int, "PROPERTYSQFT"),
		series.New([]string{"Richmond County"}, series.String, "LOCALITY"),
	)
	if err != nil {
		t.Fatal(err)
	}
	x, err := enc.Transform(row)
	if err != nil {
		t.Fatal(err)
	}
	got := mat.Row(nil, 0, x)
	if !slices.Equal(got[:3], []float64{3, 2, 1100}) {
		t.Errorf("numeric part = %v", got[:3])
	}
	for j, v := range got[3:] {
		if v != 0 {
			t.Errorf("indicator %d = %v, want 0", j, v)
		}
	}
}

func TestFeatureEncoderMissingColumn(t *testing.T) {
	train := cleanedFrame(t, []int{1, 2}, []int{1, 2}, []int{1, 1}, []int{500, 600}, []string{"Queens", "Brooklyn"})
	enc := NewFeatureEncoder("PRICE", log.NewTestLogger(log.LevelError))
	if err := enc.Fit(train); err != nil {
		t.Fatal(err)
	}

	renamed, err := frame.New(
		series.New([]int{1}, series.Int, "BEDS"),
		series.New([]int{1}, series.Int, "BATH"),
		series.New([]int{500}, series.Int, "PROPERTYSQFT"),
		series.New([]string{"Queens"}, series.String, "NEIGHBORHOOD"),
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = enc.Transform(renamed)
	var shapeErr *errors.InputShapeError
	if !errors.As(err, &shapeErr) || shapeErr.Feature != "LOCALITY" {
		t.Fatalf("expected InputShapeError for LOCALITY, got %v", err)
	}
	if len(enc.FeatureNames()) != 5 {
		t.Error("a failed transform must not change the fitted layout")
	}
}

func TestFeatureEncoderGobRoundTrip(t *testing.T) {
	train := cleanedFrame(t, []int{1, 2}, []int{1, 2}, []int{1, 1}, []int{500, 600}, []string{"Queens", "Brooklyn"})
	enc := NewFeatureEncoder("PRICE", log.NewTestLogger(log.LevelError))
	want, err := enc.FitTransform(train)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := model.Save(&buf, enc); err != nil {
		t.Fatal(err)
	}
	loaded := &FeatureEncoder{}
	if err := model.Load(&buf, loaded); err != nil {
		t.Fatal(err)
	}
	loaded.SetLogger(log.NewTestLogger(log.LevelError))

	got, err := loaded.Transform(train)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(got, want) {
		t.Errorf("loaded encoder output differs:\n%v\n%v", mat.Formatted(got), mat.Formatted(want))
	}
	if !slices.Equal(loaded.FeatureNames(), enc.FeatureNames()) {
		t.Errorf("FeatureNames() = %v", loaded.FeatureNames())
	}
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScaler(true, true)
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}

	col := mat.Col(nil, 0, out)
	var mean, sq float64
	for _, v := range col {
		mean += v
	}
	mean /= float64(len(col))
	for _, v := range col {
		sq += (v - mean) * (v - mean)
	}
	if math.Abs(mean) > 1e-12 || math.Abs(sq/float64(len(col))-1) > 1e-12 {
		t.Errorf("scaled column mean=%v var=%v", mean, sq/float64(len(col)))
	}
	if got := mat.Col(nil, 1, out); !slices.Equal(got, []float64{0, 0, 0, 0}) {
		t.Errorf("constant column = %v, want zeros", got)
	}

	var dimErr *errors.DimensionError
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	c := s.Clone().(*StandardScaler)
	if c.State.IsFitted() {
		t.Error("Clone must be unfitted")
	}
	if err := c.SetParams(map[string]interface{}{"with_mean": false}); err != nil || c.WithMean {
		t.Errorf("SetParams(with_mean=false) = %v", err)
	}
	if err := c.SetParams(map[string]interface{}{"copy": true}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
