package main

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/housecast/housing/housingtest"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

const testConfig = `
data:
  path: listings.csv
artifacts:
  dir: out
search:
  cv_folds: 2
  grid:
    regressor__n_estimators: [10, 20]
    regressor__max_depth: [2]
schema:
  path: schema.yaml
logging:
  level: warn
  format: json
`

// testSchema is the embedded schema without the outlier lists, which refer
// to rows of the published dataset.
const testSchema = `
target: PRICE
features: [BEDS, BATH, PROPERTYSQFT, LOCALITY]
drop_columns: [TYPE, STATE, ADDRESS, MAIN_ADDRESS, ADMINISTRATIVE_AREA_LEVEL_2, STREET_NAME,
  LONG_NAME, FORMATTED_ADDRESS, LONGITUDE, LATITUDE, BROKERTITLE, SUBLOCALITY]
int_columns: [BATH, PROPERTYSQFT]
ranges:
  PRICE: {min: 1000, max: 100000000}
  BEDS: {min: 1, max: 10}
  BATH: {min: 1, max: 5}
  PROPERTYSQFT: {min: 100, max: 10000}
categories:
  LOCALITY: [New York, Brooklyn, Queens, Flatbush]
`

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "housecast.yaml", []byte(testConfig), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "schema.yaml", []byte(testSchema), 0o644))
	require.NoError(t, housingtest.WriteCSV(fsys, "listings.csv", 60, []string{"Brooklyn", "Queens", "New York"}, 5))
	return fsys
}

func run(t *testing.T, fsys afero.Fs, args ...string) (string, error) {
	t.Helper()
	prev := log.GetProvider()
	t.Cleanup(func() { log.SetProvider(prev) })

	var out, errOut bytes.Buffer
	cmd := newRootCmd(fsys)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", "housecast.yaml"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrainWritesArtifacts(t *testing.T) {
	fsys := newTestFs(t)

	out, err := run(t, fsys, "train", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "R2_SCORE")
	assert.Contains(t, out, "regressor__n_estimators")
	assert.Contains(t, out, "train rows")

	for _, name := range []string{"out/model.gob", "out/encoder.gob", "out/metrics.json"} {
		ok, err := afero.Exists(fsys, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
}

func TestPredictAfterTrain(t *testing.T) {
	fsys := newTestFs(t)
	_, err := run(t, fsys, "train", "--no-progress")
	require.NoError(t, err)

	out, err := run(t, fsys, "predict", "--beds", "3", "--bath", "2", "--sqft", "1500", "--locality", "Brooklyn")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted price: $")

	_, err = run(t, fsys, "predict", "--beds", "11", "--bath", "2", "--sqft", "1500", "--locality", "Brooklyn")
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "BEDS", vErr.ParamName)

	_, err = run(t, fsys, "predict", "--beds", "3", "--bath", "2", "--sqft", "1500", "--locality", "Brooklyn", "--price", "5")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "PRICE", vErr.ParamName)
}

func TestPredictWithoutModel(t *testing.T) {
	fsys := newTestFs(t)
	_, err := run(t, fsys, "predict", "--beds", "3", "--bath", "2", "--sqft", "1500", "--locality", "Brooklyn")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	fsys := newTestFs(t)

	out, err := run(t, fsys, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "IQR outliers")
	assert.Contains(t, out, "Brooklyn")
	assert.NotContains(t, out, "R2_SCORE")

	_, err = run(t, fsys, "train", "--no-progress")
	require.NoError(t, err)
	out, err = run(t, fsys, "report", "--charts", "charts")
	require.NoError(t, err)
	assert.Contains(t, out, "R2_SCORE")
	assert.Contains(t, out, "wrote charts/price_histogram.png")

	ok, err := afero.Exists(fsys, "charts/beds_vs_price.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfigErrors(t *testing.T) {
	fsys := newTestFs(t)

	var out bytes.Buffer
	cmd := newRootCmd(fsys)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", "missing.yaml", "train"})
	err := cmd.Execute()
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)

	_, err = run(t, fsys, "--log-level", "chatty", "version")
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "logging.level", cfgErr.Source)

	_, err = run(t, fsys, "train", "--data", "nope.csv", "--no-progress")
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, newTestFs(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "housecast dev\n", out)
}

func TestProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := progress(&buf)
	for i := 1; i <= 4; i++ {
		cb(i, 4)
	}
	assert.Contains(t, buf.String(), "Grid search")
	assert.Contains(t, buf.String(), "4/4")
}

func TestDollars(t *testing.T) {
	assert.Equal(t, "$1,234,567.89", dollars(1234567.891))
	assert.Equal(t, "$950", dollars(950))
}

func TestRunServerShutdown(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, log.NewTestLogger(log.LevelInfo)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
