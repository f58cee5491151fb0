package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "housecast: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "housecast: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("XGBRegressor.Predict", 15, 14, 1)

	want := "housecast: XGBRegressor.Predict: dimension mismatch on axis 1 (features). Expected 15, got 14"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("OneHotEncoder", "Transform")

	want := "housecast: OneHotEncoder: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestConfigError(t *testing.T) {
	base := fmt.Errorf("no such file or directory")
	err := NewConfigError("artifact/NY-House-Dataset.csv", "cannot open dataset", base)

	want := "housecast: config: artifact/NY-House-Dataset.csv: cannot open dataset: no such file or directory"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if !Is(err, base) {
		t.Error("ConfigError should unwrap to its cause")
	}

	var cfgErr *ConfigError
	if !As(Wrap(err, "load"), &cfgErr) {
		t.Error("wrapped error should still be castable to *ConfigError")
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", NewValidationError("BEDS", "must be within [1, 10]", 11), true},
		{"wrapped validation", Wrap(NewValidationError("LOCALITY", "unknown locality", "Mars"), "predict"), true},
		{"dimension", NewDimensionError("Predict", 15, 14, 1), false},
		{"plain", New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientError(tt.err); got != tt.want {
				t.Errorf("IsClientError() = %v, want %v", got, tt.want)
			}
			if got := InvalidParam(tt.err); (got != "") != tt.want {
				t.Errorf("InvalidParam() = %q, client error %v", got, tt.want)
			}
		})
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Predict: expected 10, got 5") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestZerologMarshaling(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	vErr := &ValidationError{ParamName: "BEDS", Reason: "out of range", Value: 11}
	logger.Error().EmbedObject(vErr).Msg("rejected")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if entry["param_name"] != "BEDS" || entry["type"] != "ValidationError" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestCheckMatrix(t *testing.T) {
	ok := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("test", ok, 2, 2, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
	err := CheckMatrix("test", bad, 2, 2, 3)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", numErr.Iteration)
	}

	if err := CheckScalar("exp", math.Inf(1), 0); err == nil {
		t.Error("expected error for +Inf")
	}
}
