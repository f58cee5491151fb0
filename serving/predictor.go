// Package serving answers single-listing price predictions from the
// persisted pipeline and encoder.
package serving

import (
	"math"

	"github.com/YuminosukeSato/housecast/artifact"
	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/preprocessing"
)

// Predictor validates a record, encodes it and returns a price in dollars.
// The model and encoder are loaded once and only read afterwards, so a
// Predictor is safe for concurrent use.
type Predictor struct {
	schema  *housing.Schema
	model   model.Predictor
	encoder *preprocessing.FeatureEncoder
	logger  log.Logger
}

// NewPredictor wraps an already loaded model and encoder.
func NewPredictor(schema *housing.Schema, m model.Predictor, encoder *preprocessing.FeatureEncoder, logger log.Logger) *Predictor {
	if logger == nil {
		logger = log.GetLoggerWithName("predictor")
	}
	encoder.SetLogger(logger)
	return &Predictor{schema: schema, model: m, encoder: encoder, logger: logger}
}

// LoadPredictor reads the model and encoder from store.
func LoadPredictor(store *artifact.Store, schema *housing.Schema, logger log.Logger) (*Predictor, error) {
	pipe, err := store.LoadModel()
	if err != nil {
		return nil, err
	}
	encoder, err := store.LoadEncoder()
	if err != nil {
		return nil, err
	}
	if logger != nil {
		pipe.SetLogger(logger)
	}
	p := NewPredictor(schema, pipe, encoder, logger)
	p.logger.Info("Predictor loaded",
		log.PathKey, store.ModelPath(),
		log.FeaturesKey, len(encoder.FeatureNames()),
	)
	return p, nil
}

// Schema returns the validation schema.
func (p *Predictor) Schema() *housing.Schema { return p.schema }

// Predict returns the predicted price for r. Invalid input yields a
// ValidationError; every other error is internal. Panics are recovered.
func (p *Predictor) Predict(r housing.Record) (price float64, err error) {
	defer errors.Recover(&err, "Predictor.Predict")

	if err := p.schema.ValidateRecord(r); err != nil {
		return 0, err
	}
	f, err := r.Frame()
	if err != nil {
		return 0, err
	}
	X, err := p.encoder.Transform(f)
	if err != nil {
		return 0, err
	}
	pred, err := p.model.Predict(X)
	if err != nil {
		return 0, err
	}
	if rows, cols := pred.Dims(); rows != 1 || cols != 1 {
		return 0, errors.NewDimensionError("Predictor.Predict", 1, rows*cols, 0)
	}

	price = math.Exp(pred.At(0, 0))
	if err := errors.CheckScalar("Predictor.Predict", price, 0); err != nil {
		return 0, err
	}
	p.logger.Debug("Prediction served",
		log.PhaseKey, log.PhaseInference,
		log.PredictionKey, price,
	)
	return price, nil
}
