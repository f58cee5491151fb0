package preprocessing

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// FeatureEncoder turns a cleaned feature frame into the model's input matrix:
// numeric columns in fit order followed by one-hot indicators for every
// string column.
//
// Columns are classified by kind, not by name, so a new string column in the
// schema is encoded without code changes. The encoder is fit on the training
// partition only and is read-only afterwards.
type FeatureEncoder struct {
	State *model.StateManager

	Target      string
	Numeric     []string
	Categorical []string
	OneHot      *OneHotEncoder

	logger log.Logger
}

// NewFeatureEncoder creates an encoder that ignores target when present.
func NewFeatureEncoder(target string, logger log.Logger) *FeatureEncoder {
	return &FeatureEncoder{
		State:  model.NewStateManager(),
		Target: target,
		OneHot: NewOneHotEncoder(HandleUnknownIgnore),
		logger: logger,
	}
}

// SetLogger attaches a logger after the encoder was loaded from disk.
func (e *FeatureEncoder) SetLogger(logger log.Logger) { e.logger = logger }

func (e *FeatureEncoder) log() log.Logger {
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("FeatureEncoder")
	}
	return e.logger
}

// Fit partitions the columns of train and fits the one-hot encoder on the
// string columns.
func (e *FeatureEncoder) Fit(train *frame.Frame) error {
	if e.State == nil {
		e.State = model.NewStateManager()
	}
	if e.OneHot == nil {
		e.OneHot = NewOneHotEncoder(HandleUnknownIgnore)
	}

	var numeric, categorical []string
	for _, name := range train.Names() {
		if name == e.Target {
			continue
		}
		kind, err := train.Kind(name)
		if err != nil {
			return err
		}
		if frame.IsNumeric(kind) {
			numeric = append(numeric, name)
		} else {
			categorical = append(categorical, name)
		}
	}
	if len(numeric)+len(categorical) == 0 {
		return errors.NewValueError("FeatureEncoder.Fit", "no feature columns")
	}

	if len(categorical) > 0 {
		if err := e.OneHot.Fit(train, categorical); err != nil {
			return err
		}
	}

	e.Numeric = numeric
	e.Categorical = categorical
	e.State.SetDimensions(len(e.FeatureNames()), train.NRows())
	e.State.SetFitted()

	e.log().Info("Feature encoder fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, train.NRows(),
		log.FeaturesKey, len(e.FeatureNames()),
	)
	return nil
}

// Transform encodes f. The target column and unknown extra columns are
// ignored; a missing fitted column is an InputShapeError.
func (e *FeatureEncoder) Transform(f *frame.Frame) (*mat.Dense, error) {
	if e.State == nil {
		return nil, errors.NewNotFittedError("FeatureEncoder", "Transform")
	}
	if err := e.State.RequireFitted("FeatureEncoder", "Transform"); err != nil {
		return nil, err
	}
	rows := f.NRows()
	if rows == 0 {
		return nil, errors.NewValueError("FeatureEncoder.Transform", "empty frame")
	}

	width := len(e.Numeric) + e.OneHot.NumFeatures()
	out := mat.NewDense(rows, width, nil)
	for j, name := range e.Numeric {
		if !f.Has(name) {
			return nil, errors.NewFeatureShapeError("transform", name, []int{rows, width}, []int{rows, f.NCols()})
		}
		vals, err := f.Floats(name)
		if err != nil {
			return nil, err
		}
		out.SetCol(j, vals)
	}

	if len(e.Categorical) > 0 {
		ind, err := e.OneHot.Transform(f)
		if err != nil {
			return nil, err
		}
		out.Slice(0, rows, len(e.Numeric), width).(*mat.Dense).Copy(ind)
	}
	return out, nil
}

// FitTransform fits on f and encodes it.
func (e *FeatureEncoder) FitTransform(f *frame.Frame) (*mat.Dense, error) {
	if err := e.Fit(f); err != nil {
		return nil, err
	}
	return e.Transform(f)
}

// FeatureNames returns the encoded column names in matrix order.
func (e *FeatureEncoder) FeatureNames() []string {
	names := slices.Clone(e.Numeric)
	if len(e.Categorical) > 0 && e.OneHot != nil {
		names = append(names, e.OneHot.FeatureNames()...)
	}
	return names
}

// NumericColumns returns the numeric input columns in fit order.
func (e *FeatureEncoder) NumericColumns() []string { return slices.Clone(e.Numeric) }

// CategoricalColumns returns the string input columns in fit order.
func (e *FeatureEncoder) CategoricalColumns() []string { return slices.Clone(e.Categorical) }
