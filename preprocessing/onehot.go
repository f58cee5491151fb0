package preprocessing

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Unknown-category policies, as in scikit-learn.
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder maps string columns to 0/1 indicator columns.
//
// Categories are learned per column at Fit time and sorted, so the indicator
// layout does not depend on row order. The category set never grows after Fit.
type OneHotEncoder struct {
	State *model.StateManager

	Columns       []string
	Categories    [][]string
	HandleUnknown string
}

// NewOneHotEncoder creates an encoder with the given unknown-category policy.
func NewOneHotEncoder(handleUnknown string) *OneHotEncoder {
	return &OneHotEncoder{
		State:         model.NewStateManager(),
		HandleUnknown: handleUnknown,
	}
}

// Fit learns the sorted distinct values of each named column.
func (e *OneHotEncoder) Fit(f *frame.Frame, columns []string) error {
	if e.HandleUnknown != HandleUnknownIgnore && e.HandleUnknown != HandleUnknownError {
		return errors.NewValidationError("handle_unknown", "must be ignore or error", e.HandleUnknown)
	}
	if f.NRows() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.State == nil {
		e.State = model.NewStateManager()
	}

	cats := make([][]string, len(columns))
	for i, name := range columns {
		vals, err := f.Strings(name)
		if err != nil {
			return errors.Wrap(err, "OneHotEncoder.Fit")
		}
		distinct := slices.Clone(vals)
		slices.Sort(distinct)
		cats[i] = slices.Compact(distinct)
	}

	e.Columns = slices.Clone(columns)
	e.Categories = cats
	e.State.SetDimensions(len(columns), f.NRows())
	e.State.SetFitted()
	return nil
}

// FeatureNames returns "<column>_<value>" for every indicator, in output order.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for i, col := range e.Columns {
		for _, v := range e.Categories[i] {
			names = append(names, col+"_"+v)
		}
	}
	return names
}

// NumFeatures returns the number of indicator columns.
func (e *OneHotEncoder) NumFeatures() int {
	n := 0
	for _, c := range e.Categories {
		n += len(c)
	}
	return n
}

// Transform encodes f. Every fitted column must be present; other columns are
// ignored. With HandleUnknownIgnore an unseen value yields all zeros.
func (e *OneHotEncoder) Transform(f *frame.Frame) (*mat.Dense, error) {
	if e.State == nil {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if err := e.State.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}

	rows := f.NRows()
	if rows == 0 || e.NumFeatures() == 0 {
		return nil, errors.NewValueError("OneHotEncoder.Transform", "nothing to encode")
	}
	out := mat.NewDense(rows, e.NumFeatures(), nil)
	offset := 0
	for i, name := range e.Columns {
		if !f.Has(name) {
			return nil, errors.NewFeatureShapeError("transform", name, []int{rows, len(e.Columns)}, []int{rows, countPresent(f, e.Columns)})
		}
		vals, err := f.Strings(name)
		if err != nil {
			return nil, err
		}
		for r, v := range vals {
			pos, found := slices.BinarySearch(e.Categories[i], v)
			if !found {
				if e.HandleUnknown == HandleUnknownError {
					return nil, errors.NewValidationError(name, "unknown category", v)
				}
				continue
			}
			out.Set(r, offset+pos, 1)
		}
		offset += len(e.Categories[i])
	}
	return out, nil
}

func countPresent(f *frame.Frame, names []string) int {
	n := 0
	for _, name := range names {
		if f.Has(name) {
			n++
		}
	}
	return n
}
