// Package frame wraps a gota DataFrame with a stable row label index.
//
// Labels are the 0-based row positions of the source table. They survive row
// removals, so a label list computed against the published dataset keeps
// pointing at the same records after earlier rows were dropped.
package frame

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")

	// ErrLabelNotFound is returned when a row label does not exist.
	ErrLabelNotFound = errors.New("row label not found")
)

// Frame is an immutable table: every operation returns a new Frame.
type Frame struct {
	df     dataframe.DataFrame
	labels []int
}

// New builds a Frame from named series. All series must have equal length.
// Rows are labelled 0..n-1.
func New(cols ...series.Series) (*Frame, error) {
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame: build")
	}
	labels := make([]int, df.Nrow())
	for i := range labels {
		labels[i] = i
	}
	return &Frame{df: df, labels: labels}, nil
}

// WithLabels returns a copy of f carrying the given labels.
func (f *Frame) WithLabels(labels []int) (*Frame, error) {
	if len(labels) != f.NRows() {
		return nil, errors.NewDimensionError("frame.WithLabels", f.NRows(), len(labels), 0)
	}
	return &Frame{df: f.df, labels: slices.Clone(labels)}, nil
}

func (f *Frame) NRows() int { return len(f.labels) }

func (f *Frame) NCols() int { return f.df.Ncol() }

// Names returns column names in order.
func (f *Frame) Names() []string { return f.df.Names() }

// Labels returns a copy of the row labels.
func (f *Frame) Labels() []int { return slices.Clone(f.labels) }

// DataFrame exposes the underlying gota DataFrame for read-only use.
func (f *Frame) DataFrame() dataframe.DataFrame { return f.df }

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	return slices.Contains(f.df.Names(), name)
}

// Kind returns the element type of a column.
func (f *Frame) Kind(name string) (series.Type, error) {
	s, err := f.Col(name)
	if err != nil {
		return "", err
	}
	return s.Type(), nil
}

// IsNumeric reports whether a column holds ints or floats.
func IsNumeric(t series.Type) bool {
	return t == series.Int || t == series.Float
}

// Col returns a column by name.
func (f *Frame) Col(name string) (series.Series, error) {
	if !f.Has(name) {
		return series.Series{}, errors.Wrapf(ErrColumnNotFound, "%q", name)
	}
	return f.df.Col(name), nil
}

// Floats returns a column converted to float64. String columns are rejected.
func (f *Frame) Floats(name string) ([]float64, error) {
	s, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	if !IsNumeric(s.Type()) {
		return nil, errors.NewValueError("frame.Floats", "column "+strconv.Quote(name)+" is not numeric")
	}
	return s.Float(), nil
}

// Strings returns a column's values as strings.
func (f *Frame) Strings(name string) ([]string, error) {
	s, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// Drop removes the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	for _, n := range names {
		if !f.Has(n) {
			return nil, errors.Wrapf(ErrColumnNotFound, "%q", n)
		}
	}
	if len(names) == 0 {
		return f, nil
	}
	df := f.df.Drop(names)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame: drop")
	}
	return &Frame{df: df, labels: f.labels}, nil
}

// Select keeps only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	for _, n := range names {
		if !f.Has(n) {
			return nil, errors.Wrapf(ErrColumnNotFound, "%q", n)
		}
	}
	df := f.df.Select(names)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame: select")
	}
	return &Frame{df: df, labels: f.labels}, nil
}

// Take returns the rows at the given positions, in that order, keeping their labels.
func (f *Frame) Take(positions []int) (*Frame, error) {
	for _, p := range positions {
		if p < 0 || p >= f.NRows() {
			return nil, errors.Newf("frame: row position %d out of range [0, %d)", p, f.NRows())
		}
	}
	labels := make([]int, len(positions))
	for i, p := range positions {
		labels[i] = f.labels[p]
	}
	df := f.df.Subset(positions)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame: subset")
	}
	return &Frame{df: df, labels: labels}, nil
}

// DropLabels removes the rows carrying the given labels. Every label must be
// present; otherwise nothing is removed and ErrLabelNotFound is returned.
func (f *Frame) DropLabels(labels []int) (*Frame, error) {
	pos := make(map[int]int, len(f.labels))
	for i, l := range f.labels {
		pos[l] = i
	}
	drop := make(map[int]bool, len(labels))
	for _, l := range labels {
		p, ok := pos[l]
		if !ok {
			return nil, errors.Wrapf(ErrLabelNotFound, "%d", l)
		}
		drop[p] = true
	}

	keep := make([]int, 0, f.NRows()-len(drop))
	for i := range f.labels {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return f.Take(keep)
}

// CastInt converts a numeric column to Int, truncating toward zero.
// NaN or infinite values fail with a ValueError naming the row label.
func (f *Frame) CastInt(name string) (*Frame, error) {
	s, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	if s.Type() == series.Int {
		return f, nil
	}
	if s.Type() != series.Float {
		return nil, errors.NewValueError("frame.CastInt", "column "+strconv.Quote(name)+" is not numeric")
	}

	vals := s.Float()
	ints := make([]int, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError("frame.CastInt",
				"cannot convert non-finite value in column "+strconv.Quote(name)+" at row label "+strconv.Itoa(f.labels[i])+" to int")
		}
		ints[i] = int(math.Trunc(v))
	}

	df := f.df.Mutate(series.New(ints, series.Int, name))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame: cast")
	}
	return &Frame{df: df, labels: f.labels}, nil
}

// DropDuplicates removes rows equal in every column to an earlier row.
func (f *Frame) DropDuplicates() (*Frame, error) {
	seen := make(map[string]struct{}, f.NRows())
	keep := make([]int, 0, f.NRows())
	for i := 0; i < f.NRows(); i++ {
		key := f.rowKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == f.NRows() {
		return f, nil
	}
	return f.Take(keep)
}

func (f *Frame) rowKey(i int) string {
	var b strings.Builder
	for j := 0; j < f.NCols(); j++ {
		e := f.df.Elem(i, j)
		switch {
		case e.IsNA():
			b.WriteString("\x00NA")
		case e.Type() == series.Float:
			b.WriteString(strconv.FormatFloat(e.Float(), 'g', -1, 64))
		default:
			b.WriteString(e.String())
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Equal reports whether two frames have the same columns, kinds, labels and values.
func (f *Frame) Equal(g *Frame) bool {
	if f.NRows() != g.NRows() || !slices.Equal(f.Names(), g.Names()) || !slices.Equal(f.labels, g.labels) {
		return false
	}
	for j, name := range f.Names() {
		if f.df.Col(name).Type() != g.df.Col(name).Type() {
			return false
		}
		for i := 0; i < f.NRows(); i++ {
			a, b := f.df.Elem(i, j), g.df.Elem(i, j)
			if a.IsNA() != b.IsNA() || (!a.IsNA() && a.String() != b.String()) {
				return false
			}
		}
	}
	return true
}
