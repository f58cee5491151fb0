package housing

import (
	"slices"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// Cleaner turns the raw listing table into the modelling table.
type Cleaner struct {
	schema *Schema
	logger log.Logger
}

// NewCleaner returns a Cleaner driven by schema.
func NewCleaner(schema *Schema, logger log.Logger) *Cleaner {
	return &Cleaner{
		schema: schema,
		logger: logger.With(log.ComponentKey, "cleaner", log.OperationKey, log.OperationClean),
	}
}

// Clean runs ExcludeOutliers, DropColumns and Normalize, then checks that the
// result has exactly the schema's columns in order. Any failure returns no
// frame.
func (c *Cleaner) Clean(f *frame.Frame) (*frame.Frame, error) {
	before := f.NRows()

	out, err := c.ExcludeOutliers(f)
	if err != nil {
		return nil, err
	}
	if out, err = c.DropColumns(out); err != nil {
		return nil, err
	}
	if out, err = c.Normalize(out); err != nil {
		return nil, err
	}

	want := c.schema.Columns()
	if got := out.Names(); !slices.Equal(got, want) {
		return nil, errors.NewConfigError("schema", "cleaned columns "+strconv.Quote(strings.Join(got, ","))+" do not match "+strconv.Quote(strings.Join(want, ",")), nil)
	}

	c.logger.Info("Cleaning finished",
		log.SamplesKey, out.NRows(),
		log.DroppedRowsKey, before-out.NRows(),
		log.ColumnsKey, out.Names(),
	)
	return out, nil
}

// ExcludeOutliers removes the rows named by each outlier list, in order.
// A label that is not present, including one removed by an earlier list,
// is a ConfigError.
func (c *Cleaner) ExcludeOutliers(f *frame.Frame) (*frame.Frame, error) {
	out := f
	for _, list := range c.schema.Outliers {
		next, err := out.DropLabels(list.Labels)
		if err != nil {
			if errors.Is(err, frame.ErrLabelNotFound) {
				return nil, errors.NewConfigError("outliers."+list.Column, "stale row label", err)
			}
			return nil, err
		}
		c.logger.Debug("Excluded outlier rows",
			log.ColumnsKey, list.Column,
			log.DroppedRowsKey, out.NRows()-next.NRows(),
		)
		out = next
	}
	return out, nil
}

// DropColumns removes the schema's non-modelling columns.
func (c *Cleaner) DropColumns(f *frame.Frame) (*frame.Frame, error) {
	out, err := f.Drop(c.schema.DropColumns...)
	if err != nil {
		if errors.Is(err, frame.ErrColumnNotFound) {
			return nil, errors.NewConfigError("drop_columns", "required column missing", err)
		}
		return nil, err
	}
	return out, nil
}

// Normalize casts the schema's integer columns and removes exact duplicate
// rows, keeping the first occurrence. Normalize(Normalize(f)) equals Normalize(f).
func (c *Cleaner) Normalize(f *frame.Frame) (*frame.Frame, error) {
	out := f
	for _, name := range c.schema.IntColumns {
		if !out.Has(name) {
			return nil, errors.NewConfigError(name, "integer column missing", frame.ErrColumnNotFound)
		}
		next, err := out.CastInt(name)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out.DropDuplicates()
}
