// Package housing holds everything specific to the NY house dataset: the
// column schema, CSV loading, cleaning and request validation.
package housing

import (
	_ "embed"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

//go:embed schema.yaml
var defaultSchema []byte

// Range is an inclusive numeric bound.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// OutlierList names rows to exclude because of one column's values.
type OutlierList struct {
	Column string `yaml:"column"`
	Labels []int  `yaml:"labels"`
}

// Schema describes the modelling table and the serving contract.
type Schema struct {
	Target      string              `yaml:"target"`
	Features    []string            `yaml:"features"`
	DropColumns []string            `yaml:"drop_columns"`
	IntColumns  []string            `yaml:"int_columns"`
	Outliers    []OutlierList       `yaml:"outliers"`
	Ranges      map[string]Range    `yaml:"ranges"`
	Categories  map[string][]string `yaml:"categories"`
}

// DefaultSchema returns the schema embedded in the binary.
func DefaultSchema() (*Schema, error) {
	return ParseSchema(defaultSchema)
}

// LoadSchema reads a schema document from fs.
func LoadSchema(fs afero.Fs, path string) (*Schema, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.NewConfigError(path, "read schema", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return s, nil
}

// ParseSchema decodes and validates a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.NewConfigError("schema", "malformed yaml", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the schema for internal consistency.
func (s *Schema) Validate() error {
	if s.Target == "" {
		return errors.NewConfigError("schema.target", "must not be empty", nil)
	}
	if len(s.Features) == 0 {
		return errors.NewConfigError("schema.features", "must not be empty", nil)
	}
	columns := s.Columns()
	for i, c := range columns {
		if slices.Contains(columns[:i], c) {
			return errors.NewConfigError("schema.features", "duplicate column "+c, nil)
		}
		if slices.Contains(s.DropColumns, c) {
			return errors.NewConfigError("schema.drop_columns", "drops modelling column "+c, nil)
		}
	}
	for _, c := range s.IntColumns {
		if !slices.Contains(columns, c) {
			return errors.NewConfigError("schema.int_columns", "unknown column "+c, nil)
		}
	}
	for name, r := range s.Ranges {
		if !slices.Contains(columns, name) {
			return errors.NewConfigError("schema.ranges", "unknown column "+name, nil)
		}
		if r.Min > r.Max {
			return errors.NewConfigError("schema.ranges."+name, "min is greater than max", nil)
		}
	}
	for name, values := range s.Categories {
		if !slices.Contains(s.Features, name) {
			return errors.NewConfigError("schema.categories", "unknown feature "+name, nil)
		}
		if len(values) == 0 {
			return errors.NewConfigError("schema.categories."+name, "must list at least one value", nil)
		}
	}
	return nil
}

// Columns returns the cleaned table layout: target followed by features.
func (s *Schema) Columns() []string {
	return append([]string{s.Target}, s.Features...)
}

// Localities returns the allowed values of the LOCALITY feature.
func (s *Schema) Localities() []string {
	return slices.Clone(s.Categories[ColLocality])
}
