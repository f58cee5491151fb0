package housing

import (
	"fmt"
	"slices"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Record is a single listing submitted for prediction. PRICE is optional and
// only validated when present; it never reaches the model.
type Record struct {
	Price        *int   `json:"PRICE,omitempty"`
	Beds         int    `json:"BEDS"`
	Bath         int    `json:"BATH"`
	PropertySqft int    `json:"PROPERTYSQFT"`
	Locality     string `json:"LOCALITY"`
}

// ValidateRecord checks r against the schema's ranges and categories, field by
// field in schema order. The first failure is returned as a ValidationError.
func (s *Schema) ValidateRecord(r Record) error {
	if r.Price != nil {
		if err := s.checkRange(ColPrice, float64(*r.Price)); err != nil {
			return err
		}
	}
	for _, name := range s.Features {
		var err error
		switch name {
		case ColBeds:
			err = s.checkRange(name, float64(r.Beds))
		case ColBath:
			err = s.checkRange(name, float64(r.Bath))
		case ColPropertySqft:
			err = s.checkRange(name, float64(r.PropertySqft))
		case ColLocality:
			err = s.checkCategory(name, r.Locality)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) checkRange(name string, v float64) error {
	rg, ok := s.Ranges[name]
	if !ok {
		return nil
	}
	if !rg.Contains(v) {
		return errors.NewValidationError(name, fmt.Sprintf("must be between %g and %g", rg.Min, rg.Max), v)
	}
	return nil
}

func (s *Schema) checkCategory(name, v string) error {
	allowed, ok := s.Categories[name]
	if !ok {
		return nil
	}
	if !slices.Contains(allowed, v) {
		return errors.NewValidationError(name, "unknown value", v)
	}
	return nil
}

// Frame returns r as a one-row feature frame with the cleaned table's kinds.
func (r Record) Frame() (*frame.Frame, error) {
	return frame.New(
		series.New([]int{r.Beds}, series.Int, ColBeds),
		series.New([]int{r.Bath}, series.Int, ColBath),
		series.New([]int{r.PropertySqft}, series.Int, ColPropertySqft),
		series.New([]string{r.Locality}, series.String, ColLocality),
	)
}
