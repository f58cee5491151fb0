// Package housingtest generates synthetic listing files for tests.
package housingtest

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Row holds the modelling fields of one listing. The other raw columns are
// filled with fixed text.
type Row struct {
	Price        string
	Beds         string
	Bath         string
	PropertySqft string
	Locality     string
}

// Line renders r in housing.RawColumns order.
func (r Row) Line() string {
	return strings.Join([]string{
		"Brokered by Test Realty", "House for sale", r.Price, r.Beds, r.Bath, r.PropertySqft,
		"\"1 Main St, New York\"", "\"New York, NY 10001\"", "1 Main St", "New York County",
		r.Locality, "Manhattan", "Main St", "Main Street", "\"1 Main St, New York, NY 10001\"",
		"40.7128", "-74.0060",
	}, ",")
}

// CSV renders a header line followed by rows.
func CSV(rows ...Row) string {
	var b strings.Builder
	b.WriteString(strings.Join(housing.RawColumns, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(r.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// pricePerSqft gives each locality a distinct price level.
var pricePerSqft = map[string]float64{
	"Brooklyn":        900,
	"Queens":          600,
	"New York":        1400,
	"The Bronx":       400,
	"Flatbush":        700,
	"Richmond County": 450,
}

// Rows returns n deterministic listings spread over localities. Prices grow
// with size, bedrooms and the locality's price level, with seeded noise.
// Some BATH and PROPERTYSQFT values are fractional to exercise the integer
// casts.
func Rows(n int, localities []string, seed uint64) []Row {
	r := rand.New(rand.NewPCG(seed, seed))
	rows := make([]Row, n)
	for i := range rows {
		loc := localities[i%len(localities)]
		level, ok := pricePerSqft[loc]
		if !ok {
			level = 800
		}
		beds := 1 + i%5
		bath := 1 + float64(i%3)
		if i%7 == 0 {
			bath += 0.5
		}
		sqft := 500 + float64((i*37)%2500)
		if i%11 == 0 {
			sqft += 0.4
		}
		price := level * sqft * (1 + 0.08*float64(beds)) * (0.9 + 0.2*r.Float64())
		rows[i] = Row{
			Price:        strconv.Itoa(int(price)),
			Beds:         strconv.Itoa(beds),
			Bath:         strconv.FormatFloat(bath, 'f', -1, 64),
			PropertySqft: strconv.FormatFloat(sqft, 'f', -1, 64),
			Locality:     loc,
		}
	}
	return rows
}

// WriteCSV writes n synthetic listings to path on fs.
func WriteCSV(fs afero.Fs, path string, n int, localities []string, seed uint64) error {
	if err := afero.WriteFile(fs, path, []byte(CSV(Rows(n, localities, seed)...)), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Schema returns the embedded schema with the outlier lists removed, since
// their row labels refer to the published dataset.
func Schema() (*housing.Schema, error) {
	s, err := housing.DefaultSchema()
	if err != nil {
		return nil, err
	}
	s.Outliers = nil
	return s, nil
}
