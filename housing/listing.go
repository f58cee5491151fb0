package housing

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"

	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Column names of the raw dataset.
const (
	ColBrokerTitle      = "BROKERTITLE"
	ColType             = "TYPE"
	ColPrice            = "PRICE"
	ColBeds             = "BEDS"
	ColBath             = "BATH"
	ColPropertySqft     = "PROPERTYSQFT"
	ColAddress          = "ADDRESS"
	ColState            = "STATE"
	ColMainAddress      = "MAIN_ADDRESS"
	ColAdminArea2       = "ADMINISTRATIVE_AREA_LEVEL_2"
	ColLocality         = "LOCALITY"
	ColSublocality      = "SUBLOCALITY"
	ColStreetName       = "STREET_NAME"
	ColLongName         = "LONG_NAME"
	ColFormattedAddress = "FORMATTED_ADDRESS"
	ColLatitude         = "LATITUDE"
	ColLongitude        = "LONGITUDE"
)

// RawColumns lists the dataset columns in file order.
var RawColumns = []string{
	ColBrokerTitle, ColType, ColPrice, ColBeds, ColBath, ColPropertySqft,
	ColAddress, ColState, ColMainAddress, ColAdminArea2, ColLocality,
	ColSublocality, ColStreetName, ColLongName, ColFormattedAddress,
	ColLatitude, ColLongitude,
}

// Number is a CSV cell that may be empty. Empty cells decode to NaN.
type Number float64

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (n *Number) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		*n = Number(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Listing is one row of the raw dataset.
type Listing struct {
	BrokerTitle      string `csv:"BROKERTITLE"`
	Type             string `csv:"TYPE"`
	Price            Number `csv:"PRICE"`
	Beds             Number `csv:"BEDS"`
	Bath             Number `csv:"BATH"`
	PropertySqft     Number `csv:"PROPERTYSQFT"`
	Address          string `csv:"ADDRESS"`
	State            string `csv:"STATE"`
	MainAddress      string `csv:"MAIN_ADDRESS"`
	AdminArea2       string `csv:"ADMINISTRATIVE_AREA_LEVEL_2"`
	Locality         string `csv:"LOCALITY"`
	Sublocality      string `csv:"SUBLOCALITY"`
	StreetName       string `csv:"STREET_NAME"`
	LongName         string `csv:"LONG_NAME"`
	FormattedAddress string `csv:"FORMATTED_ADDRESS"`
	Latitude         Number `csv:"LATITUDE"`
	Longitude        Number `csv:"LONGITUDE"`
}

// LoadListingsFile reads the dataset at path from fs.
func LoadListingsFile(fs afero.Fs, path string) (*frame.Frame, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.NewConfigError(path, "read dataset", err)
	}
	f, err := LoadListings(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	return f, nil
}

// LoadListings decodes CSV rows into a Frame with one column per raw field.
// Row labels are the 0-based data row positions.
func LoadListings(r io.Reader) (*frame.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	var rows []Listing
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.NewConfigError("csv", "decode rows", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewConfigError("csv", "no data rows", errors.ErrEmptyData)
	}
	return listingsFrame(rows)
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return errors.NewConfigError("csv", "read header", err)
	}
	for _, c := range RawColumns {
		if !slices.Contains(header, c) {
			return errors.NewConfigError(c, "column not found in csv header", nil)
		}
	}
	return nil
}

func listingsFrame(rows []Listing) (*frame.Frame, error) {
	n := len(rows)
	str := func(get func(*Listing) string) []string {
		out := make([]string, n)
		for i := range rows {
			out[i] = get(&rows[i])
		}
		return out
	}
	num := func(get func(*Listing) Number) []float64 {
		out := make([]float64, n)
		for i := range rows {
			out[i] = float64(get(&rows[i]))
		}
		return out
	}

	return frame.New(
		series.New(str(func(l *Listing) string { return l.BrokerTitle }), series.String, ColBrokerTitle),
		series.New(str(func(l *Listing) string { return l.Type }), series.String, ColType),
		numericSeries(num(func(l *Listing) Number { return l.Price }), ColPrice),
		numericSeries(num(func(l *Listing) Number { return l.Beds }), ColBeds),
		numericSeries(num(func(l *Listing) Number { return l.Bath }), ColBath),
		numericSeries(num(func(l *Listing) Number { return l.PropertySqft }), ColPropertySqft),
		series.New(str(func(l *Listing) string { return l.Address }), series.String, ColAddress),
		series.New(str(func(l *Listing) string { return l.State }), series.String, ColState),
		series.New(str(func(l *Listing) string { return l.MainAddress }), series.String, ColMainAddress),
		series.New(str(func(l *Listing) string { return l.AdminArea2 }), series.String, ColAdminArea2),
		series.New(str(func(l *Listing) string { return l.Locality }), series.String, ColLocality),
		series.New(str(func(l *Listing) string { return l.Sublocality }), series.String, ColSublocality),
		series.New(str(func(l *Listing) string { return l.StreetName }), series.String, ColStreetName),
		series.New(str(func(l *Listing) string { return l.LongName }), series.String, ColLongName),
		series.New(str(func(l *Listing) string { return l.FormattedAddress }), series.String, ColFormattedAddress),
		numericSeries(num(func(l *Listing) Number { return l.Latitude }), ColLatitude),
		numericSeries(num(func(l *Listing) Number { return l.Longitude }), ColLongitude),
	)
}

// numericSeries stores a column as Int when every value is a finite whole
// number, and as Float otherwise.
func numericSeries(vals []float64, name string) series.Series {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return series.New(vals, series.Float, name)
		}
	}
	ints := make([]int, len(vals))
	for i, v := range vals {
		ints[i] = int(v)
	}
	return series.New(ints, series.Int, name)
}
