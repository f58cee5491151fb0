package report

import (
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Chart file names written by WriteCharts.
const (
	PriceHistogramFile = "price_histogram.png"
	BedsPriceFile      = "beds_vs_price.png"
	LocalityBarFile    = "locality_counts.png"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
	histBins    = 30
	maxBars     = 15
)

// WriteCharts renders the price distribution, the beds against price scatter
// and the locality counts of f as PNG files in dir, returning their paths.
// Prices are plotted on a log10 scale.
func WriteCharts(fsys afero.Fs, dir string, f *frame.Frame) ([]string, error) {
	prices, err := f.Floats(housing.ColPrice)
	if err != nil {
		return nil, err
	}
	beds, err := f.Floats(housing.ColBeds)
	if err != nil {
		return nil, err
	}
	localities, err := f.Strings(housing.ColLocality)
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	charts := []struct {
		file  string
		build func() (*plot.Plot, error)
	}{
		{PriceHistogramFile, func() (*plot.Plot, error) { return priceHistogram(prices) }},
		{BedsPriceFile, func() (*plot.Plot, error) { return bedsScatter(beds, prices) }},
		{LocalityBarFile, func() (*plot.Plot, error) { return localityBars(Frequencies(localities)) }},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		p, err := c.build()
		if err != nil {
			return nil, errors.Wrapf(err, "chart %s", c.file)
		}
		path := filepath.Join(dir, c.file)
		if err := savePNG(fsys, path, p); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func logPrices(prices []float64) plotter.Values {
	out := make(plotter.Values, 0, len(prices))
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) {
			out = append(out, math.Log10(p))
		}
	}
	return out
}

func priceHistogram(prices []float64) (*plot.Plot, error) {
	values := logPrices(prices)
	if len(values) == 0 {
		return nil, errors.NewValueError("report.priceHistogram", "no positive prices")
	}
	p := plot.New()
	p.Title.Text = "Distribution of PRICE"
	p.X.Label.Text = "log10(price)"
	p.Y.Label.Text = "listings"

	h, err := plotter.NewHist(values, histBins)
	if err != nil {
		return nil, err
	}
	p.Add(h)
	return p, nil
}

func bedsScatter(beds, prices []float64) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(beds))
	for i := range beds {
		if math.IsNaN(beds[i]) || !(prices[i] > 0) || math.IsInf(prices[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: beds[i], Y: math.Log10(prices[i])})
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError("report.bedsScatter", "no complete rows")
	}
	p := plot.New()
	p.Title.Text = "BEDS vs PRICE"
	p.X.Label.Text = "beds"
	p.Y.Label.Text = "log10(price)"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	p.Add(s, plotter.NewGrid())
	return p, nil
}

func localityBars(counts []CategoryCount) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, errors.NewValueError("report.localityBars", "no localities")
	}
	if len(counts) > maxBars {
		counts = counts[:maxBars]
	}
	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		names[i] = c.Value
	}

	p := plot.New()
	p.Title.Text = "Listings per LOCALITY"
	p.Y.Label.Text = "listings"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

func savePNG(fsys afero.Fs, path string, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return errors.Wrapf(err, "render %s", path)
	}
	out, err := fsys.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := wt.WriteTo(out); err != nil {
		out.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(out.Close(), "close %s", path)
}
