// Package report summarises the listings dataset and the last training run:
// per-column statistics, IQR outlier counts, locality frequencies and the
// persisted evaluation metrics.
package report

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/housecast/frame"
	"github.com/YuminosukeSato/housecast/metrics"
	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// OutlierThreshold is the share of IQR outliers, in percent, above which a
// column is flagged.
const OutlierThreshold = 5.0

// ColumnStats are the describe statistics of one numeric column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// OutlierSummary counts values outside [Q1-1.5*IQR, Q3+1.5*IQR].
type OutlierSummary struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
}

// Flagged reports whether the outlier share exceeds OutlierThreshold.
func (o OutlierSummary) Flagged() bool { return o.Percent > OutlierThreshold }

// CategoryCount is one row of a frequency table.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Report is the analytics summary. Metrics is nil when no training run has
// been persisted.
type Report struct {
	Rows        int                        `json:"rows"`
	Duplicates  int                        `json:"duplicates"`
	Columns     []ColumnStats              `json:"columns"`
	Outliers    []OutlierSummary           `json:"outliers"`
	Frequencies map[string][]CategoryCount `json:"frequencies"`
	Metrics     *metrics.Report            `json:"metrics,omitempty"`
}

// Build analyses the named columns of f. Numeric columns get describe
// statistics and an outlier summary, string columns a frequency table.
// Duplicates counts rows repeated across the named columns.
func Build(f *frame.Frame, columns []string, m *metrics.Report) (*Report, error) {
	sel, err := f.Select(columns...)
	if err != nil {
		return nil, err
	}
	if sel.NRows() == 0 {
		return nil, errors.ErrEmptyData
	}
	dedup, err := sel.DropDuplicates()
	if err != nil {
		return nil, err
	}

	r := &Report{
		Rows:        sel.NRows(),
		Duplicates:  sel.NRows() - dedup.NRows(),
		Frequencies: make(map[string][]CategoryCount),
		Metrics:     m,
	}

	desc := sel.DataFrame().Describe()
	for _, name := range columns {
		kind, err := sel.Kind(name)
		if err != nil {
			return nil, err
		}
		if !frame.IsNumeric(kind) {
			values, err := sel.Strings(name)
			if err != nil {
				return nil, err
			}
			r.Frequencies[name] = Frequencies(values)
			continue
		}

		values, err := sel.Floats(name)
		if err != nil {
			return nil, err
		}
		d := desc.Col(name).Float()
		r.Columns = append(r.Columns, ColumnStats{
			Name:   name,
			Count:  countFinite(values),
			Mean:   d[0],
			Median: d[1],
			Std:    d[2],
			Min:    d[3],
			Q1:     d[4],
			Q3:     d[6],
			Max:    d[7],
		})

		o, err := IQROutliers(name, values)
		if err != nil {
			return nil, err
		}
		r.Outliers = append(r.Outliers, o)
	}
	return r, nil
}

// IQROutliers counts the finite values of a column lying outside the Tukey
// fences. Quartiles are the medians of the lower and upper halves.
func IQROutliers(name string, values []float64) (OutlierSummary, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return OutlierSummary{}, errors.NewValueError("report.IQROutliers", "column "+name+" has no finite values")
	}

	var q1, q3 float64
	if len(data) == 1 {
		q1, q3 = data[0], data[0]
	} else {
		q, err := stats.Quartile(data)
		if err != nil {
			return OutlierSummary{}, errors.Wrapf(err, "quartiles of %s", name)
		}
		q1, q3 = q.Q1, q.Q3
	}
	iqr := q3 - q1
	out := OutlierSummary{
		Column: name,
		Total:  len(data),
		Lower:  q1 - 1.5*iqr,
		Upper:  q3 + 1.5*iqr,
	}
	for _, v := range data {
		if v < out.Lower || v > out.Upper {
			out.Count++
		}
	}
	out.Percent = float64(out.Count) / float64(out.Total) * 100
	return out, nil
}

// Frequencies counts each distinct value, most frequent first and ties by
// value.
func Frequencies(values []string) []CategoryCount {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	slices.SortFunc(out, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

func countFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// Write renders r as aligned text tables.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", headerStyle.Render("Dataset"))
	fmt.Fprintf(tw, "rows\t%s\n", humanize.Comma(int64(r.Rows)))
	fmt.Fprintf(tw, "duplicated rows\t%s\n\n", humanize.Comma(int64(r.Duplicates)))

	fmt.Fprintf(tw, "%s\n", headerStyle.Render("Statistics"))
	fmt.Fprintln(tw, "column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax")
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.Count,
			num(c.Mean), num(c.Std), num(c.Min), num(c.Q1), num(c.Median), num(c.Q3), num(c.Max))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "%s\n", headerStyle.Render("IQR outliers"))
	fmt.Fprintln(tw, "column\toutliers\ttotal\tshare\tbounds\t")
	for _, o := range r.Outliers {
		flag := ""
		if o.Flagged() {
			flag = fmt.Sprintf("above %g%% target", OutlierThreshold)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f%%\t[%s, %s]\t%s\n",
			o.Column, o.Count, o.Total, o.Percent, num(o.Lower), num(o.Upper), flag)
	}

	names := make([]string, 0, len(r.Frequencies))
	for name := range r.Frequencies {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(tw, "\n%s\n", headerStyle.Render(strings.ToUpper(name[:1])+strings.ToLower(name[1:])+" frequency"))
		for _, c := range r.Frequencies[name] {
			fmt.Fprintf(tw, "%s\t%s\n", c.Value, humanize.Comma(int64(c.Count)))
		}
	}

	if r.Metrics != nil {
		fmt.Fprintf(tw, "\n%s\n", headerStyle.Render("Model performance (log price)"))
		fmt.Fprintf(tw, "MAE\t%.4f\n", r.Metrics.MAE)
		fmt.Fprintf(tw, "MSE\t%.4f\n", r.Metrics.MSE)
		fmt.Fprintf(tw, "RMSE\t%.4f\n", r.Metrics.RMSE)
		fmt.Fprintf(tw, "R2_SCORE\t%.4f\n", r.Metrics.R2)
	}
	return tw.Flush()
}

func num(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}
