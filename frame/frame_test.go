package frame

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

func sample(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		series.New([]float64{100, 200, 100, 300, 100}, series.Float, "PRICE"),
		series.New([]float64{1.9, 2, 1.9, math.NaN(), 1.9}, series.Float, "BATH"),
		series.New([]string{"Queens", "Brooklyn", "Queens", "Queens", "Queens"}, series.String, "LOCALITY"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNewAssignsPositionalLabels(t *testing.T) {
	f := sample(t)
	if got := f.Labels(); !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("Labels() = %v", got)
	}
	if f.NRows() != 5 || f.NCols() != 3 {
		t.Errorf("dims = %d x %d", f.NRows(), f.NCols())
	}
	if _, err := New(series.Ints([]int{1}), series.Ints([]int{1, 2})); err == nil {
		t.Error("New should reject ragged columns")
	}
}

func TestDropLabelsKeepsRemainingLabels(t *testing.T) {
	f := sample(t)
	g, err := f.DropLabels([]int{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Labels(); !slices.Equal(got, []int{0, 2, 4}) {
		t.Errorf("Labels() = %v", got)
	}

	// Label 3 no longer exists after the first removal.
	_, err = g.DropLabels([]int{0, 3})
	if !errors.Is(err, ErrLabelNotFound) {
		t.Errorf("expected ErrLabelNotFound, got %v", err)
	}
	if g.NRows() != 3 {
		t.Error("failed DropLabels must not modify the frame")
	}
}

func TestDropAndSelect(t *testing.T) {
	f := sample(t)

	g, err := f.Drop("BATH")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.Names(), []string{"PRICE", "LOCALITY"}) {
		t.Errorf("Names() = %v", g.Names())
	}

	if _, err := f.Drop("ADDRESS"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}

	h, err := f.Select("LOCALITY", "PRICE")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.Names(), []string{"LOCALITY", "PRICE"}) {
		t.Errorf("Names() = %v", h.Names())
	}
	if !slices.Equal(h.Labels(), f.Labels()) {
		t.Error("Select must keep labels")
	}
}

func TestCastInt(t *testing.T) {
	f := sample(t)

	_, err := f.CastInt("BATH")
	var vErr *errors.ValueError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValueError for NaN, got %v", err)
	}

	clean, err := f.DropLabels([]int{3})
	if err != nil {
		t.Fatal(err)
	}
	g, err := clean.CastInt("BATH")
	if err != nil {
		t.Fatal(err)
	}
	kind, _ := g.Kind("BATH")
	if kind != series.Int {
		t.Errorf("Kind = %v, want int", kind)
	}
	vals, _ := g.Floats("BATH")
	if !slices.Equal(vals, []float64{1, 2, 1, 1}) {
		t.Errorf("BATH = %v, want truncated values", vals)
	}
	if !slices.Equal(g.Names(), f.Names()) {
		t.Error("CastInt must keep column order")
	}

	again, err := g.CastInt("BATH")
	if err != nil || again != g {
		t.Error("casting an Int column should be a no-op")
	}

	if _, err := g.CastInt("LOCALITY"); err == nil {
		t.Error("casting a string column should fail")
	}
}

func TestDropDuplicatesKeepsFirst(t *testing.T) {
	f := sample(t)
	g, err := f.DropDuplicates()
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Labels(); !slices.Equal(got, []int{0, 1, 3}) {
		t.Errorf("Labels() = %v", got)
	}

	h, err := g.DropDuplicates()
	if err != nil {
		t.Fatal(err)
	}
	if !h.Equal(g) {
		t.Error("DropDuplicates should be idempotent")
	}
}

func TestTake(t *testing.T) {
	f := sample(t)
	g, err := f.Take([]int{4, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.Labels(), []int{4, 0}) {
		t.Errorf("Labels() = %v", g.Labels())
	}

	empty, err := f.Take(nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty.NRows() != 0 || empty.NCols() != 3 {
		t.Errorf("empty take dims = %d x %d", empty.NRows(), empty.NCols())
	}

	if _, err := f.Take([]int{5}); err == nil {
		t.Error("out of range position should fail")
	}
}

func TestFloatsRejectsStrings(t *testing.T) {
	f := sample(t)
	if _, err := f.Floats("LOCALITY"); err == nil {
		t.Error("Floats on a string column should fail")
	}
	locs, err := f.Strings("LOCALITY")
	if err != nil || locs[1] != "Brooklyn" {
		t.Errorf("Strings() = %v, %v", locs, err)
	}
}
