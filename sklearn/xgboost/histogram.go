package xgboost

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// binMapper holds per-feature bin upper edges. Bin i of feature j covers
// (Bounds[j][i-1], Bounds[j][i]]; the last edge is +Inf.
type binMapper struct {
	Bounds [][]float64
}

// newBinMapper builds bin edges from the training matrix. Features with at
// most maxBin distinct values get one bin per value, split at midpoints.
// Otherwise edges are placed at evenly spaced ranks of the distinct values.
func newBinMapper(X mat.Matrix, maxBin int) *binMapper {
	rows, cols := X.Dims()
	bm := &binMapper{Bounds: make([][]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		uniq := distinctSorted(col)
		bm.Bounds[j] = binEdges(uniq, maxBin)
	}
	return bm
}

func distinctSorted(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func binEdges(uniq []float64, maxBin int) []float64 {
	var edges []float64
	if len(uniq) <= maxBin {
		edges = make([]float64, 0, len(uniq))
		for i := 0; i+1 < len(uniq); i++ {
			edges = append(edges, (uniq[i]+uniq[i+1])/2)
		}
	} else {
		edges = make([]float64, 0, maxBin)
		for k := 1; k < maxBin; k++ {
			idx := k * len(uniq) / maxBin
			cut := (uniq[idx-1] + uniq[idx]) / 2
			if len(edges) == 0 || cut > edges[len(edges)-1] {
				edges = append(edges, cut)
			}
		}
	}
	return append(edges, posInf)
}

// NumBins returns the bin count of feature j.
func (bm *binMapper) NumBins(j int) int {
	return len(bm.Bounds[j])
}

// Bin returns the bin index of x for feature j.
func (bm *binMapper) Bin(j int, x float64) int {
	return sort.SearchFloat64s(bm.Bounds[j], x)
}

// Transform bins every column of X. The result is column-major.
func (bm *binMapper) Transform(X mat.Matrix) [][]uint16 {
	rows, cols := X.Dims()
	binned := make([][]uint16, cols)
	for j := 0; j < cols; j++ {
		binned[j] = make([]uint16, rows)
		for i := 0; i < rows; i++ {
			binned[j][i] = uint16(bm.Bin(j, X.At(i, j)))
		}
	}
	return binned
}
